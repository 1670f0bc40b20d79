/**
 * @description
 * Business-rule sentinel errors for the app layer. The API layer maps these
 * (together with the store sentinels) onto HTTP status codes; everything else
 * surfaces as a 500.
 */

package app

import "errors"

var (
	ErrUnauthorized           = errors.New("requester is not a party to this resource")
	ErrSelfBooking            = errors.New("cannot book your own service")
	ErrNotAWorker             = errors.New("target user is not a worker")
	ErrWorkerBanned           = errors.New("worker account is banned")
	ErrWorkerServiceInactive  = errors.New("worker service is not active")
	ErrWorkerServiceUnpriced  = errors.New("worker service has no pricing configured")
	ErrWorkerServiceMismatch  = errors.New("worker service does not belong to this worker")
	ErrInvalidDuration        = errors.New("duration must be a positive number of hours")
	ErrInvalidDate            = errors.New("booking dates are invalid")
	ErrInvalidBookingType     = errors.New("unknown booking type")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidResolution      = errors.New("resolution amounts are invalid")
	ErrComplaintWindowExpired = errors.New("complaint window has expired")
	ErrComplaintNotAllowed    = errors.New("complaint cannot be filed against this escrow")
	ErrMissingEscrow          = errors.New("booking has no escrow hold")
)
