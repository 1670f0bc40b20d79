/**
 * @description
 * Pure schedule math for bookings: when a booking is expected to end and
 * whether the post-completion complaint window is still open. Both the
 * complaint handler and the escrow queries derive their answers from the same
 * functions, so there is exactly one definition of "the window".
 */

package app

import (
	"time"

	"github.com/workhive/booking-service/internal/domain"
)

// ExpectedEnd returns when the booked work is scheduled to finish: the
// explicit end date when one was given, otherwise the start date plus the
// booked duration.
func ExpectedEnd(booking *domain.Booking) time.Time {
	if booking.EndDate != nil {
		return *booking.EndDate
	}
	return booking.StartDate.Add(time.Duration(booking.DurationHours) * time.Hour)
}

// ComplaintAnchor returns the moment the complaint window starts counting
// from: the worker's completion time when the worker has completed, otherwise
// the expected end of the booking.
func ComplaintAnchor(booking *domain.Booking) time.Time {
	if booking.WorkerCompletedAt != nil {
		return *booking.WorkerCompletedAt
	}
	return ExpectedEnd(booking)
}

// ComplaintWindowOpen reports whether a complaint may still be filed at `now`,
// and the deadline it is measured against. A complaint filed exactly at the
// deadline is allowed; one instant after is not.
func ComplaintWindowOpen(booking *domain.Booking, window time.Duration, now time.Time) (deadline time.Time, open bool) {
	deadline = ComplaintAnchor(booking).Add(window)
	return deadline, !now.After(deadline)
}

// IsOverdue reports whether a still-active booking has run past its expected
// end without the worker completing it.
func IsOverdue(booking *domain.Booking, now time.Time) bool {
	switch booking.Status {
	case domain.BookingWorkerConfirmed, domain.BookingInProgress:
		return now.After(ExpectedEnd(booking))
	}
	return false
}
