/**
 * @description
 * This file defines the repository interfaces for the booking-service: the
 * contract for all data access the booking state machine and the wallet/escrow
 * service require. Defining interfaces decouples the business logic from the
 * PostgreSQL implementation and lets tests substitute stubs.
 *
 * The split matters: a wallet is mutated only through WalletRepository, a
 * booking row only through BookingRepository. The booking state machine never
 * writes balances directly.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/domain"
)

// BookingRepository is the data access contract for bookings and the
// worker/service directory reads the booking flow validates against.
type BookingRepository interface {
	// Directory reads (consumed, never mutated)
	FindUserProfileByID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
	FindUserProfilesByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]domain.UserProfile, error)
	FindWorkerProfileByID(ctx context.Context, workerProfileID uuid.UUID) (*domain.WorkerProfile, error)
	FindWorkerServiceByID(ctx context.Context, workerServiceID uuid.UUID) (*domain.WorkerService, error)

	// Booking lifecycle
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	FindBookingByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	ListBookings(ctx context.Context, filters domain.BookingFilters) ([]domain.Booking, int, error)

	// Confirmation hardening: a booking is first claimed with a status-guarded
	// update so exactly one of two concurrent confirmations proceeds to
	// payment; the claim is released if payment fails, leaving the booking in
	// pending_worker_confirmation.
	ClaimBookingForConfirmation(ctx context.Context, bookingID, workerID uuid.UUID) (*domain.Booking, error)
	ReleaseBookingConfirmationClaim(ctx context.Context, bookingID uuid.UUID) error
	MarkBookingConfirmed(ctx context.Context, bookingID, escrowID, paymentTransactionID uuid.UUID) (*domain.Booking, error)

	// Status-guarded transitions. Each returns ErrBookingStateConflict when the
	// row is no longer in an allowed source status.
	MarkBookingDeclined(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	MarkBookingWorkerCompleted(ctx context.Context, bookingID uuid.UUID, completedAt time.Time) (*domain.Booking, error)
	MarkBookingClientCompleted(ctx context.Context, bookingID uuid.UUID, completedAt time.Time) (*domain.Booking, error)
	MarkBookingCancelled(ctx context.Context, bookingID, cancelledBy uuid.UUID, cancelledAt time.Time, reason *string) (*domain.Booking, error)
	MarkBookingDisputed(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
}

// WalletRepository is the data access contract for wallets, the append-only
// transaction ledger and escrow holds. Every mutating method executes inside a
// single database transaction with row-level locks; a failure anywhere rolls
// back the whole unit.
type WalletRepository interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// ProcessPayment atomically debits the client wallet (authoritative balance
	// re-check under FOR UPDATE), writes the payment and escrow_hold ledger
	// rows, and creates the escrow hold.
	ProcessPayment(ctx context.Context, req domain.PaymentRequest, platformFee domain.Cents, holdUntil time.Time) (*domain.PaymentResult, error)

	// ReleaseEscrow credits the worker and moves the escrow to released. The
	// transition is guarded on the current status being one of fromStatuses, so
	// concurrent attempts leave exactly one winner; losers get
	// ErrEscrowAlreadyProcessed.
	ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.Transaction, error)

	// RefundEscrow is the symmetric operation: credits the client the full held
	// amount and moves the escrow to refunded.
	RefundEscrow(ctx context.Context, escrowID uuid.UUID, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.Transaction, error)

	// ResolveEscrowSplit settles a disputed escrow by paying the worker and
	// refunding the client in one transaction.
	ResolveEscrowSplit(ctx context.Context, escrowID uuid.UUID, workerAmount, clientRefund domain.Cents, resolvedBy uuid.UUID, notes *string) (*domain.EscrowHold, error)

	MarkEscrowDisputed(ctx context.Context, escrowID uuid.UUID, description string, filedAt time.Time) (*domain.EscrowHold, error)

	FindEscrowByID(ctx context.Context, escrowID uuid.UUID) (*domain.EscrowHold, error)
	ListEscrows(ctx context.Context, filters domain.EscrowFilters) ([]domain.EscrowHold, int, error)
	ListEscrowsReadyForRelease(ctx context.Context, now time.Time) ([]domain.EscrowHold, error)
	ListTransactions(ctx context.Context, filters domain.TransactionFilters) ([]domain.Transaction, int, error)
	WalletEscrowStats(ctx context.Context, userID uuid.UUID) (activeEscrows int, amountHeld domain.Cents, err error)

	// FindBookingForComplaint reads the schedule fields of the booking an
	// escrow is tied to, for the complaint-window check. Read-only; the wallet
	// side never mutates bookings.
	FindBookingForComplaint(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
}
