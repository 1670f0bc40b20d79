/**
 * @description
 * This file contains the wallet and escrow business logic for the
 * booking-service. The `WalletService` struct orchestrates all money movement:
 * booking payments into escrow, settlement in either direction, complaints and
 * their resolution.
 *
 * Key features:
 * - At-most-once settlement: every release/refund goes through status-guarded
 *   claims in the repository, so retries and races cannot double-move funds.
 * - Complaint window enforcement anchored on worker completion or the
 *   scheduled end of the booking.
 * - Publishes escrow lifecycle events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - context, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/domain"
	"github.com/workhive/booking-service/internal/store"
	"github.com/workhive/booking-service/pkg/rabbitmq"
)

// WalletService provides the core business logic for wallets and escrow.
type WalletService struct {
	wallets  store.WalletRepository
	bookings store.BookingRepository
	producer rabbitmq.Publisher

	platformFeePercent float64
	coolingPeriod      time.Duration
	complaintWindow    time.Duration
}

// NewWalletService creates a new wallet service instance.
func NewWalletService(wallets store.WalletRepository, bookings store.BookingRepository, producer rabbitmq.Publisher, platformFeePercent float64, coolingPeriod, complaintWindow time.Duration) *WalletService {
	return &WalletService{
		wallets:            wallets,
		bookings:           bookings,
		producer:           producer,
		platformFeePercent: platformFeePercent,
		coolingPeriod:      coolingPeriod,
		complaintWindow:    complaintWindow,
	}
}

// GetOrCreateWallet returns the user's wallet, creating it on first touch.
// Safe to call repeatedly; the same wallet comes back every time.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.wallets.GetOrCreateWallet(ctx, userID)
}

// GetWalletSummary aggregates the user's wallet with their open escrow
// exposure.
func (s *WalletService) GetWalletSummary(ctx context.Context, userID uuid.UUID) (*domain.WalletSummary, error) {
	wallet, err := s.wallets.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	activeEscrows, held, err := s.wallets.WalletEscrowStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escrow stats: %w", err)
	}
	return &domain.WalletSummary{
		AvailableBalance:   wallet.Balance,
		TotalEarned:        wallet.TotalEarned,
		TotalSpent:         wallet.TotalSpent,
		ActiveEscrows:      activeEscrows,
		AmountHeldInEscrow: held,
	}, nil
}

// ProcessPayment moves a booking's funds from the client wallet into a new
// escrow hold. Called by the booking flow at confirmation time only; the
// authoritative balance check happens inside the repository, under the row
// lock.
func (s *WalletService) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	fee := req.Amount.PercentOf(s.platformFeePercent)
	holdUntil := time.Now().Add(s.coolingPeriod)

	result, err := s.wallets.ProcessPayment(ctx, req, fee, holdUntil)
	if err != nil {
		return nil, err
	}
	log.Printf("ProcessPayment: held %s in escrow %s for booking %s (fee %s)", req.Amount, result.Escrow.ID, req.BookingID, fee)

	s.publishEscrowEvent(ctx, "escrow.held", result.Escrow)
	return result, nil
}

// ReleaseEscrow settles an escrow in the worker's favor. fromStatuses controls
// which current states the settlement may claim: the client-completion path
// and the auto-release sweep pass held only, complaint resolution passes
// disputed.
func (s *WalletService) ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.Transaction, error) {
	earning, err := s.wallets.ReleaseEscrow(ctx, escrowID, fromStatuses, resolvedBy, notes)
	if err != nil {
		return nil, err
	}
	log.Printf("ReleaseEscrow: escrow %s released, %s credited to worker %s", escrowID, earning.Amount, earning.UserID)

	if escrow, findErr := s.wallets.FindEscrowByID(ctx, escrowID); findErr == nil {
		s.publishEscrowEvent(ctx, "escrow.released", escrow)
	}
	return earning, nil
}

// RefundEscrow settles an escrow in the client's favor, returning the full
// held amount.
func (s *WalletService) RefundEscrow(ctx context.Context, escrowID uuid.UUID, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.Transaction, error) {
	refund, err := s.wallets.RefundEscrow(ctx, escrowID, fromStatuses, resolvedBy, notes)
	if err != nil {
		return nil, err
	}
	log.Printf("RefundEscrow: escrow %s refunded, %s returned to client %s", escrowID, refund.Amount, refund.UserID)

	if escrow, findErr := s.wallets.FindEscrowByID(ctx, escrowID); findErr == nil {
		s.publishEscrowEvent(ctx, "escrow.refunded", escrow)
	}
	return refund, nil
}

// FileComplaint freezes a held escrow under dispute. Only a party to the
// escrow may file, only while the escrow is still held, and only while the
// complaint window is open.
func (s *WalletService) FileComplaint(ctx context.Context, userID uuid.UUID, req domain.ComplaintRequest) (*domain.EscrowHold, error) {
	// 1. Load the escrow and check the filer is a party to it.
	escrow, err := s.wallets.FindEscrowByID(ctx, req.EscrowID)
	if err != nil {
		return nil, err
	}
	if userID != escrow.ClientID && userID != escrow.WorkerID {
		return nil, ErrUnauthorized
	}

	// 2. Complaints only make sense while the funds have not moved.
	if escrow.Status != domain.EscrowHeld {
		if escrow.Status == domain.EscrowDisputed {
			return nil, ErrComplaintNotAllowed
		}
		return nil, store.ErrEscrowAlreadyProcessed
	}

	// 3. Schedule checks against the booking. A complaint needs something to
	// complain about: the worker claimed completion, or the booking ran past
	// its expected end without one.
	booking, err := s.wallets.FindBookingForComplaint(ctx, escrow.BookingID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if booking.WorkerCompletedAt == nil && !IsOverdue(booking, now) {
		return nil, ErrComplaintNotAllowed
	}
	if _, open := ComplaintWindowOpen(booking, s.complaintWindow, now); !open {
		return nil, ErrComplaintWindowExpired
	}

	// 4. Freeze the escrow. The held-only guard in the repository makes this
	// race-safe against a concurrent settlement.
	disputed, err := s.wallets.MarkEscrowDisputed(ctx, escrow.ID, req.Description, now)
	if err != nil {
		return nil, err
	}
	log.Printf("FileComplaint: escrow %s disputed by user %s", escrow.ID, userID)

	// 5. Flag the booking. Best-effort: a booking that already left an active
	// status stays where it is, the frozen escrow is what matters.
	if _, err := s.bookings.MarkBookingDisputed(ctx, escrow.BookingID); err != nil {
		log.Printf("WARN: FileComplaint: could not flag booking %s as disputed: %v", escrow.BookingID, err)
	}

	s.publishEscrowEvent(ctx, "escrow.disputed", disputed)
	return disputed, nil
}

// ResolveComplaint settles a disputed escrow per the admin's instruction.
func (s *WalletService) ResolveComplaint(ctx context.Context, adminID uuid.UUID, resolution domain.ComplaintResolution) (*domain.EscrowHold, error) {
	escrow, err := s.wallets.FindEscrowByID(ctx, resolution.EscrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != domain.EscrowDisputed {
		return nil, ErrComplaintNotAllowed
	}

	disputed := []domain.EscrowStatus{domain.EscrowDisputed}
	switch resolution.Action {
	case domain.ResolutionReleaseToWorker:
		if _, err := s.ReleaseEscrow(ctx, escrow.ID, disputed, &adminID, resolution.ResolutionNotes); err != nil {
			return nil, err
		}
	case domain.ResolutionRefundToClient:
		if _, err := s.RefundEscrow(ctx, escrow.ID, disputed, &adminID, resolution.ResolutionNotes); err != nil {
			return nil, err
		}
	case domain.ResolutionSplit:
		if resolution.WorkerAmount == nil || resolution.ClientRefund == nil {
			return nil, ErrInvalidResolution
		}
		workerAmount, clientRefund := *resolution.WorkerAmount, *resolution.ClientRefund
		if workerAmount < 0 || clientRefund < 0 || workerAmount+clientRefund != escrow.Amount {
			return nil, ErrInvalidResolution
		}
		settled, err := s.wallets.ResolveEscrowSplit(ctx, escrow.ID, workerAmount, clientRefund, adminID, resolution.ResolutionNotes)
		if err != nil {
			return nil, err
		}
		log.Printf("ResolveComplaint: escrow %s split, worker %s / client %s", escrow.ID, workerAmount, clientRefund)
		s.publishEscrowEvent(ctx, "escrow.resolved", settled)
		return settled, nil
	default:
		return nil, ErrInvalidResolution
	}

	log.Printf("ResolveComplaint: escrow %s resolved with action %s by admin %s", escrow.ID, resolution.Action, adminID)
	settled, err := s.wallets.FindEscrowByID(ctx, escrow.ID)
	if err != nil {
		return nil, err
	}
	s.publishEscrowEvent(ctx, "escrow.resolved", settled)
	return settled, nil
}

// ReleaseEligibleEscrows settles every held, complaint-free escrow whose
// cooling period elapsed. Invoked by the scheduler; one failing escrow does
// not stop the sweep.
func (s *WalletService) ReleaseEligibleEscrows(ctx context.Context, now time.Time) (int, error) {
	eligible, err := s.wallets.ListEscrowsReadyForRelease(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list eligible escrows: %w", err)
	}

	released := 0
	held := []domain.EscrowStatus{domain.EscrowHeld}
	for i := range eligible {
		escrow := &eligible[i]
		if _, err := s.ReleaseEscrow(ctx, escrow.ID, held, nil, nil); err != nil {
			// A complaint or a manual settlement can land between the listing
			// and the claim; both are fine to skip.
			log.Printf("WARN: ReleaseEligibleEscrows: escrow %s skipped: %v", escrow.ID, err)
			continue
		}
		released++
	}
	return released, nil
}

// GetEscrows lists escrow holds visible to the requester. Non-admin users are
// scoped to escrows they are a party to.
func (s *WalletService) GetEscrows(ctx context.Context, userID uuid.UUID, role string, filters domain.EscrowFilters) ([]domain.EscrowHold, int, error) {
	switch role {
	case "admin":
		// Admins see everything the filters ask for.
	case "worker":
		filters.WorkerID = &userID
		filters.ClientID = nil
	default:
		filters.ClientID = &userID
		filters.WorkerID = nil
	}
	return s.wallets.ListEscrows(ctx, filters)
}

// GetTransactions lists ledger entries visible to the requester.
func (s *WalletService) GetTransactions(ctx context.Context, userID uuid.UUID, role string, filters domain.TransactionFilters) ([]domain.Transaction, int, error) {
	if role != "admin" {
		filters.UserID = &userID
	}
	return s.wallets.ListTransactions(ctx, filters)
}

// GetEscrow returns a single escrow to a party or an admin.
func (s *WalletService) GetEscrow(ctx context.Context, userID uuid.UUID, role string, escrowID uuid.UUID) (*domain.EscrowHold, error) {
	escrow, err := s.wallets.FindEscrowByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if role != "admin" && userID != escrow.ClientID && userID != escrow.WorkerID {
		return nil, ErrUnauthorized
	}
	return escrow, nil
}

// escrowByID is an internal read used by the booking flow's settlement
// idempotency checks.
func (s *WalletService) escrowByID(ctx context.Context, escrowID uuid.UUID) (*domain.EscrowHold, error) {
	return s.wallets.FindEscrowByID(ctx, escrowID)
}

func (s *WalletService) publishEscrowEvent(ctx context.Context, routingKey string, escrow *domain.EscrowHold) {
	if s.producer == nil {
		return
	}
	err := s.producer.PublishEscrowEvent(ctx, routingKey, rabbitmq.EscrowEvent{
		EscrowID:  escrow.ID,
		BookingID: escrow.BookingID,
		ClientID:  escrow.ClientID,
		WorkerID:  escrow.WorkerID,
		Amount:    int64(escrow.Amount),
		Status:    string(escrow.Status),
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("WARN: failed to publish %s event for escrow %s: %v", routingKey, escrow.ID, err)
	}
}
