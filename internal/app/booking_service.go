/**
 * @description
 * This file contains the booking lifecycle business logic for the
 * booking-service. The `BookingService` struct orchestrates the booking state
 * machine, coordinating between the booking repository, the wallet service
 * (for escrow money movement) and the message broker.
 *
 * Key features:
 * - Price quoting with the same math used at creation time.
 * - At-most-once confirmation: the booking is claimed before payment runs, so
 *   a double-submitted confirm charges the client exactly once.
 * - Escrow settlement strictly precedes terminal status changes: client
 *   completion releases before advancing, cancellation refunds before
 *   cancelling, so a crash can never strand settled money on an active row.
 * - Publishes booking lifecycle events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - context, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
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

// BookingService provides the core business logic for the booking lifecycle.
type BookingService struct {
	repo     store.BookingRepository
	wallets  *WalletService
	producer rabbitmq.Publisher
}

// NewBookingService creates a new booking service instance.
func NewBookingService(repo store.BookingRepository, wallets *WalletService, producer rabbitmq.Publisher) *BookingService {
	return &BookingService{
		repo:     repo,
		wallets:  wallets,
		producer: producer,
	}
}

// CalculateBookingPrice quotes a prospective booking and reports whether the
// client can currently afford it. Pure read; the affordability answer is
// advisory, the binding check happens at confirmation.
func (s *BookingService) CalculateBookingPrice(ctx context.Context, clientID, workerServiceID uuid.UUID, bookingType domain.BookingType, durationHours int) (*domain.BookingCalculation, error) {
	if !bookingType.Valid() {
		return nil, ErrInvalidBookingType
	}
	if durationHours <= 0 {
		return nil, ErrInvalidDuration
	}

	ws, err := s.repo.FindWorkerServiceByID(ctx, workerServiceID)
	if err != nil {
		return nil, err
	}
	if !ws.IsActive {
		return nil, ErrWorkerServiceInactive
	}
	if ws.Pricing == nil {
		return nil, ErrWorkerServiceUnpriced
	}

	quote := CalculateQuote(*ws.Pricing, bookingType, durationHours)

	wallet, err := s.wallets.GetOrCreateWallet(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client wallet: %w", err)
	}

	return &domain.BookingCalculation{
		HourlyRate:      quote.HourlyRate,
		TotalAmount:     quote.TotalAmount,
		DiscountPercent: quote.DiscountPercent,
		FinalAmount:     quote.FinalAmount,
		CanAfford:       wallet.Balance >= quote.FinalAmount,
		ClientBalance:   wallet.Balance,
		RequiredAmount:  quote.FinalAmount,
	}, nil
}

// CreateBooking validates and persists a new booking in
// pending_worker_confirmation. No money moves here; funds are only checked so
// obviously unaffordable bookings fail fast.
func (s *BookingService) CreateBooking(ctx context.Context, clientID uuid.UUID, req domain.CreateBookingRequest) (*domain.Booking, error) {
	log.Printf("CreateBooking: client %s booking worker profile %s service %s", clientID, req.WorkerID, req.WorkerServiceID)

	// 1. Validate the shape of the request.
	if !req.BookingType.Valid() {
		return nil, ErrInvalidBookingType
	}
	if req.DurationHours <= 0 {
		return nil, ErrInvalidDuration
	}
	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if !startDate.After(time.Now()) {
		return nil, fmt.Errorf("%w: start date must be in the future", ErrInvalidDate)
	}
	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		if !parsed.After(startDate) {
			return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidDate)
		}
		endDate = &parsed
	}

	// 2. Resolve the worker. The UI sends the worker_profiles id; bookings
	// reference the underlying account.
	workerProfile, err := s.repo.FindWorkerProfileByID(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if workerProfile.UserID == clientID {
		return nil, ErrSelfBooking
	}
	workerUser, err := s.repo.FindUserProfileByID(ctx, workerProfile.UserID)
	if err != nil {
		return nil, err
	}
	if workerUser.Role != "worker" {
		return nil, ErrNotAWorker
	}
	if workerUser.Status == "banned" {
		return nil, ErrWorkerBanned
	}

	// 3. Validate the service and its ownership.
	ws, err := s.repo.FindWorkerServiceByID(ctx, req.WorkerServiceID)
	if err != nil {
		return nil, err
	}
	if ws.WorkerProfileID != workerProfile.ID {
		return nil, ErrWorkerServiceMismatch
	}
	if !ws.IsActive {
		return nil, ErrWorkerServiceInactive
	}
	if ws.Pricing == nil {
		return nil, ErrWorkerServiceUnpriced
	}

	// 4. Price the booking and fail fast on obviously insufficient funds. The
	// binding check re-runs under lock at confirmation.
	quote := CalculateQuote(*ws.Pricing, req.BookingType, req.DurationHours)
	wallet, err := s.wallets.GetOrCreateWallet(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client wallet: %w", err)
	}
	if wallet.Balance < quote.FinalAmount {
		return nil, store.ErrInsufficientBalance
	}

	// 5. Denormalize counterparty display data into the metadata blob.
	metadata := map[string]interface{}{}
	if profiles, err := s.repo.FindUserProfilesByIDs(ctx, []uuid.UUID{clientID, workerProfile.UserID}); err == nil {
		if client, ok := profiles[clientID]; ok {
			putProfileMetadata(metadata, "client", client)
		}
		if worker, ok := profiles[workerProfile.UserID]; ok {
			putProfileMetadata(metadata, "worker", worker)
		}
	} else {
		log.Printf("WARN: CreateBooking: could not load display profiles: %v", err)
	}

	booking := &domain.Booking{
		ID:                  uuid.New(),
		ClientID:            clientID,
		WorkerID:            workerProfile.UserID,
		WorkerServiceID:     ws.ID,
		ServiceID:           ws.ServiceID,
		BookingType:         req.BookingType,
		DurationHours:       req.DurationHours,
		HourlyRate:          quote.HourlyRate,
		TotalAmount:         quote.TotalAmount,
		DiscountPercent:     quote.DiscountPercent,
		FinalAmount:         quote.FinalAmount,
		StartDate:           startDate,
		EndDate:             endDate,
		Location:            req.Location,
		SpecialInstructions: req.SpecialInstructions,
		Status:              domain.BookingPendingWorkerConfirmation,
		Metadata:            metadata,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	log.Printf("CreateBooking: booking %s created for %s", booking.ID, booking.FinalAmount)

	s.publishBookingEvent(ctx, "booking.created", booking)
	return booking, nil
}

// ConfirmBooking is the worker accepting the job. Payment runs exactly once:
// the claim is taken first, and released again if payment fails, so a retry
// after a payment failure is possible but a concurrent double-confirm is not.
func (s *BookingService) ConfirmBooking(ctx context.Context, workerID, bookingID uuid.UUID) (*domain.Booking, error) {
	log.Printf("ConfirmBooking: worker %s confirming booking %s", workerID, bookingID)

	// 1. Ownership and status pre-checks for precise errors; the claim below
	// re-checks both atomically.
	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.WorkerID != workerID {
		return nil, ErrUnauthorized
	}
	if booking.Status != domain.BookingPendingWorkerConfirmation {
		return nil, store.ErrBookingStateConflict
	}

	// 2. Claim the booking for confirmation.
	claimed, err := s.repo.ClaimBookingForConfirmation(ctx, bookingID, workerID)
	if err != nil {
		return nil, err
	}

	// 3. Move the client's funds into escrow.
	result, err := s.wallets.ProcessPayment(ctx, domain.PaymentRequest{
		ClientID:    claimed.ClientID,
		WorkerID:    claimed.WorkerID,
		BookingID:   claimed.ID,
		Amount:      claimed.FinalAmount,
		Description: fmt.Sprintf("Payment for booking %s", claimed.ID),
	})
	if err != nil {
		log.Printf("ConfirmBooking: payment failed for booking %s: %v", bookingID, err)
		if releaseErr := s.repo.ReleaseBookingConfirmationClaim(ctx, bookingID); releaseErr != nil {
			log.Printf("CRITICAL: ConfirmBooking: could not release confirmation claim for booking %s: %v", bookingID, releaseErr)
		}
		return nil, err
	}

	// 4. Finalize the transition with the escrow linkage.
	confirmed, err := s.repo.MarkBookingConfirmed(ctx, bookingID, result.Escrow.ID, result.Transaction.ID)
	if err != nil {
		// Money already moved; never roll the payment back here. The escrow
		// stays held and is recoverable through the complaint/refund path.
		log.Printf("CRITICAL: ConfirmBooking: booking %s paid (escrow %s) but status update failed: %v", bookingID, result.Escrow.ID, err)
		return nil, fmt.Errorf("failed to finalize confirmation: %w", err)
	}
	log.Printf("ConfirmBooking: booking %s confirmed, escrow %s", bookingID, result.Escrow.ID)

	s.publishBookingEvent(ctx, "booking.confirmed", confirmed)
	return confirmed, nil
}

// DeclineBooking is the worker rejecting a pending booking. Terminal; no money
// ever moved for this booking.
func (s *BookingService) DeclineBooking(ctx context.Context, workerID, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.WorkerID != workerID {
		return nil, ErrUnauthorized
	}

	declined, err := s.repo.MarkBookingDeclined(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	log.Printf("DeclineBooking: booking %s declined by worker %s", bookingID, workerID)

	s.publishBookingEvent(ctx, "booking.declined", declined)
	return declined, nil
}

// WorkerCompleteBooking records the worker's claim that the work is done and
// stamps the time that anchors the complaint window.
func (s *BookingService) WorkerCompleteBooking(ctx context.Context, workerID, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.WorkerID != workerID {
		return nil, ErrUnauthorized
	}

	completed, err := s.repo.MarkBookingWorkerCompleted(ctx, bookingID, time.Now())
	if err != nil {
		return nil, err
	}
	log.Printf("WorkerCompleteBooking: booking %s marked complete by worker %s", bookingID, workerID)

	s.publishBookingEvent(ctx, "booking.worker_completed", completed)
	return completed, nil
}

// ClientCompleteBooking is the client accepting the finished work. The escrow
// release commits first; the booking only advances to client_completed once
// the worker has actually been paid.
func (s *BookingService) ClientCompleteBooking(ctx context.Context, clientID, bookingID uuid.UUID) (*domain.Booking, error) {
	log.Printf("ClientCompleteBooking: client %s completing booking %s", clientID, bookingID)

	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != clientID {
		return nil, ErrUnauthorized
	}
	if booking.Status != domain.BookingWorkerCompleted {
		return nil, store.ErrBookingStateConflict
	}
	if booking.EscrowID == nil {
		return nil, ErrMissingEscrow
	}

	// 1. Pay the worker. Held-only guard: if the sweep or an admin already
	// released this escrow, treat that as done and just advance the status.
	held := []domain.EscrowStatus{domain.EscrowHeld}
	if _, err := s.wallets.ReleaseEscrow(ctx, *booking.EscrowID, held, nil, nil); err != nil {
		if err == store.ErrEscrowAlreadyProcessed {
			escrow, findErr := s.wallets.escrowByID(ctx, *booking.EscrowID)
			if findErr != nil || escrow.Status != domain.EscrowReleased {
				return nil, err
			}
			log.Printf("ClientCompleteBooking: escrow %s already released, advancing booking %s", *booking.EscrowID, bookingID)
		} else {
			return nil, err
		}
	}

	// 2. Advance the booking.
	completed, err := s.repo.MarkBookingClientCompleted(ctx, bookingID, time.Now())
	if err != nil {
		log.Printf("CRITICAL: ClientCompleteBooking: escrow %s released but booking %s not advanced: %v", *booking.EscrowID, bookingID, err)
		return nil, err
	}

	s.publishBookingEvent(ctx, "booking.client_completed", completed)
	return completed, nil
}

// CancelBooking cancels an active booking. When an escrow is already holding
// the client's money, the refund commits before the booking is marked
// cancelled; a crash in the gap leaves an active booking with refunded funds,
// which a retry resolves, never the reverse.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID, reason *string) (*domain.Booking, error) {
	log.Printf("CancelBooking: user %s cancelling booking %s", userID, bookingID)

	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != userID && booking.WorkerID != userID {
		return nil, ErrUnauthorized
	}
	switch booking.Status {
	case domain.BookingPendingWorkerConfirmation, domain.BookingWorkerConfirmed, domain.BookingInProgress:
	default:
		return nil, store.ErrBookingStateConflict
	}

	// 1. Refund first when money is held. A disputed escrow cannot be
	// cancelled around; the complaint resolution owns those funds.
	if booking.EscrowID != nil {
		held := []domain.EscrowStatus{domain.EscrowHeld}
		if _, err := s.wallets.RefundEscrow(ctx, *booking.EscrowID, held, nil, reason); err != nil {
			if err != store.ErrEscrowAlreadyProcessed {
				return nil, err
			}
			escrow, findErr := s.wallets.escrowByID(ctx, *booking.EscrowID)
			if findErr != nil || escrow.Status != domain.EscrowRefunded {
				return nil, err
			}
			log.Printf("CancelBooking: escrow %s already refunded, cancelling booking %s", *booking.EscrowID, bookingID)
		}
	}

	// 2. Mark cancelled.
	cancelled, err := s.repo.MarkBookingCancelled(ctx, bookingID, userID, time.Now(), reason)
	if err != nil {
		if booking.EscrowID != nil {
			log.Printf("CRITICAL: CancelBooking: escrow %s refunded but booking %s not cancelled: %v", *booking.EscrowID, bookingID, err)
		}
		return nil, err
	}

	s.publishBookingEvent(ctx, "booking.cancelled", cancelled)
	return cancelled, nil
}

// GetBooking returns a single booking to one of its parties or an admin.
func (s *BookingService) GetBooking(ctx context.Context, userID uuid.UUID, role string, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if role != "admin" && booking.ClientID != userID && booking.WorkerID != userID {
		return nil, ErrUnauthorized
	}
	return booking, nil
}

// GetBookings lists bookings visible to the requester, with counterparty
// display data backfilled into metadata for rows created before
// denormalization existed. The backfill is best-effort; a failed profile read
// never fails the listing.
func (s *BookingService) GetBookings(ctx context.Context, userID uuid.UUID, role string, filters domain.BookingFilters) ([]domain.Booking, int, error) {
	switch role {
	case "admin":
	case "worker":
		filters.WorkerID = &userID
		filters.ClientID = nil
	default:
		filters.ClientID = &userID
		filters.WorkerID = nil
	}

	bookings, total, err := s.repo.ListBookings(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	s.backfillMetadata(ctx, bookings)
	return bookings, total, nil
}

func (s *BookingService) backfillMetadata(ctx context.Context, bookings []domain.Booking) {
	var missing []uuid.UUID
	for i := range bookings {
		if _, ok := bookings[i].Metadata["client_name"]; !ok {
			missing = append(missing, bookings[i].ClientID)
		}
		if _, ok := bookings[i].Metadata["worker_name"]; !ok {
			missing = append(missing, bookings[i].WorkerID)
		}
	}
	if len(missing) == 0 {
		return
	}

	profiles, err := s.repo.FindUserProfilesByIDs(ctx, missing)
	if err != nil {
		log.Printf("WARN: GetBookings: metadata backfill skipped: %v", err)
		return
	}
	for i := range bookings {
		b := &bookings[i]
		if b.Metadata == nil {
			b.Metadata = map[string]interface{}{}
		}
		if _, ok := b.Metadata["client_name"]; !ok {
			if p, found := profiles[b.ClientID]; found {
				putProfileMetadata(b.Metadata, "client", p)
			}
		}
		if _, ok := b.Metadata["worker_name"]; !ok {
			if p, found := profiles[b.WorkerID]; found {
				putProfileMetadata(b.Metadata, "worker", p)
			}
		}
	}
}

func putProfileMetadata(metadata map[string]interface{}, prefix string, p domain.UserProfile) {
	if p.FullName != nil {
		metadata[prefix+"_name"] = *p.FullName
	}
	if p.Email != nil {
		metadata[prefix+"_email"] = *p.Email
	}
	if p.AvatarURL != nil {
		metadata[prefix+"_avatar"] = *p.AvatarURL
	}
}

func (s *BookingService) publishBookingEvent(ctx context.Context, routingKey string, booking *domain.Booking) {
	if s.producer == nil {
		return
	}
	err := s.producer.PublishBookingEvent(ctx, routingKey, rabbitmq.BookingEvent{
		BookingID: booking.ID,
		ClientID:  booking.ClientID,
		WorkerID:  booking.WorkerID,
		Status:    string(booking.Status),
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("WARN: failed to publish %s event for booking %s: %v", routingKey, booking.ID, err)
	}
}
