package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/domain"
	"github.com/workhive/booking-service/internal/store"
)

func heldEscrow(clientID, workerID uuid.UUID) *domain.EscrowHold {
	return &domain.EscrowHold{
		ID:        uuid.New(),
		ClientID:  clientID,
		WorkerID:  workerID,
		BookingID: uuid.New(),
		Amount:    72000,
		Status:    domain.EscrowHeld,
		HoldUntil: time.Now().Add(72 * time.Hour),
	}
}

func TestProcessPaymentComputesFeeAndHold(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	var gotFee domain.Cents
	var gotHold time.Time
	wallets := &walletRepoStub{
		processPayment: func(ctx context.Context, req domain.PaymentRequest, fee domain.Cents, holdUntil time.Time) (*domain.PaymentResult, error) {
			gotFee = fee
			gotHold = holdUntil
			return &domain.PaymentResult{
				Escrow:      &domain.EscrowHold{ID: uuid.New(), Amount: req.Amount, PlatformFee: fee, WorkerAmount: req.Amount - fee, Status: domain.EscrowHeld},
				Transaction: &domain.Transaction{ID: uuid.New()},
			}, nil
		},
	}
	coolingPeriod := 3 * 24 * time.Hour
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 10, coolingPeriod, 72*time.Hour)

	before := time.Now()
	result, err := svc.ProcessPayment(context.Background(), domain.PaymentRequest{
		ClientID: clientID, WorkerID: workerID, BookingID: uuid.New(), Amount: 10000,
	})
	if err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}
	if gotFee != 1000 {
		t.Fatalf("expected fee 1000 at 10%%, got %d", gotFee)
	}
	if result.Escrow.WorkerAmount != 9000 {
		t.Fatalf("expected worker amount 9000, got %d", result.Escrow.WorkerAmount)
	}
	wantHold := before.Add(coolingPeriod)
	if gotHold.Before(wantHold.Add(-time.Minute)) || gotHold.After(wantHold.Add(time.Minute)) {
		t.Fatalf("hold_until %v not within the cooling period of %v", gotHold, wantHold)
	}
}

func TestProcessPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := NewWalletService(&walletRepoStub{}, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)
	_, err := svc.ProcessPayment(context.Background(), domain.PaymentRequest{Amount: 0})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestFileComplaintWithinWindow(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)
	completedAt := time.Now().Add(-71 * time.Hour)

	var disputedEscrow, disputedBooking bool
	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
		findComplaintBkg: func(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
			return &domain.Booking{
				ID:                escrow.BookingID,
				Status:            domain.BookingWorkerCompleted,
				StartDate:         completedAt.Add(-8 * time.Hour),
				DurationHours:     8,
				WorkerCompletedAt: &completedAt,
			}, nil
		},
		markDisputed: func(ctx context.Context, id uuid.UUID, description string, filedAt time.Time) (*domain.EscrowHold, error) {
			disputedEscrow = true
			e := *escrow
			e.Status = domain.EscrowDisputed
			e.HasComplaint = true
			e.ComplaintDescription = &description
			return &e, nil
		},
	}
	bookings := &bookingRepoStub{
		markDisputed: func(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
			disputedBooking = true
			return &domain.Booking{ID: id, Status: domain.BookingDisputed}, nil
		},
	}
	svc := NewWalletService(wallets, bookings, nil, 0, time.Hour, 72*time.Hour)

	result, err := svc.FileComplaint(context.Background(), clientID, domain.ComplaintRequest{
		EscrowID:    escrow.ID,
		Description: "work was not finished",
	})
	if err != nil {
		t.Fatalf("FileComplaint failed: %v", err)
	}
	if result.Status != domain.EscrowDisputed || !result.HasComplaint {
		t.Fatalf("expected disputed escrow with complaint, got %s", result.Status)
	}
	if !disputedEscrow || !disputedBooking {
		t.Fatalf("both escrow and booking must be flagged, got escrow=%v booking=%v", disputedEscrow, disputedBooking)
	}
}

func TestFileComplaintBeforeOverdueOrCompletion(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)

	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
		findComplaintBkg: func(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
			// Confirmed, starts tomorrow, worker has not completed: there is
			// nothing to complain about yet.
			return &domain.Booking{
				ID:            escrow.BookingID,
				Status:        domain.BookingWorkerConfirmed,
				StartDate:     time.Now().Add(24 * time.Hour),
				DurationHours: 8,
			}, nil
		},
		// No markDisputed hook: freezing the escrow here would panic.
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	_, err := svc.FileComplaint(context.Background(), clientID, domain.ComplaintRequest{
		EscrowID:    escrow.ID,
		Description: "changed my mind",
	})
	if !errors.Is(err, ErrComplaintNotAllowed) {
		t.Fatalf("expected ErrComplaintNotAllowed, got %v", err)
	}
}

func TestFileComplaintOnOverdueBooking(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)

	var disputed bool
	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
		findComplaintBkg: func(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
			// Expected end 8 hours ago, no completion claim: overdue, and the
			// window anchors on the expected end.
			return &domain.Booking{
				ID:            escrow.BookingID,
				Status:        domain.BookingInProgress,
				StartDate:     time.Now().Add(-10 * time.Hour),
				DurationHours: 2,
			}, nil
		},
		markDisputed: func(ctx context.Context, id uuid.UUID, description string, filedAt time.Time) (*domain.EscrowHold, error) {
			disputed = true
			e := *escrow
			e.Status = domain.EscrowDisputed
			e.HasComplaint = true
			return &e, nil
		},
	}
	bookings := &bookingRepoStub{
		markDisputed: func(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
			return &domain.Booking{ID: id, Status: domain.BookingDisputed}, nil
		},
	}
	svc := NewWalletService(wallets, bookings, nil, 0, time.Hour, 72*time.Hour)

	result, err := svc.FileComplaint(context.Background(), clientID, domain.ComplaintRequest{
		EscrowID:    escrow.ID,
		Description: "worker never showed up",
	})
	if err != nil {
		t.Fatalf("FileComplaint failed: %v", err)
	}
	if !disputed || result.Status != domain.EscrowDisputed {
		t.Fatalf("overdue booking must allow the complaint, got disputed=%v status=%s", disputed, result.Status)
	}
}

func TestFileComplaintWindowExpired(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)
	completedAt := time.Now().Add(-73 * time.Hour)

	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
		findComplaintBkg: func(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
			return &domain.Booking{
				ID:                escrow.BookingID,
				Status:            domain.BookingWorkerCompleted,
				StartDate:         completedAt.Add(-8 * time.Hour),
				DurationHours:     8,
				WorkerCompletedAt: &completedAt,
			}, nil
		},
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	_, err := svc.FileComplaint(context.Background(), workerID, domain.ComplaintRequest{
		EscrowID:    escrow.ID,
		Description: "payment dispute",
	})
	if !errors.Is(err, ErrComplaintWindowExpired) {
		t.Fatalf("expected ErrComplaintWindowExpired, got %v", err)
	}
}

func TestFileComplaintNotAParty(t *testing.T) {
	escrow := heldEscrow(uuid.New(), uuid.New())
	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	_, err := svc.FileComplaint(context.Background(), uuid.New(), domain.ComplaintRequest{
		EscrowID:    escrow.ID,
		Description: "not my booking",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFileComplaintSettledEscrow(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)
	escrow.Status = domain.EscrowReleased

	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	_, err := svc.FileComplaint(context.Background(), clientID, domain.ComplaintRequest{
		EscrowID:    escrow.ID,
		Description: "too late",
	})
	if !errors.Is(err, store.ErrEscrowAlreadyProcessed) {
		t.Fatalf("expected ErrEscrowAlreadyProcessed, got %v", err)
	}
}

func TestResolveComplaintSplit(t *testing.T) {
	clientID, workerID, adminID := uuid.New(), uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)
	escrow.Status = domain.EscrowDisputed

	var splitWorker, splitClient domain.Cents
	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
		resolveSplit: func(ctx context.Context, id uuid.UUID, workerAmount, clientRefund domain.Cents, by uuid.UUID, notes *string) (*domain.EscrowHold, error) {
			splitWorker, splitClient = workerAmount, clientRefund
			e := *escrow
			e.Status = domain.EscrowReleased
			return &e, nil
		},
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	workerAmount, clientRefund := domain.Cents(50000), domain.Cents(22000)
	_, err := svc.ResolveComplaint(context.Background(), adminID, domain.ComplaintResolution{
		EscrowID:     escrow.ID,
		Action:       domain.ResolutionSplit,
		WorkerAmount: &workerAmount,
		ClientRefund: &clientRefund,
	})
	if err != nil {
		t.Fatalf("ResolveComplaint failed: %v", err)
	}
	if splitWorker != 50000 || splitClient != 22000 {
		t.Fatalf("split amounts not passed through: worker=%d client=%d", splitWorker, splitClient)
	}
}

func TestResolveComplaintSplitMustSumToHeldAmount(t *testing.T) {
	clientID, workerID := uuid.New(), uuid.New()
	escrow := heldEscrow(clientID, workerID)
	escrow.Status = domain.EscrowDisputed

	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	workerAmount, clientRefund := domain.Cents(50000), domain.Cents(10000) // 60000 != 72000
	_, err := svc.ResolveComplaint(context.Background(), uuid.New(), domain.ComplaintResolution{
		EscrowID:     escrow.ID,
		Action:       domain.ResolutionSplit,
		WorkerAmount: &workerAmount,
		ClientRefund: &clientRefund,
	})
	if !errors.Is(err, ErrInvalidResolution) {
		t.Fatalf("expected ErrInvalidResolution, got %v", err)
	}
}

func TestResolveComplaintRequiresDisputedEscrow(t *testing.T) {
	escrow := heldEscrow(uuid.New(), uuid.New()) // still held

	wallets := &walletRepoStub{
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) { return escrow, nil },
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	_, err := svc.ResolveComplaint(context.Background(), uuid.New(), domain.ComplaintResolution{
		EscrowID: escrow.ID,
		Action:   domain.ResolutionReleaseToWorker,
	})
	if !errors.Is(err, ErrComplaintNotAllowed) {
		t.Fatalf("expected ErrComplaintNotAllowed, got %v", err)
	}
}

func TestReleaseEligibleEscrowsSkipsRacedEscrows(t *testing.T) {
	first := heldEscrow(uuid.New(), uuid.New())
	second := heldEscrow(uuid.New(), uuid.New())

	wallets := &walletRepoStub{
		listReady: func(ctx context.Context, now time.Time) ([]domain.EscrowHold, error) {
			return []domain.EscrowHold{*first, *second}, nil
		},
		releaseEscrow: func(ctx context.Context, id uuid.UUID, from []domain.EscrowStatus, by *uuid.UUID, notes *string) (*domain.Transaction, error) {
			if id == first.ID {
				// A manual settlement won the race for the first escrow.
				return nil, store.ErrEscrowAlreadyProcessed
			}
			return &domain.Transaction{ID: uuid.New(), Amount: second.WorkerAmount}, nil
		},
		findEscrow: func(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) {
			e := *second
			e.Status = domain.EscrowReleased
			return &e, nil
		},
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	released, err := svc.ReleaseEligibleEscrows(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ReleaseEligibleEscrows failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 release, got %d", released)
	}
}

func TestGetWalletSummary(t *testing.T) {
	userID := uuid.New()
	wallets := &walletRepoStub{
		getOrCreateWallet: func(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
			return &domain.Wallet{UserID: id, Balance: 5000, TotalEarned: 20000, TotalSpent: 15000, Status: domain.WalletActive}, nil
		},
		stats: func(ctx context.Context, id uuid.UUID) (int, domain.Cents, error) {
			return 2, 9000, nil
		},
	}
	svc := NewWalletService(wallets, &bookingRepoStub{}, nil, 0, time.Hour, 72*time.Hour)

	summary, err := svc.GetWalletSummary(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetWalletSummary failed: %v", err)
	}
	if summary.AvailableBalance != 5000 || summary.ActiveEscrows != 2 || summary.AmountHeldInEscrow != 9000 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
