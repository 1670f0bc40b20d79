package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/domain"
)

func TestSettlementMissSentinels(t *testing.T) {
	t.Run("missing escrow maps to not found", func(t *testing.T) {
		if err := settlementMiss(false); !errors.Is(err, ErrEscrowNotFound) {
			t.Fatalf("expected ErrEscrowNotFound, got %v", err)
		}
	})

	t.Run("existing escrow maps to already processed", func(t *testing.T) {
		// The guarded claim matched zero rows but the escrow exists: another
		// settlement won the race, and the loser must see exactly this error.
		if err := settlementMiss(true); !errors.Is(err, ErrEscrowAlreadyProcessed) {
			t.Fatalf("expected ErrEscrowAlreadyProcessed, got %v", err)
		}
	})
}

func TestReleaseLedgerEntriesWithFee(t *testing.T) {
	escrow := &domain.EscrowHold{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		WorkerID:     uuid.New(),
		BookingID:    uuid.New(),
		Amount:       80000,
		PlatformFee:  8000,
		WorkerAmount: 72000,
	}
	wallet := &domain.Wallet{ID: uuid.New(), UserID: escrow.WorkerID, Balance: 5000}

	earning, fee, newBalance := releaseLedgerEntries(escrow, wallet)

	if newBalance != 77000 {
		t.Fatalf("expected new balance 77000, got %d", newBalance)
	}
	if earning.Type != domain.TxEarning || earning.Amount != 80000 {
		t.Fatalf("earning must credit the gross amount: type=%s amount=%d", earning.Type, earning.Amount)
	}
	if earning.BalanceBefore != 5000 || earning.BalanceAfter != 85000 {
		t.Fatalf("earning balance chain broken: %d -> %d", earning.BalanceBefore, earning.BalanceAfter)
	}
	if fee == nil {
		t.Fatal("expected a fee entry for a non-zero platform fee")
	}
	if fee.Type != domain.TxFee || fee.Amount != -8000 {
		t.Fatalf("fee must debit the withheld remainder: type=%s amount=%d", fee.Type, fee.Amount)
	}
	if fee.BalanceBefore != earning.BalanceAfter || fee.BalanceAfter != newBalance {
		t.Fatalf("fee must chain onto the earning: %d -> %d (new balance %d)", fee.BalanceBefore, fee.BalanceAfter, newBalance)
	}
	if earning.Amount+fee.Amount != escrow.WorkerAmount {
		t.Fatalf("ledger rows must net to the worker amount: %d", earning.Amount+fee.Amount)
	}
	if *earning.EscrowID != escrow.ID || *fee.EscrowID != escrow.ID {
		t.Fatal("both entries must link the escrow")
	}
}

func TestReleaseLedgerEntriesWithoutFee(t *testing.T) {
	escrow := &domain.EscrowHold{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		WorkerID:     uuid.New(),
		BookingID:    uuid.New(),
		Amount:       72000,
		PlatformFee:  0,
		WorkerAmount: 72000,
	}
	wallet := &domain.Wallet{ID: uuid.New(), UserID: escrow.WorkerID, Balance: 5000}

	earning, fee, newBalance := releaseLedgerEntries(escrow, wallet)

	if fee != nil {
		t.Fatalf("no fee entry expected at zero fee, got %+v", fee)
	}
	if earning.Amount != 72000 || newBalance != 77000 {
		t.Fatalf("expected plain credit of 72000 onto 5000, got amount=%d balance=%d", earning.Amount, newBalance)
	}
	if earning.BalanceAfter != newBalance {
		t.Fatalf("single-entry chain must land on the new balance: %d vs %d", earning.BalanceAfter, newBalance)
	}
}

func TestSplitSettlementStatus(t *testing.T) {
	if got := splitSettlementStatus(0); got != domain.EscrowRefunded {
		t.Fatalf("a zero worker share is a refund, got %s", got)
	}
	if got := splitSettlementStatus(1); got != domain.EscrowReleased {
		t.Fatalf("any worker share is a release, got %s", got)
	}
}

func TestWalletInsertIsConflictTolerant(t *testing.T) {
	// Both creation paths (lazy get-or-create and the in-transaction lock)
	// share this statement; the conflict target is what makes concurrent
	// first touches converge on one row per user.
	if !strings.Contains(walletInsertSQL, "ON CONFLICT (user_id) DO NOTHING") {
		t.Fatalf("wallet insert must tolerate concurrent creation:\n%s", walletInsertSQL)
	}
}

func TestAsStringsWidensEnumSlices(t *testing.T) {
	got := asStrings([]domain.EscrowStatus{domain.EscrowHeld, domain.EscrowDisputed})
	if len(got) != 2 || got[0] != "held" || got[1] != "disputed" {
		t.Fatalf("unexpected widening: %v", got)
	}
}
