/**
 * @description
 * Wallet, ledger transaction and escrow hold domain models. The wallet ledger
 * is the financial core of the marketplace: every balance-affecting event is
 * an immutable `Transaction` row, and funds between payment and settlement
 * live in an `EscrowHold`.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletStatus describes whether a wallet may participate in operations.
type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletFrozen WalletStatus = "frozen"
)

// Wallet is one running balance per user. This struct maps directly to the
// `wallets` table.
type Wallet struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	UserID      uuid.UUID    `json:"user_id" db:"user_id"`
	Balance     Cents        `json:"balance" db:"balance_cents"`
	TotalEarned Cents        `json:"total_earned" db:"total_earned_cents"`
	TotalSpent  Cents        `json:"total_spent" db:"total_spent_cents"`
	Status      WalletStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// TransactionType enumerates ledger entry kinds.
type TransactionType string

const (
	TxDeposit       TransactionType = "deposit"
	TxWithdrawal    TransactionType = "withdrawal"
	TxPayment       TransactionType = "payment"
	TxEarning       TransactionType = "earning"
	TxFee           TransactionType = "fee"
	TxRefund        TransactionType = "refund"
	TxEscrowHold    TransactionType = "escrow_hold"
	TxEscrowRelease TransactionType = "escrow_release"
)

// TransactionStatus is the lifecycle status of one ledger entry. Completed
// entries are immutable.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is one immutable ledger entry. Amounts are signed: debits are
// negative, credits positive. For one wallet, balance_after of an entry equals
// balance_before of the next entry in creation order.
type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	WalletID      uuid.UUID         `json:"wallet_id" db:"wallet_id"`
	UserID        uuid.UUID         `json:"user_id" db:"user_id"`
	Type          TransactionType   `json:"type" db:"type"`
	Amount        Cents             `json:"amount" db:"amount_cents"`
	BalanceBefore Cents             `json:"balance_before" db:"balance_before_cents"`
	BalanceAfter  Cents             `json:"balance_after" db:"balance_after_cents"`
	Status        TransactionStatus `json:"status" db:"status"`
	EscrowID      *uuid.UUID        `json:"escrow_id,omitempty" db:"escrow_id"`
	BookingID     *uuid.UUID        `json:"booking_id,omitempty" db:"booking_id"`
	RelatedUserID *uuid.UUID        `json:"related_user_id,omitempty" db:"related_user_id"`
	Description   string            `json:"description,omitempty" db:"description"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	FailedAt      *time.Time        `json:"failed_at,omitempty" db:"failed_at"`
}

// EscrowStatus enumerates the escrow hold state machine:
// held -> {released | refunded | disputed}, disputed -> {released | refunded}.
// All transitions are one-way; no terminal state re-enters held.
type EscrowStatus string

const (
	EscrowHeld      EscrowStatus = "held"
	EscrowReleased  EscrowStatus = "released"
	EscrowRefunded  EscrowStatus = "refunded"
	EscrowDisputed  EscrowStatus = "disputed"
	EscrowCancelled EscrowStatus = "cancelled"
)

// Terminal reports whether the escrow can no longer move funds.
func (s EscrowStatus) Terminal() bool {
	switch s {
	case EscrowReleased, EscrowRefunded, EscrowCancelled:
		return true
	}
	return false
}

// EscrowHold is one in-flight reservation of funds tied to exactly one
// booking: the client's money debited at confirmation, pending release to the
// worker or refund back to the client.
type EscrowHold struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	WorkerID  uuid.UUID `json:"worker_id" db:"worker_id"`
	BookingID uuid.UUID `json:"booking_id" db:"booking_id"`

	Amount       Cents `json:"amount" db:"amount_cents"`
	PlatformFee  Cents `json:"platform_fee" db:"platform_fee_cents"`
	WorkerAmount Cents `json:"worker_amount" db:"worker_amount_cents"`

	Status               EscrowStatus `json:"status" db:"status"`
	PaymentTransactionID uuid.UUID    `json:"payment_transaction_id" db:"payment_transaction_id"`
	ReleaseTransactionID *uuid.UUID   `json:"release_transaction_id,omitempty" db:"release_transaction_id"`

	HasComplaint         bool       `json:"has_complaint" db:"has_complaint"`
	ComplaintDescription *string    `json:"complaint_description,omitempty" db:"complaint_description"`
	ComplaintFiledAt     *time.Time `json:"complaint_filed_at,omitempty" db:"complaint_filed_at"`
	ResolutionNotes      *string    `json:"resolution_notes,omitempty" db:"resolution_notes"`
	ResolvedBy           *uuid.UUID `json:"resolved_by,omitempty" db:"resolved_by"`

	HoldUntil  time.Time  `json:"hold_until" db:"hold_until"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty" db:"released_at"`

	// Best-effort display enrichment, populated by list queries only.
	Booking *BookingSummary `json:"booking,omitempty" db:"-"`
	Client  *UserProfile    `json:"client,omitempty" db:"-"`
	Worker  *UserProfile    `json:"worker,omitempty" db:"-"`
}

// BookingSummary is the slice of a booking attached to escrow listings.
type BookingSummary struct {
	ID          uuid.UUID     `json:"id"`
	BookingType BookingType   `json:"booking_type"`
	StartDate   time.Time     `json:"start_date"`
	Status      BookingStatus `json:"status"`
	ServiceName *string       `json:"service_name,omitempty"`
}

// PaymentRequest asks the wallet service to move a booking's funds from the
// client into escrow. It is issued by the booking state machine at
// confirmation time only.
type PaymentRequest struct {
	ClientID    uuid.UUID `json:"client_id"`
	WorkerID    uuid.UUID `json:"worker_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	Amount      Cents     `json:"amount"`
	Description string    `json:"description"`
}

// PaymentResult is the outcome of a successful payment: the created escrow and
// the client's payment ledger entry.
type PaymentResult struct {
	Escrow      *EscrowHold  `json:"escrow"`
	Transaction *Transaction `json:"transaction"`
}

// ComplaintRequest files a dispute against a held escrow.
type ComplaintRequest struct {
	EscrowID    uuid.UUID `json:"escrow_id"`
	Description string    `json:"description"`
}

// ResolutionAction enumerates admin complaint outcomes.
type ResolutionAction string

const (
	ResolutionReleaseToWorker ResolutionAction = "release_to_worker"
	ResolutionRefundToClient  ResolutionAction = "refund_to_client"
	ResolutionSplit           ResolutionAction = "split"
)

// ComplaintResolution is the admin instruction for settling a disputed escrow.
// For ResolutionSplit, WorkerAmount + ClientRefund must equal the held amount.
type ComplaintResolution struct {
	EscrowID        uuid.UUID        `json:"escrow_id"`
	Action          ResolutionAction `json:"action"`
	WorkerAmount    *Cents           `json:"worker_amount,omitempty"`
	ClientRefund    *Cents           `json:"client_refund,omitempty"`
	ResolutionNotes *string          `json:"resolution_notes,omitempty"`
}

// TransactionFilters controls the ledger list query.
type TransactionFilters struct {
	UserID   *uuid.UUID
	Type     []TransactionType
	Status   []TransactionStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// EscrowFilters controls the escrow list query.
type EscrowFilters struct {
	ClientID     *uuid.UUID
	WorkerID     *uuid.UUID
	Status       []EscrowStatus
	HasComplaint *bool
	Page         int
	Limit        int
}

// WalletSummary aggregates a user's wallet view for the UI.
type WalletSummary struct {
	AvailableBalance   Cents `json:"available_balance"`
	TotalEarned        Cents `json:"total_earned"`
	TotalSpent         Cents `json:"total_spent"`
	ActiveEscrows      int   `json:"active_escrows"`
	AmountHeldInEscrow Cents `json:"amount_held_in_escrow"`
}
