/**
 * @description
 * PostgreSQL implementation of the WalletRepository interface. This is the
 * financial core of the service: wallets, the append-only transaction ledger
 * and escrow holds.
 *
 * Every mutating method runs inside a single database transaction. Wallet rows
 * are locked with `SELECT ... FOR UPDATE` before any balance arithmetic, and
 * escrow status transitions are claimed with status-guarded updates, so two
 * concurrent settlements of the same escrow produce exactly one winner.
 *
 * @dependencies
 * - context, fmt, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for transactional operations.
 * - internal/domain: Contains the wallet, transaction and escrow models.
 */

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/workhive/booking-service/internal/domain"
)

const escrowColumns = `
	id, client_id, worker_id, booking_id, amount_cents, platform_fee_cents,
	worker_amount_cents, status, payment_transaction_id, release_transaction_id,
	has_complaint, complaint_description, complaint_filed_at, resolution_notes,
	resolved_by, hold_until, created_at, released_at`

const transactionColumns = `
	id, wallet_id, user_id, type, amount_cents, balance_before_cents,
	balance_after_cents, status, escrow_id, booking_id, related_user_id,
	COALESCE(description, ''), created_at, completed_at, failed_at`

// PostgresWalletRepository is the concrete PostgreSQL implementation of
// WalletRepository.
type PostgresWalletRepository struct {
	db *pgxpool.Pool
}

// NewPostgresWalletRepository creates a new instance of PostgresWalletRepository.
func NewPostgresWalletRepository(db *pgxpool.Pool) *PostgresWalletRepository {
	return &PostgresWalletRepository{db: db}
}

func scanEscrow(row rowScanner) (*domain.EscrowHold, error) {
	var e domain.EscrowHold
	err := row.Scan(
		&e.ID, &e.ClientID, &e.WorkerID, &e.BookingID, &e.Amount,
		&e.PlatformFee, &e.WorkerAmount, &e.Status, &e.PaymentTransactionID,
		&e.ReleaseTransactionID, &e.HasComplaint, &e.ComplaintDescription,
		&e.ComplaintFiledAt, &e.ResolutionNotes, &e.ResolvedBy, &e.HoldUntil,
		&e.CreatedAt, &e.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.WalletID, &t.UserID, &t.Type, &t.Amount, &t.BalanceBefore,
		&t.BalanceAfter, &t.Status, &t.EscrowID, &t.BookingID, &t.RelatedUserID,
		&t.Description, &t.CreatedAt, &t.CompletedAt, &t.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// walletInsertSQL is the single wallet-creation statement. Every creation path
// goes through it: the conflict target on user_id makes concurrent first
// touches converge on the same row instead of erroring.
const walletInsertSQL = `
	INSERT INTO wallets (id, user_id, balance_cents, total_earned_cents, total_spent_cents, status)
	VALUES ($1, $2, 0, 0, 0, 'active')
	ON CONFLICT (user_id) DO NOTHING
`

// GetOrCreateWallet returns the user's wallet, creating an empty active wallet
// on first touch.
func (r *PostgresWalletRepository) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	if _, err := r.db.Exec(ctx, walletInsertSQL, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return r.FindWalletByUserID(ctx, userID)
}

// FindWalletByUserID retrieves a wallet by its owner.
func (r *PostgresWalletRepository) FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	query := `
		SELECT id, user_id, balance_cents, total_earned_cents, total_spent_cents, status, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.TotalEarned, &w.TotalSpent,
		&w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// lockWallet reads a wallet row FOR UPDATE inside tx, creating the row first
// if the user has never had one (a worker can be paid before ever opening
// their wallet).
func (r *PostgresWalletRepository) lockWallet(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	if _, err := tx.Exec(ctx, walletInsertSQL, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet exists: %w", err)
	}

	var w domain.Wallet
	query := `
		SELECT id, user_id, balance_cents, total_earned_cents, total_spent_cents, status, created_at, updated_at
		FROM wallets WHERE user_id = $1 FOR UPDATE
	`
	err := tx.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.TotalEarned, &w.TotalSpent,
		&w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// insertLedgerEntry writes one completed transaction row inside tx.
func insertLedgerEntry(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, wallet_id, user_id, type, amount_cents, balance_before_cents,
			balance_after_cents, status, escrow_id, booking_id, related_user_id,
			description, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'completed', $8, $9, $10, $11, NOW())
		RETURNING created_at, completed_at
	`
	t.Status = domain.TxCompleted
	return tx.QueryRow(ctx, query,
		t.ID, t.WalletID, t.UserID, t.Type, t.Amount, t.BalanceBefore,
		t.BalanceAfter, t.EscrowID, t.BookingID, t.RelatedUserID,
		nullableString(t.Description),
	).Scan(&t.CreatedAt, &t.CompletedAt)
}

func applyBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance, earnedDelta, spentDelta domain.Cents) error {
	query := `
		UPDATE wallets
		SET balance_cents = $2,
		    total_earned_cents = total_earned_cents + $3,
		    total_spent_cents = GREATEST(total_spent_cents + $4, 0),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := tx.Exec(ctx, query, walletID, balance, earnedDelta, spentDelta)
	return err
}

// ProcessPayment atomically debits the client wallet and opens an escrow hold.
// The balance check happens here, under the row lock; any earlier affordability
// check was advisory only.
func (r *PostgresWalletRepository) ProcessPayment(ctx context.Context, req domain.PaymentRequest, platformFee domain.Cents, holdUntil time.Time) (*domain.PaymentResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the client wallet. Authoritative balance and status check.
	wallet, err := r.lockWallet(ctx, tx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if wallet.Status != domain.WalletActive {
		return nil, ErrWalletFrozen
	}
	if wallet.Balance < req.Amount {
		return nil, ErrInsufficientBalance
	}

	escrowID := uuid.New()
	paymentTxID := uuid.New()
	newBalance := wallet.Balance - req.Amount

	// 2. Debit the client.
	if err := applyBalance(ctx, tx, wallet.ID, newBalance, 0, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to debit client wallet: %w", err)
	}

	// 3. Payment ledger entry (negative amount, balance chain preserved).
	payment := &domain.Transaction{
		ID:            paymentTxID,
		WalletID:      wallet.ID,
		UserID:        req.ClientID,
		Type:          domain.TxPayment,
		Amount:        -req.Amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  newBalance,
		EscrowID:      &escrowID,
		BookingID:     &req.BookingID,
		RelatedUserID: &req.WorkerID,
		Description:   req.Description,
	}
	if err := insertLedgerEntry(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment transaction: %w", err)
	}

	// 4. Open the escrow hold.
	insertEscrow := `
		INSERT INTO escrow_holds (
			id, client_id, worker_id, booking_id, amount_cents,
			platform_fee_cents, worker_amount_cents, status,
			payment_transaction_id, hold_until
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'held', $8, $9)
		RETURNING ` + escrowColumns
	escrow, err := scanEscrow(tx.QueryRow(ctx, insertEscrow,
		escrowID, req.ClientID, req.WorkerID, req.BookingID, req.Amount,
		platformFee, req.Amount-platformFee, paymentTxID, holdUntil,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create escrow hold: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return &domain.PaymentResult{Escrow: escrow, Transaction: payment}, nil
}

// settlementMiss classifies a zero-row settlement claim: the escrow either
// never existed or another settlement already claimed it.
func settlementMiss(exists bool) error {
	if !exists {
		return ErrEscrowNotFound
	}
	return ErrEscrowAlreadyProcessed
}

// releaseLedgerEntries plans the ledger rows for a release: a gross earning
// credit and, when a platform fee was withheld, a fee debit for the remainder.
// The rows chain exactly onto the wallet's current balance and net out to the
// worker amount.
func releaseLedgerEntries(escrow *domain.EscrowHold, wallet *domain.Wallet) (earning, fee *domain.Transaction, newBalance domain.Cents) {
	newBalance = wallet.Balance + escrow.WorkerAmount
	earning = &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		UserID:        escrow.WorkerID,
		Type:          domain.TxEarning,
		Amount:        escrow.Amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance + escrow.Amount,
		EscrowID:      &escrow.ID,
		BookingID:     &escrow.BookingID,
		RelatedUserID: &escrow.ClientID,
		Description:   fmt.Sprintf("Escrow release for booking %s", escrow.BookingID),
	}
	if escrow.PlatformFee > 0 {
		fee = &domain.Transaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			UserID:        escrow.WorkerID,
			Type:          domain.TxFee,
			Amount:        -escrow.PlatformFee,
			BalanceBefore: wallet.Balance + escrow.Amount,
			BalanceAfter:  newBalance,
			EscrowID:      &escrow.ID,
			BookingID:     &escrow.BookingID,
			Description:   fmt.Sprintf("Platform fee for booking %s", escrow.BookingID),
		}
	}
	return earning, fee, newBalance
}

// splitSettlementStatus picks the terminal status of a split settlement: a
// split that pays the worker nothing is a refund, anything else is a release.
func splitSettlementStatus(workerAmount domain.Cents) domain.EscrowStatus {
	if workerAmount <= 0 {
		return domain.EscrowRefunded
	}
	return domain.EscrowReleased
}

// claimEscrow performs the status-guarded settlement claim inside tx. Zero
// rows means another settlement won (or the escrow never existed); the
// follow-up existence probe picks the right sentinel.
func (r *PostgresWalletRepository) claimEscrow(ctx context.Context, tx pgx.Tx, escrowID uuid.UUID, toStatus domain.EscrowStatus, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.EscrowHold, error) {
	query := `
		UPDATE escrow_holds
		SET status = $2, resolved_by = COALESCE($4, resolved_by),
		    resolution_notes = COALESCE($5, resolution_notes),
		    released_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING ` + escrowColumns
	escrow, err := scanEscrow(tx.QueryRow(ctx, query, escrowID, toStatus, asStrings(fromStatuses), resolvedBy, notes))
	if err == nil {
		return escrow, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	var exists bool
	if probeErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM escrow_holds WHERE id = $1)`, escrowID).Scan(&exists); probeErr != nil {
		return nil, probeErr
	}
	return nil, settlementMiss(exists)
}

// ReleaseEscrow settles an escrow in the worker's favor: the worker amount
// (held amount minus platform fee) is credited to the worker's wallet and the
// escrow moves to released.
func (r *PostgresWalletRepository) ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Claim the escrow. Losers of a settlement race stop here.
	escrow, err := r.claimEscrow(ctx, tx, escrowID, domain.EscrowReleased, fromStatuses, resolvedBy, notes)
	if err != nil {
		return nil, err
	}

	// 2. Credit the worker under lock.
	wallet, err := r.lockWallet(ctx, tx, escrow.WorkerID)
	if err != nil {
		return nil, err
	}
	earning, fee, newBalance := releaseLedgerEntries(escrow, wallet)
	if err := applyBalance(ctx, tx, wallet.ID, newBalance, escrow.WorkerAmount, 0); err != nil {
		return nil, fmt.Errorf("failed to credit worker wallet: %w", err)
	}

	// 3. Ledger entries: gross earning, then the fee debit when one was
	// withheld, linked back onto the escrow.
	if err := insertLedgerEntry(ctx, tx, earning); err != nil {
		return nil, fmt.Errorf("failed to record earning transaction: %w", err)
	}
	if fee != nil {
		if err := insertLedgerEntry(ctx, tx, fee); err != nil {
			return nil, fmt.Errorf("failed to record fee transaction: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE escrow_holds SET release_transaction_id = $2 WHERE id = $1`, escrow.ID, earning.ID); err != nil {
		return nil, fmt.Errorf("failed to link release transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit escrow release: %w", err)
	}
	return earning, nil
}

// RefundEscrow settles an escrow in the client's favor: the full held amount
// (fee included) returns to the client's wallet and the escrow moves to
// refunded.
func (r *PostgresWalletRepository) RefundEscrow(ctx context.Context, escrowID uuid.UUID, fromStatuses []domain.EscrowStatus, resolvedBy *uuid.UUID, notes *string) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	escrow, err := r.claimEscrow(ctx, tx, escrowID, domain.EscrowRefunded, fromStatuses, resolvedBy, notes)
	if err != nil {
		return nil, err
	}

	wallet, err := r.lockWallet(ctx, tx, escrow.ClientID)
	if err != nil {
		return nil, err
	}
	newBalance := wallet.Balance + escrow.Amount
	// The refund also unwinds the spend counter recorded at payment time.
	if err := applyBalance(ctx, tx, wallet.ID, newBalance, 0, -escrow.Amount); err != nil {
		return nil, fmt.Errorf("failed to credit client wallet: %w", err)
	}

	refund := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		UserID:        escrow.ClientID,
		Type:          domain.TxRefund,
		Amount:        escrow.Amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  newBalance,
		EscrowID:      &escrow.ID,
		BookingID:     &escrow.BookingID,
		RelatedUserID: &escrow.WorkerID,
		Description:   fmt.Sprintf("Escrow refund for booking %s", escrow.BookingID),
	}
	if err := insertLedgerEntry(ctx, tx, refund); err != nil {
		return nil, fmt.Errorf("failed to record refund transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE escrow_holds SET release_transaction_id = $2 WHERE id = $1`, escrow.ID, refund.ID); err != nil {
		return nil, fmt.Errorf("failed to link refund transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit escrow refund: %w", err)
	}
	return refund, nil
}

// ResolveEscrowSplit settles a disputed escrow by paying the worker part of
// the held amount and refunding the rest to the client, in one transaction.
// The caller validates that the two amounts sum to the held amount.
func (r *PostgresWalletRepository) ResolveEscrowSplit(ctx context.Context, escrowID uuid.UUID, workerAmount, clientRefund domain.Cents, resolvedBy uuid.UUID, notes *string) (*domain.EscrowHold, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// A split paying the worker nothing is a refund in all but name; label it
	// as one.
	toStatus := splitSettlementStatus(workerAmount)
	escrow, err := r.claimEscrow(ctx, tx, escrowID, toStatus, []domain.EscrowStatus{domain.EscrowDisputed}, &resolvedBy, notes)
	if err != nil {
		return nil, err
	}

	// Worker side.
	if workerAmount > 0 {
		wallet, err := r.lockWallet(ctx, tx, escrow.WorkerID)
		if err != nil {
			return nil, err
		}
		newBalance := wallet.Balance + workerAmount
		if err := applyBalance(ctx, tx, wallet.ID, newBalance, workerAmount, 0); err != nil {
			return nil, fmt.Errorf("failed to credit worker wallet: %w", err)
		}
		earning := &domain.Transaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			UserID:        escrow.WorkerID,
			Type:          domain.TxEarning,
			Amount:        workerAmount,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  newBalance,
			EscrowID:      &escrow.ID,
			BookingID:     &escrow.BookingID,
			RelatedUserID: &escrow.ClientID,
			Description:   fmt.Sprintf("Dispute settlement for booking %s", escrow.BookingID),
		}
		if err := insertLedgerEntry(ctx, tx, earning); err != nil {
			return nil, fmt.Errorf("failed to record settlement earning: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE escrow_holds SET release_transaction_id = $2 WHERE id = $1`, escrow.ID, earning.ID); err != nil {
			return nil, fmt.Errorf("failed to link settlement transaction: %w", err)
		}
		escrow.ReleaseTransactionID = &earning.ID
	}

	// Client side.
	if clientRefund > 0 {
		wallet, err := r.lockWallet(ctx, tx, escrow.ClientID)
		if err != nil {
			return nil, err
		}
		newBalance := wallet.Balance + clientRefund
		if err := applyBalance(ctx, tx, wallet.ID, newBalance, 0, -clientRefund); err != nil {
			return nil, fmt.Errorf("failed to credit client wallet: %w", err)
		}
		refund := &domain.Transaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			UserID:        escrow.ClientID,
			Type:          domain.TxRefund,
			Amount:        clientRefund,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  newBalance,
			EscrowID:      &escrow.ID,
			BookingID:     &escrow.BookingID,
			RelatedUserID: &escrow.WorkerID,
			Description:   fmt.Sprintf("Dispute partial refund for booking %s", escrow.BookingID),
		}
		if err := insertLedgerEntry(ctx, tx, refund); err != nil {
			return nil, fmt.Errorf("failed to record settlement refund: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit dispute settlement: %w", err)
	}
	escrow.Status = toStatus
	return escrow, nil
}

// MarkEscrowDisputed freezes a held escrow with a complaint. The held-only
// guard means a complaint can never land on an escrow whose funds already
// moved.
func (r *PostgresWalletRepository) MarkEscrowDisputed(ctx context.Context, escrowID uuid.UUID, description string, filedAt time.Time) (*domain.EscrowHold, error) {
	query := `
		UPDATE escrow_holds
		SET status = 'disputed', has_complaint = TRUE,
		    complaint_description = $2, complaint_filed_at = $3
		WHERE id = $1 AND status = 'held'
		RETURNING ` + escrowColumns
	escrow, err := scanEscrow(r.db.QueryRow(ctx, query, escrowID, description, filedAt))
	if err == nil {
		return escrow, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	var exists bool
	if probeErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM escrow_holds WHERE id = $1)`, escrowID).Scan(&exists); probeErr != nil {
		return nil, probeErr
	}
	return nil, settlementMiss(exists)
}

// FindEscrowByID retrieves an escrow hold by its id.
func (r *PostgresWalletRepository) FindEscrowByID(ctx context.Context, escrowID uuid.UUID) (*domain.EscrowHold, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_holds WHERE id = $1`
	escrow, err := scanEscrow(r.db.QueryRow(ctx, query, escrowID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}
	return escrow, nil
}

// ListEscrows returns escrow holds matching the filters, newest first, with
// booking and counterparty display data joined in, plus the total match count.
func (r *PostgresWalletRepository) ListEscrows(ctx context.Context, filters domain.EscrowFilters) ([]domain.EscrowHold, int, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.ClientID != nil {
		conditions = append(conditions, "e.client_id = "+arg(*filters.ClientID))
	}
	if filters.WorkerID != nil {
		conditions = append(conditions, "e.worker_id = "+arg(*filters.WorkerID))
	}
	if len(filters.Status) > 0 {
		conditions = append(conditions, "e.status = ANY("+arg(asStrings(filters.Status))+")")
	}
	if filters.HasComplaint != nil {
		conditions = append(conditions, "e.has_complaint = "+arg(*filters.HasComplaint))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM escrow_holds e"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `
		SELECT e.id, e.client_id, e.worker_id, e.booking_id, e.amount_cents,
		       e.platform_fee_cents, e.worker_amount_cents, e.status,
		       e.payment_transaction_id, e.release_transaction_id,
		       e.has_complaint, e.complaint_description, e.complaint_filed_at,
		       e.resolution_notes, e.resolved_by, e.hold_until, e.created_at,
		       e.released_at,
		       b.booking_type, b.start_date, b.status, s.name,
		       c.full_name, c.email, c.avatar_url,
		       w.full_name, w.email, w.avatar_url
		FROM escrow_holds e
		LEFT JOIN bookings b ON b.id = e.booking_id
		LEFT JOIN services s ON s.id = b.service_id
		LEFT JOIN user_profiles c ON c.id = e.client_id
		LEFT JOIN user_profiles w ON w.id = e.worker_id` + where + `
		ORDER BY e.created_at DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var escrows []domain.EscrowHold
	for rows.Next() {
		var e domain.EscrowHold
		var bookingType *domain.BookingType
		var bookingStart *time.Time
		var bookingStatus *domain.BookingStatus
		var serviceName *string
		var client, worker domain.UserProfile
		err := rows.Scan(
			&e.ID, &e.ClientID, &e.WorkerID, &e.BookingID, &e.Amount,
			&e.PlatformFee, &e.WorkerAmount, &e.Status,
			&e.PaymentTransactionID, &e.ReleaseTransactionID, &e.HasComplaint,
			&e.ComplaintDescription, &e.ComplaintFiledAt, &e.ResolutionNotes,
			&e.ResolvedBy, &e.HoldUntil, &e.CreatedAt, &e.ReleasedAt,
			&bookingType, &bookingStart, &bookingStatus, &serviceName,
			&client.FullName, &client.Email, &client.AvatarURL,
			&worker.FullName, &worker.Email, &worker.AvatarURL,
		)
		if err != nil {
			return nil, 0, err
		}
		if bookingType != nil && bookingStart != nil && bookingStatus != nil {
			e.Booking = &domain.BookingSummary{
				ID:          e.BookingID,
				BookingType: *bookingType,
				StartDate:   *bookingStart,
				Status:      *bookingStatus,
				ServiceName: serviceName,
			}
		}
		client.ID = e.ClientID
		worker.ID = e.WorkerID
		e.Client = &client
		e.Worker = &worker
		escrows = append(escrows, e)
	}
	return escrows, total, rows.Err()
}

// ListEscrowsReadyForRelease returns held, complaint-free escrows whose
// cooling period has elapsed. Consumed by the auto-release sweep.
func (r *PostgresWalletRepository) ListEscrowsReadyForRelease(ctx context.Context, now time.Time) ([]domain.EscrowHold, error) {
	query := `
		SELECT ` + escrowColumns + `
		FROM escrow_holds
		WHERE status = 'held' AND has_complaint = FALSE AND hold_until <= $1
		ORDER BY hold_until ASC
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []domain.EscrowHold
	for rows.Next() {
		escrow, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		escrows = append(escrows, *escrow)
	}
	return escrows, rows.Err()
}

// ListTransactions returns ledger entries matching the filters, newest first,
// plus the total match count.
func (r *PostgresWalletRepository) ListTransactions(ctx context.Context, filters domain.TransactionFilters) ([]domain.Transaction, int, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.UserID != nil {
		conditions = append(conditions, "user_id = "+arg(*filters.UserID))
	}
	if len(filters.Type) > 0 {
		conditions = append(conditions, "type = ANY("+arg(asStrings(filters.Type))+")")
	}
	if len(filters.Status) > 0 {
		conditions = append(conditions, "status = ANY("+arg(asStrings(filters.Status))+")")
	}
	if filters.DateFrom != nil {
		conditions = append(conditions, "created_at >= "+arg(*filters.DateFrom))
	}
	if filters.DateTo != nil {
		conditions = append(conditions, "created_at <= "+arg(*filters.DateTo))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + `
		ORDER BY created_at DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, total, rows.Err()
}

// WalletEscrowStats aggregates the user's open escrow exposure, counting both
// sides (money they hold in escrow as a client and money held for them as a
// worker is intentionally not mixed; this is the client-side hold).
func (r *PostgresWalletRepository) WalletEscrowStats(ctx context.Context, userID uuid.UUID) (int, domain.Cents, error) {
	var count int
	var held domain.Cents
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM escrow_holds
		WHERE client_id = $1 AND status IN ('held', 'disputed')
	`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count, &held); err != nil {
		return 0, 0, err
	}
	return count, held, nil
}

// FindBookingForComplaint reads the booking an escrow points at, for the
// complaint-window computation only.
func (r *PostgresWalletRepository) FindBookingForComplaint(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}
