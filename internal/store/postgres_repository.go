/**
 * @description
 * This file provides the PostgreSQL implementation of the BookingRepository
 * interface: bookings, the status-guarded transition updates that make every
 * state change race-safe, and the read-only worker/service directory lookups
 * the booking flow validates against.
 *
 * @dependencies
 * - context, encoding/json, errors, fmt, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/workhive/booking-service/internal/domain"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrWorkerNotFound         = errors.New("worker not found")
	ErrWorkerServiceNotFound  = errors.New("worker service not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingStateConflict   = errors.New("booking is not in an allowed status for this transition")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrWalletFrozen           = errors.New("wallet is not active")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrEscrowNotFound         = errors.New("escrow not found")
	ErrEscrowAlreadyProcessed = errors.New("escrow already processed")
)

// confirmationClaimTTL bounds how long a confirmation claim may block other
// confirm attempts before it is treated as abandoned (e.g. the claiming
// process died between claim and payment).
const confirmationClaimTTL = 2 * time.Minute

const bookingColumns = `
	id, client_id, worker_id, worker_service_id, service_id, booking_type,
	duration_hours, hourly_rate_cents, total_amount_cents, discount_percent,
	final_amount_cents, start_date, end_date, COALESCE(location, ''),
	COALESCE(special_instructions, ''), escrow_id, payment_transaction_id,
	status, worker_completed_at, client_completed_at, cancelled_by,
	cancelled_at, cancellation_reason, metadata, created_at, updated_at`

// PostgresRepository is the concrete PostgreSQL implementation of
// BookingRepository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var metadata []byte
	err := row.Scan(
		&b.ID, &b.ClientID, &b.WorkerID, &b.WorkerServiceID, &b.ServiceID,
		&b.BookingType, &b.DurationHours, &b.HourlyRate, &b.TotalAmount,
		&b.DiscountPercent, &b.FinalAmount, &b.StartDate, &b.EndDate,
		&b.Location, &b.SpecialInstructions, &b.EscrowID,
		&b.PaymentTransactionID, &b.Status, &b.WorkerCompletedAt,
		&b.ClientCompletedAt, &b.CancelledBy, &b.CancelledAt,
		&b.CancellationReason, &metadata, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &b.Metadata); err != nil {
			// Display metadata is best-effort; a malformed blob must not fail
			// the read.
			b.Metadata = nil
		}
	}
	return &b, nil
}

// FindUserProfileByID retrieves a user's directory record.
func (r *PostgresRepository) FindUserProfileByID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var p domain.UserProfile
	query := `SELECT id, role, status, email, full_name, avatar_url FROM user_profiles WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.ID, &p.Role, &p.Status, &p.Email, &p.FullName, &p.AvatarURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindUserProfilesByIDs retrieves a batch of directory records keyed by user
// id. Missing ids are simply absent from the map.
func (r *PostgresRepository) FindUserProfilesByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]domain.UserProfile, error) {
	profiles := make(map[uuid.UUID]domain.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	query := `SELECT id, role, status, email, full_name, avatar_url FROM user_profiles WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.ID, &p.Role, &p.Status, &p.Email, &p.FullName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// FindWorkerProfileByID resolves a worker_profiles row. The UI sends
// worker_profiles.id; bookings reference the underlying user id.
func (r *PostgresRepository) FindWorkerProfileByID(ctx context.Context, workerProfileID uuid.UUID) (*domain.WorkerProfile, error) {
	var p domain.WorkerProfile
	query := `SELECT id, user_id FROM worker_profiles WHERE id = $1`
	err := r.db.QueryRow(ctx, query, workerProfileID).Scan(&p.ID, &p.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindWorkerServiceByID retrieves a worker service together with its pricing
// row, when one exists.
func (r *PostgresRepository) FindWorkerServiceByID(ctx context.Context, workerServiceID uuid.UUID) (*domain.WorkerService, error) {
	var ws domain.WorkerService
	var rate *int64
	var daily, weekly, monthly *float64
	query := `
		SELECT ws.id, ws.worker_profile_id, ws.service_id, ws.is_active,
		       p.hourly_rate_cents, p.daily_discount_percent,
		       p.weekly_discount_percent, p.monthly_discount_percent
		FROM worker_services ws
		LEFT JOIN worker_service_prices p ON p.worker_service_id = ws.id
		WHERE ws.id = $1
	`
	err := r.db.QueryRow(ctx, query, workerServiceID).Scan(
		&ws.ID, &ws.WorkerProfileID, &ws.ServiceID, &ws.IsActive,
		&rate, &daily, &weekly, &monthly,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWorkerServiceNotFound
		}
		return nil, err
	}
	if rate != nil {
		ws.Pricing = &domain.ServicePricing{
			HourlyRate:             domain.Cents(*rate),
			DailyDiscountPercent:   daily,
			WeeklyDiscountPercent:  weekly,
			MonthlyDiscountPercent: monthly,
		}
	}
	return &ws, nil
}

// CreateBooking inserts a new booking row and backfills the generated
// timestamps onto the passed struct.
func (r *PostgresRepository) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	var metadata []byte
	if booking.Metadata != nil {
		var err error
		metadata, err = json.Marshal(booking.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode booking metadata: %w", err)
		}
	}

	query := `
		INSERT INTO bookings (
			id, client_id, worker_id, worker_service_id, service_id,
			booking_type, duration_hours, hourly_rate_cents, total_amount_cents,
			discount_percent, final_amount_cents, start_date, end_date,
			location, special_instructions, status, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		booking.ID,
		booking.ClientID,
		booking.WorkerID,
		booking.WorkerServiceID,
		booking.ServiceID,
		booking.BookingType,
		booking.DurationHours,
		booking.HourlyRate,
		booking.TotalAmount,
		booking.DiscountPercent,
		booking.FinalAmount,
		booking.StartDate,
		booking.EndDate,
		nullableString(booking.Location),
		nullableString(booking.SpecialInstructions),
		booking.Status,
		metadata,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

// asStrings widens a slice of string-kind enum values so the driver encodes
// it as a plain text array.
func asStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func nullableString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// FindBookingByID retrieves a booking by its id.
func (r *PostgresRepository) FindBookingByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
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

// ClaimBookingForConfirmation marks a pending booking as being confirmed by
// its worker. The guard on status plus the claim timestamp makes the claim
// exclusive: of two concurrent confirmation attempts exactly one gets the row
// back, the other gets ErrBookingStateConflict. A stale claim (older than the
// TTL) can be re-taken.
func (r *PostgresRepository) ClaimBookingForConfirmation(ctx context.Context, bookingID, workerID uuid.UUID) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET confirmation_claimed_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND worker_id = $2
		  AND status = 'pending_worker_confirmation'
		  AND (confirmation_claimed_at IS NULL OR confirmation_claimed_at < NOW() - make_interval(secs => $3))
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID, workerID, confirmationClaimTTL.Seconds()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingStateConflict
		}
		return nil, err
	}
	return booking, nil
}

// ReleaseBookingConfirmationClaim clears the claim marker after a failed
// payment so the booking can be confirmed again. The status was never changed,
// so the booking is still pending_worker_confirmation.
func (r *PostgresRepository) ReleaseBookingConfirmationClaim(ctx context.Context, bookingID uuid.UUID) error {
	query := `UPDATE bookings SET confirmation_claimed_at = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, bookingID)
	return err
}

// MarkBookingConfirmed finalizes a successful confirmation: records the escrow
// and payment linkage and advances the status.
func (r *PostgresRepository) MarkBookingConfirmed(ctx context.Context, bookingID, escrowID, paymentTransactionID uuid.UUID) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'worker_confirmed', escrow_id = $2,
		    payment_transaction_id = $3, confirmation_claimed_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending_worker_confirmation'
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID, escrowID, paymentTransactionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingStateConflict
		}
		return nil, err
	}
	return booking, nil
}

// MarkBookingDeclined transitions pending_worker_confirmation -> worker_declined.
func (r *PostgresRepository) MarkBookingDeclined(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'worker_declined', updated_at = NOW()
		WHERE id = $1 AND status = 'pending_worker_confirmation'
		RETURNING ` + bookingColumns
	return r.guardedTransition(ctx, query, bookingID)
}

// MarkBookingWorkerCompleted transitions {worker_confirmed, in_progress} ->
// worker_completed and stamps the completion time that anchors the complaint
// window.
func (r *PostgresRepository) MarkBookingWorkerCompleted(ctx context.Context, bookingID uuid.UUID, completedAt time.Time) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'worker_completed', worker_completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('worker_confirmed', 'in_progress')
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID, completedAt))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingStateConflict
		}
		return nil, err
	}
	return booking, nil
}

// MarkBookingClientCompleted transitions worker_completed -> client_completed.
// Called only after the escrow release committed.
func (r *PostgresRepository) MarkBookingClientCompleted(ctx context.Context, bookingID uuid.UUID, completedAt time.Time) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'client_completed', client_completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'worker_completed'
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID, completedAt))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingStateConflict
		}
		return nil, err
	}
	return booking, nil
}

// MarkBookingCancelled transitions a cancellable booking to cancelled and
// records who cancelled, when and why.
func (r *PostgresRepository) MarkBookingCancelled(ctx context.Context, bookingID, cancelledBy uuid.UUID, cancelledAt time.Time, reason *string) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_by = $2, cancelled_at = $3,
		    cancellation_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending_worker_confirmation', 'worker_confirmed', 'in_progress')
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID, cancelledBy, cancelledAt, reason))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingStateConflict
		}
		return nil, err
	}
	return booking, nil
}

// MarkBookingDisputed transitions an active booking to disputed once a
// complaint against its escrow is accepted.
func (r *PostgresRepository) MarkBookingDisputed(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'disputed', updated_at = NOW()
		WHERE id = $1 AND status IN ('worker_confirmed', 'in_progress', 'worker_completed')
		RETURNING ` + bookingColumns
	return r.guardedTransition(ctx, query, bookingID)
}

func (r *PostgresRepository) guardedTransition(ctx context.Context, query string, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingStateConflict
		}
		return nil, err
	}
	return booking, nil
}

// ListBookings returns bookings matching the filters, newest first, with the
// joined service name folded into each booking's metadata, plus the total
// match count for pagination.
func (r *PostgresRepository) ListBookings(ctx context.Context, filters domain.BookingFilters) ([]domain.Booking, int, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.ClientID != nil {
		conditions = append(conditions, "b.client_id = "+arg(*filters.ClientID))
	}
	if filters.WorkerID != nil {
		conditions = append(conditions, "b.worker_id = "+arg(*filters.WorkerID))
	}
	if len(filters.Status) > 0 {
		conditions = append(conditions, "b.status = ANY("+arg(asStrings(filters.Status))+")")
	}
	if len(filters.BookingType) > 0 {
		conditions = append(conditions, "b.booking_type = ANY("+arg(asStrings(filters.BookingType))+")")
	}
	if filters.DateFrom != nil {
		conditions = append(conditions, "b.start_date >= "+arg(*filters.DateFrom))
	}
	if filters.DateTo != nil {
		conditions = append(conditions, "b.start_date <= "+arg(*filters.DateTo))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM bookings b" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
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
		SELECT b.id, b.client_id, b.worker_id, b.worker_service_id, b.service_id,
		       b.booking_type, b.duration_hours, b.hourly_rate_cents,
		       b.total_amount_cents, b.discount_percent, b.final_amount_cents,
		       b.start_date, b.end_date, COALESCE(b.location, ''),
		       COALESCE(b.special_instructions, ''), b.escrow_id,
		       b.payment_transaction_id, b.status, b.worker_completed_at,
		       b.client_completed_at, b.cancelled_by, b.cancelled_at,
		       b.cancellation_reason, b.metadata, b.created_at, b.updated_at,
		       s.name
		FROM bookings b
		LEFT JOIN services s ON s.id = b.service_id` + where + `
		ORDER BY b.created_at DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		var metadata []byte
		var serviceName *string
		err := rows.Scan(
			&b.ID, &b.ClientID, &b.WorkerID, &b.WorkerServiceID, &b.ServiceID,
			&b.BookingType, &b.DurationHours, &b.HourlyRate, &b.TotalAmount,
			&b.DiscountPercent, &b.FinalAmount, &b.StartDate, &b.EndDate,
			&b.Location, &b.SpecialInstructions, &b.EscrowID,
			&b.PaymentTransactionID, &b.Status, &b.WorkerCompletedAt,
			&b.ClientCompletedAt, &b.CancelledBy, &b.CancelledAt,
			&b.CancellationReason, &metadata, &b.CreatedAt, &b.UpdatedAt,
			&serviceName,
		)
		if err != nil {
			return nil, 0, err
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &b.Metadata)
		}
		if serviceName != nil {
			if b.Metadata == nil {
				b.Metadata = map[string]interface{}{}
			}
			if _, ok := b.Metadata["service_name"]; !ok {
				b.Metadata["service_name"] = *serviceName
			}
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}
