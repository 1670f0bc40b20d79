/**
 * @description
 * This file defines the booking domain models for the booking-service. These
 * structs represent the main entities and data transfer objects (DTOs) used
 * throughout the service's business logic, database interactions, and API
 * layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and calculation
 *   results ensures clear separation of concerns and type safety.
 * - Amounts use `Cents` (int64 smallest currency unit), which avoids
 *   floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus enumerates the booking state machine.
type BookingStatus string

const (
	BookingPendingWorkerConfirmation BookingStatus = "pending_worker_confirmation"
	BookingWorkerConfirmed           BookingStatus = "worker_confirmed"
	BookingWorkerDeclined            BookingStatus = "worker_declined"
	BookingInProgress                BookingStatus = "in_progress"
	BookingWorkerCompleted           BookingStatus = "worker_completed"
	BookingClientCompleted           BookingStatus = "client_completed"
	BookingCancelled                 BookingStatus = "cancelled"
	BookingDisputed                  BookingStatus = "disputed"
)

// Terminal reports whether no further booking transition is allowed.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingWorkerDeclined, BookingClientCompleted, BookingCancelled:
		return true
	}
	return false
}

// BookingType selects the discount tier applied to a booking.
type BookingType string

const (
	BookingTypeHourly  BookingType = "hourly"
	BookingTypeDaily   BookingType = "daily"
	BookingTypeWeekly  BookingType = "weekly"
	BookingTypeMonthly BookingType = "monthly"
)

// Valid reports whether the booking type is one of the known tiers.
func (t BookingType) Valid() bool {
	switch t {
	case BookingTypeHourly, BookingTypeDaily, BookingTypeWeekly, BookingTypeMonthly:
		return true
	}
	return false
}

// Booking represents one agreement between a client and a worker to perform a
// service. This struct maps directly to the `bookings` table.
type Booking struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	ClientID        uuid.UUID   `json:"client_id" db:"client_id"`
	WorkerID        uuid.UUID   `json:"worker_id" db:"worker_id"`
	WorkerServiceID uuid.UUID   `json:"worker_service_id" db:"worker_service_id"`
	ServiceID       *uuid.UUID  `json:"service_id,omitempty" db:"service_id"`
	BookingType     BookingType `json:"booking_type" db:"booking_type"`
	DurationHours   int         `json:"duration_hours" db:"duration_hours"`

	HourlyRate      Cents   `json:"hourly_rate" db:"hourly_rate_cents"`
	TotalAmount     Cents   `json:"total_amount" db:"total_amount_cents"`
	DiscountPercent float64 `json:"discount_percent" db:"discount_percent"`
	FinalAmount     Cents   `json:"final_amount" db:"final_amount_cents"`

	StartDate           time.Time  `json:"start_date" db:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty" db:"end_date"`
	Location            string     `json:"location,omitempty" db:"location"`
	SpecialInstructions string     `json:"special_instructions,omitempty" db:"special_instructions"`

	EscrowID             *uuid.UUID `json:"escrow_id,omitempty" db:"escrow_id"`
	PaymentTransactionID *uuid.UUID `json:"payment_transaction_id,omitempty" db:"payment_transaction_id"`

	Status             BookingStatus `json:"status" db:"status"`
	WorkerCompletedAt  *time.Time    `json:"worker_completed_at,omitempty" db:"worker_completed_at"`
	ClientCompletedAt  *time.Time    `json:"client_completed_at,omitempty" db:"client_completed_at"`
	CancelledBy        *uuid.UUID    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	// Metadata carries denormalized display info (counterparty name/email/avatar,
	// service name) captured at creation time or backfilled on read, so the UI
	// never needs live joins.
	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateBookingRequest is the DTO for incoming booking creation API requests.
type CreateBookingRequest struct {
	WorkerID            uuid.UUID   `json:"worker_id"` // worker_profiles.id from the UI
	WorkerServiceID     uuid.UUID   `json:"worker_service_id"`
	BookingType         BookingType `json:"booking_type"`
	DurationHours       int         `json:"duration_hours"`
	StartDate           string      `json:"start_date"` // RFC 3339
	EndDate             *string     `json:"end_date,omitempty"`
	Location            string      `json:"location,omitempty"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
}

// CancelBookingRequest is the DTO for booking cancellation API requests.
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// BookingCalculation is the result of a price quote for a prospective booking.
// Pure read; nothing is persisted.
type BookingCalculation struct {
	HourlyRate      Cents   `json:"hourly_rate"`
	TotalAmount     Cents   `json:"total_amount"`
	DiscountPercent float64 `json:"discount_percent"`
	FinalAmount     Cents   `json:"final_amount"`
	CanAfford       bool    `json:"can_afford"`
	ClientBalance   Cents   `json:"client_balance"`
	RequiredAmount  Cents   `json:"required_amount"`
}

// BookingFilters controls the booking list query.
type BookingFilters struct {
	ClientID    *uuid.UUID
	WorkerID    *uuid.UUID
	Status      []BookingStatus
	BookingType []BookingType
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	Limit       int
}

// WorkerProfile is the directory view of a worker needed to validate a
// booking target. `ID` is the worker_profiles row; `UserID` is the underlying
// account that bookings reference.
type WorkerProfile struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

// UserProfile is the slice of a user's directory record the booking flow needs:
// role/status for validation, the rest for display metadata denormalization.
type UserProfile struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"` // 'client', 'worker', 'admin'
	Status    string    `json:"status"`
	Email     *string   `json:"email,omitempty"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// WorkerService is one service a worker offers, with its active pricing row.
type WorkerService struct {
	ID              uuid.UUID  `json:"id"`
	WorkerProfileID uuid.UUID  `json:"worker_profile_id"`
	ServiceID       *uuid.UUID `json:"service_id,omitempty"`
	IsActive        bool       `json:"is_active"`
	Pricing         *ServicePricing
}

// ServicePricing holds the hourly rate and the tier discount percents for one
// worker service. Nil tier percents mean no discount is configured.
type ServicePricing struct {
	HourlyRate             Cents    `json:"hourly_rate"`
	DailyDiscountPercent   *float64 `json:"daily_discount_percent,omitempty"`
	WeeklyDiscountPercent  *float64 `json:"weekly_discount_percent,omitempty"`
	MonthlyDiscountPercent *float64 `json:"monthly_discount_percent,omitempty"`
}
