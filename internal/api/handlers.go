/**
 * @description
 * This file contains the HTTP handlers for the booking lifecycle endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/app"
	"github.com/workhive/booking-service/internal/domain"
	"github.com/workhive/booking-service/internal/store"
)

// BookingHandlers holds the application services that booking handlers use.
type BookingHandlers struct {
	service     *app.BookingService
	rateLimiter *app.RedisBookingRateLimiter
	rateLimit   int
}

// NewBookingHandlers creates a new instance of BookingHandlers.
func NewBookingHandlers(service *app.BookingService, rateLimiter *app.RedisBookingRateLimiter, rateLimit int) *BookingHandlers {
	return &BookingHandlers{
		service:     service,
		rateLimiter: rateLimiter,
		rateLimit:   rateLimit,
	}
}

// listResponse is the standard paginated envelope for list endpoints.
type listResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

type calculatePriceRequest struct {
	WorkerServiceID uuid.UUID          `json:"worker_service_id"`
	BookingType     domain.BookingType `json:"booking_type"`
	DurationHours   int                `json:"duration_hours"`
}

// CalculatePriceHandler quotes a prospective booking without persisting
// anything.
func (h *BookingHandlers) CalculatePriceHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req calculatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	calc, err := h.service.CalculateBookingPrice(r.Context(), userID, req.WorkerServiceID, req.BookingType, req.DurationHours)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

// CreateBookingHandler creates a new booking in pending_worker_confirmation.
func (h *BookingHandlers) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if h.rateLimiter != nil && h.rateLimit > 0 {
		count, retryAfter, err := h.rateLimiter.ConsumeRateLimit(r.Context(), "booking_create", userID.String(), h.rateLimit, time.Minute)
		if err != nil {
			// Redis being down must not take booking creation with it.
			log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		} else if count > h.rateLimit {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "Too many bookings created, slow down")
			return
		}
	}

	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// GetBookingsHandler lists the requester's bookings.
func (h *BookingHandlers) GetBookingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	filters := parseBookingFilters(r)
	bookings, total, err := h.service.GetBookings(r.Context(), userID, role, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: bookings, Total: total, Page: filters.Page, Limit: filters.Limit})
}

// GetBookingHandler returns a single booking.
func (h *BookingHandlers) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.service.GetBooking(r.Context(), userID, role, bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ConfirmBookingHandler is the worker accepting a booking; this triggers the
// escrow payment.
func (h *BookingHandlers) ConfirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ConfirmBooking)
}

// DeclineBookingHandler is the worker rejecting a pending booking.
func (h *BookingHandlers) DeclineBookingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DeclineBooking)
}

// WorkerCompleteBookingHandler records the worker's completion claim.
func (h *BookingHandlers) WorkerCompleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.WorkerCompleteBooking)
}

// ClientCompleteBookingHandler is the client accepting the finished work,
// which releases the escrow to the worker.
func (h *BookingHandlers) ClientCompleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ClientCompleteBooking)
}

// CancelBookingHandler cancels an active booking, refunding any held escrow.
func (h *BookingHandlers) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	var req domain.CancelBookingRequest
	if r.Body != nil {
		// The cancellation reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	booking, err := h.service.CancelBooking(r.Context(), userID, bookingID, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandlers) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, bookingID uuid.UUID) (*domain.Booking, error)) {
	userID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := op(r.Context(), userID, bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func parseBookingFilters(r *http.Request) domain.BookingFilters {
	q := r.URL.Query()
	filters := domain.BookingFilters{
		Page:  parseIntParam(q.Get("page"), 1),
		Limit: parseIntParam(q.Get("limit"), 20),
	}
	for _, s := range splitParam(q.Get("status")) {
		filters.Status = append(filters.Status, domain.BookingStatus(s))
	}
	for _, t := range splitParam(q.Get("type")) {
		filters.BookingType = append(filters.BookingType, domain.BookingType(t))
	}
	if from := q.Get("date_from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &parsed
		}
	}
	if to := q.Get("date_to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &parsed
		}
	}
	return filters
}

func splitParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// writeServiceError maps app and store sentinel errors onto HTTP status codes.
// Anything unmapped is a 500, logged with the underlying error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidBookingType),
		errors.Is(err, app.ErrInvalidDuration),
		errors.Is(err, app.ErrInvalidDate),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidResolution),
		errors.Is(err, app.ErrSelfBooking),
		errors.Is(err, app.ErrNotAWorker),
		errors.Is(err, app.ErrWorkerServiceMismatch),
		errors.Is(err, app.ErrWorkerServiceInactive),
		errors.Is(err, app.ErrWorkerServiceUnpriced),
		errors.Is(err, app.ErrMissingEscrow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, app.ErrUnauthorized),
		errors.Is(err, app.ErrWorkerBanned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrBookingNotFound),
		errors.Is(err, store.ErrWorkerNotFound),
		errors.Is(err, store.ErrWorkerServiceNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrWalletNotFound),
		errors.Is(err, store.ErrEscrowNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrBookingStateConflict),
		errors.Is(err, store.ErrEscrowAlreadyProcessed),
		errors.Is(err, store.ErrWalletFrozen),
		errors.Is(err, app.ErrComplaintNotAllowed),
		errors.Is(err, app.ErrComplaintWindowExpired):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
