package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/app"
	"github.com/workhive/booking-service/internal/store"
)

func TestWriteServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{app.ErrInvalidDuration, http.StatusBadRequest},
		{app.ErrInvalidDate, http.StatusBadRequest},
		{app.ErrSelfBooking, http.StatusBadRequest},
		{app.ErrNotAWorker, http.StatusBadRequest},
		{app.ErrInvalidResolution, http.StatusBadRequest},
		{app.ErrWorkerBanned, http.StatusForbidden},
		{store.ErrInsufficientBalance, http.StatusPaymentRequired},
		{app.ErrUnauthorized, http.StatusForbidden},
		{store.ErrBookingNotFound, http.StatusNotFound},
		{store.ErrEscrowNotFound, http.StatusNotFound},
		{store.ErrBookingStateConflict, http.StatusConflict},
		{store.ErrEscrowAlreadyProcessed, http.StatusConflict},
		{app.ErrComplaintWindowExpired, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, c.err)
		if rec.Code != c.want {
			t.Fatalf("error %v: expected status %d, got %d", c.err, c.want, rec.Code)
		}
	}
}

func TestRequireRoleBlocksNonAdmins(t *testing.T) {
	handler := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	asRole := func(role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/escrows/x/resolve", nil)
		ctx := context.WithValue(req.Context(), authUserIDKey, uuid.New())
		ctx = context.WithValue(ctx, authRoleKey, role)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	if rec := asRole("client"); rec.Code != http.StatusForbidden {
		t.Fatalf("client should be forbidden, got %d", rec.Code)
	}
	if rec := asRole("admin"); rec.Code != http.StatusOK {
		t.Fatalf("admin should pass, got %d", rec.Code)
	}
}

func TestParseBookingFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/bookings?status=pending_worker_confirmation,worker_confirmed&type=daily&page=2&limit=5", nil)
	filters := parseBookingFilters(req)

	if len(filters.Status) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(filters.Status))
	}
	if len(filters.BookingType) != 1 || string(filters.BookingType[0]) != "daily" {
		t.Fatalf("unexpected type filter: %v", filters.BookingType)
	}
	if filters.Page != 2 || filters.Limit != 5 {
		t.Fatalf("unexpected pagination: page=%d limit=%d", filters.Page, filters.Limit)
	}
}

func TestParseIntParamFallbacks(t *testing.T) {
	if got := parseIntParam("", 20); got != 20 {
		t.Fatalf("empty: expected 20, got %d", got)
	}
	if got := parseIntParam("abc", 20); got != 20 {
		t.Fatalf("garbage: expected 20, got %d", got)
	}
	if got := parseIntParam("-3", 20); got != 20 {
		t.Fatalf("negative: expected 20, got %d", got)
	}
	if got := parseIntParam("7", 20); got != 7 {
		t.Fatalf("valid: expected 7, got %d", got)
	}
}
