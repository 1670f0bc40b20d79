package app

import (
	"testing"
	"time"

	"github.com/workhive/booking-service/internal/domain"
)

const complaintWindow = 72 * time.Hour

func TestExpectedEndPrefersExplicitEndDate(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	booking := &domain.Booking{StartDate: start, EndDate: &end, DurationHours: 8}

	if got := ExpectedEnd(booking); !got.Equal(end) {
		t.Fatalf("expected explicit end %v, got %v", end, got)
	}
}

func TestExpectedEndDerivedFromDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	booking := &domain.Booking{StartDate: start, DurationHours: 8}

	want := start.Add(8 * time.Hour)
	if got := ExpectedEnd(booking); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComplaintWindowAnchoredOnWorkerCompletion(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Worker completed one hour after the expected end.
	completed := start.Add(8*time.Hour + time.Hour)
	booking := &domain.Booking{
		StartDate:         start,
		DurationHours:     8,
		Status:            domain.BookingWorkerCompleted,
		WorkerCompletedAt: &completed,
	}

	// 71h after completion: still open.
	if _, open := ComplaintWindowOpen(booking, complaintWindow, completed.Add(71*time.Hour)); !open {
		t.Fatal("window should be open 71h after worker completion")
	}
	// 73h after completion: expired, even though it is only 74h after the
	// expected end.
	if _, open := ComplaintWindowOpen(booking, complaintWindow, completed.Add(73*time.Hour)); open {
		t.Fatal("window should be expired 73h after worker completion")
	}
}

func TestComplaintWindowAnchoredOnExpectedEndWithoutCompletion(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	booking := &domain.Booking{
		StartDate:     start,
		DurationHours: 8,
		Status:        domain.BookingInProgress,
	}

	expectedEnd := start.Add(8 * time.Hour)
	deadline, open := ComplaintWindowOpen(booking, complaintWindow, expectedEnd.Add(time.Hour))
	if !open {
		t.Fatal("window should be open shortly after the expected end")
	}
	if want := expectedEnd.Add(complaintWindow); !deadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, deadline)
	}
	if _, open := ComplaintWindowOpen(booking, complaintWindow, deadline); !open {
		t.Fatal("a complaint exactly at the deadline is still allowed")
	}
	if _, open := ComplaintWindowOpen(booking, complaintWindow, deadline.Add(time.Second)); open {
		t.Fatal("window should be expired one second past the deadline")
	}
}

func TestIsOverdue(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	booking := &domain.Booking{
		StartDate:     start,
		DurationHours: 4,
		Status:        domain.BookingInProgress,
	}

	if IsOverdue(booking, start.Add(3*time.Hour)) {
		t.Fatal("booking should not be overdue before its expected end")
	}
	if !IsOverdue(booking, start.Add(5*time.Hour)) {
		t.Fatal("booking should be overdue past its expected end")
	}

	booking.Status = domain.BookingWorkerCompleted
	if IsOverdue(booking, start.Add(5*time.Hour)) {
		t.Fatal("completed bookings are never overdue")
	}
}
