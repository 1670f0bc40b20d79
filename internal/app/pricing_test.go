package app

import (
	"testing"

	"github.com/workhive/booking-service/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestCalculateQuoteDailyDiscount(t *testing.T) {
	pricing := domain.ServicePricing{
		HourlyRate:           1000, // 10.00 per hour
		DailyDiscountPercent: floatPtr(10),
	}

	q := CalculateQuote(pricing, domain.BookingTypeDaily, 80)

	if q.TotalAmount != 80000 {
		t.Fatalf("expected total 80000 cents, got %d", q.TotalAmount)
	}
	if q.DiscountPercent != 10 {
		t.Fatalf("expected discount 10, got %v", q.DiscountPercent)
	}
	if q.FinalAmount != 72000 {
		t.Fatalf("expected final 72000 cents, got %d", q.FinalAmount)
	}
	if q.TotalAmount.String() != "800.00" || q.FinalAmount.String() != "720.00" {
		t.Fatalf("unexpected formatting: total=%s final=%s", q.TotalAmount, q.FinalAmount)
	}
}

func TestCalculateQuoteHourlyNeverDiscounted(t *testing.T) {
	pricing := domain.ServicePricing{
		HourlyRate:           1500,
		DailyDiscountPercent: floatPtr(10),
	}

	q := CalculateQuote(pricing, domain.BookingTypeHourly, 3)

	if q.DiscountPercent != 0 {
		t.Fatalf("hourly bookings must not be discounted, got %v", q.DiscountPercent)
	}
	if q.FinalAmount != 4500 {
		t.Fatalf("expected final 4500 cents, got %d", q.FinalAmount)
	}
}

func TestCalculateQuoteMissingTierDiscount(t *testing.T) {
	pricing := domain.ServicePricing{HourlyRate: 2000}

	q := CalculateQuote(pricing, domain.BookingTypeWeekly, 40)

	if q.DiscountPercent != 0 {
		t.Fatalf("unconfigured tier must mean no discount, got %v", q.DiscountPercent)
	}
	if q.TotalAmount != q.FinalAmount {
		t.Fatalf("total %d and final %d must match without discount", q.TotalAmount, q.FinalAmount)
	}
}

func TestCalculateQuoteRoundsOnceAtCents(t *testing.T) {
	pricing := domain.ServicePricing{
		HourlyRate:            333, // 3.33 per hour
		WeeklyDiscountPercent: floatPtr(15),
	}

	q := CalculateQuote(pricing, domain.BookingTypeWeekly, 7)

	// 333 * 7 = 2331; 15% = 349.65 -> 350; final 1981.
	if q.TotalAmount != 2331 {
		t.Fatalf("expected total 2331, got %d", q.TotalAmount)
	}
	if q.FinalAmount != 1981 {
		t.Fatalf("expected final 1981, got %d", q.FinalAmount)
	}
}
