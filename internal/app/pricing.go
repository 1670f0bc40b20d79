/**
 * @description
 * Pure booking price math. The quote is computed the same way at quote time
 * and at creation time so the persisted amounts always match what the client
 * was shown: gross = hourly rate x duration, then the tier discount for the
 * booking type, rounded once at the cents boundary.
 */

package app

import (
	"github.com/workhive/booking-service/internal/domain"
)

// Quote is the price breakdown for a prospective booking.
type Quote struct {
	HourlyRate      domain.Cents
	TotalAmount     domain.Cents
	DiscountPercent float64
	FinalAmount     domain.Cents
}

// CalculateQuote prices a booking from the worker's pricing row. Hourly
// bookings never carry a discount; longer tiers use the worker's configured
// percent for that tier, or none when the worker configured none.
func CalculateQuote(pricing domain.ServicePricing, bookingType domain.BookingType, durationHours int) Quote {
	total := pricing.HourlyRate * domain.Cents(durationHours)
	discount := discountFor(pricing, bookingType)
	final := total - total.PercentOf(discount)
	return Quote{
		HourlyRate:      pricing.HourlyRate,
		TotalAmount:     total,
		DiscountPercent: discount,
		FinalAmount:     final,
	}
}

func discountFor(pricing domain.ServicePricing, bookingType domain.BookingType) float64 {
	var pct *float64
	switch bookingType {
	case domain.BookingTypeDaily:
		pct = pricing.DailyDiscountPercent
	case domain.BookingTypeWeekly:
		pct = pricing.WeeklyDiscountPercent
	case domain.BookingTypeMonthly:
		pct = pricing.MonthlyDiscountPercent
	}
	if pct == nil || *pct <= 0 {
		return 0
	}
	return *pct
}
