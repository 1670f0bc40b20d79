/**
 * @description
 * Monetary representation used across the booking-service. Amounts are stored
 * as `Cents` (int64, smallest currency unit) to avoid floating-point
 * inaccuracies with financial data, and serialize as decimal numbers with
 * exactly two fractional digits (e.g. 720.00) everywhere they cross the API
 * boundary.
 */

package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is a monetary amount in the smallest currency unit.
type Cents int64

// MarshalJSON renders the amount as a 2-fractional-digit decimal number.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts either a decimal number (720.00) or a quoted decimal
// string ("720.00"). Fractional parts beyond two digits are rejected rather
// than silently rounded.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	parsed, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// String formats the amount with exactly two fractional digits.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float64 converts to a float for display math only; never feed the result
// back into balance arithmetic.
func (c Cents) Float64() float64 {
	return float64(c) / 100
}

// ParseCents parses a decimal amount string ("720", "720.5", "720.00") into
// cents. At most two fractional digits are accepted.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two fractional digits", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	total := units*100 + cents
	if neg {
		total = -total
	}
	return Cents(total), nil
}

// PercentOf returns pct percent of the amount, rounded half away from zero to
// the nearest cent. Used for discount and fee math so rounding happens exactly
// once, at the cents boundary.
func (c Cents) PercentOf(pct float64) Cents {
	return Cents(math.Round(float64(c) * pct / 100))
}
