package domain

import (
	"encoding/json"
	"testing"
)

func TestCentsMarshalTwoFractionalDigits(t *testing.T) {
	cases := []struct {
		in   Cents
		want string
	}{
		{72000, "720.00"},
		{80000, "800.00"},
		{1000, "10.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1250, "-12.50"},
	}
	for _, c := range cases {
		got, err := json.Marshal(c.in)
		if err != nil {
			t.Fatalf("marshal %d: %v", c.in, err)
		}
		if string(got) != c.want {
			t.Fatalf("marshal %d: expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestCentsUnmarshalAcceptsNumberAndString(t *testing.T) {
	var fromNumber, fromString Cents
	if err := json.Unmarshal([]byte(`720.00`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if err := json.Unmarshal([]byte(`"720.00"`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if fromNumber != 72000 || fromString != 72000 {
		t.Fatalf("expected 72000 cents both ways, got %d and %d", fromNumber, fromString)
	}
}

func TestCentsUnmarshalRejectsSubCentPrecision(t *testing.T) {
	var c Cents
	if err := json.Unmarshal([]byte(`10.005`), &c); err == nil {
		t.Fatal("expected an error for three fractional digits")
	}
}

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
	}{
		{"720", 72000},
		{"720.5", 72050},
		{"720.00", 72000},
		{"0.05", 5},
		{"-12.50", -1250},
	}
	for _, c := range cases {
		got, err := ParseCents(c.in)
		if err != nil {
			t.Fatalf("ParseCents(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseCents(%q): expected %d, got %d", c.in, c.want, got)
		}
	}
}

func TestPercentOfRoundsHalfAwayFromZero(t *testing.T) {
	if got := Cents(80000).PercentOf(10); got != 8000 {
		t.Fatalf("10%% of 80000: expected 8000, got %d", got)
	}
	if got := Cents(2331).PercentOf(15); got != 350 {
		// 349.65 rounds up
		t.Fatalf("15%% of 2331: expected 350, got %d", got)
	}
	if got := Cents(10000).PercentOf(0); got != 0 {
		t.Fatalf("0%% must be 0, got %d", got)
	}
}
