package config

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.ComplaintWindowHours != 72 {
		t.Fatalf("expected default complaint window 72h, got %d", cfg.ComplaintWindowHours)
	}
	if cfg.EscrowCoolingPeriodDays != 3 {
		t.Fatalf("expected default cooling period 3d, got %d", cfg.EscrowCoolingPeriodDays)
	}
	if cfg.PlatformFeePercent != 0 {
		t.Fatalf("expected default platform fee 0, got %f", cfg.PlatformFeePercent)
	}
	if cfg.EscrowReleaseJobSchedule == "" {
		t.Fatal("expected a default escrow release schedule")
	}
	if cfg.RedisRateLimitPrefix != "workhive:rate_limit" {
		t.Fatalf("unexpected rate limit prefix %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfigClampsOutOfRangeValues(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "150")
	t.Setenv("ESCROW_COOLING_PERIOD_DAYS", "-2")
	t.Setenv("COMPLAINT_WINDOW_HOURS", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.PlatformFeePercent != 100 {
		t.Fatalf("fee percent should cap at 100, got %f", cfg.PlatformFeePercent)
	}
	if cfg.EscrowCoolingPeriodDays != 0 {
		t.Fatalf("cooling period should floor at 0, got %d", cfg.EscrowCoolingPeriodDays)
	}
	if cfg.ComplaintWindowHours != 72 {
		t.Fatalf("complaint window should fall back to 72, got %d", cfg.ComplaintWindowHours)
	}
}

func TestLoadConfigHonorsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("PLATFORM_FEE_PERCENT", "10")
	t.Setenv("BOOKING_CREATE_RATE_LIMIT_PER_MINUTE", "25")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ServerPort != "9191" {
		t.Fatalf("expected port 9191, got %s", cfg.ServerPort)
	}
	if cfg.PlatformFeePercent != 10 {
		t.Fatalf("expected fee 10, got %f", cfg.PlatformFeePercent)
	}
	if cfg.BookingCreateRateLimitPerMinute != 25 {
		t.Fatalf("expected rate limit 25, got %d", cfg.BookingCreateRateLimitPerMinute)
	}
}
