package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SMS_PAGE_LIMIT", "")
	t.Setenv("SMS_LOCK_TTL", "")

	cfg := LoadConfig()
	if cfg.SmsPageLimit != 30 {
		t.Errorf("SmsPageLimit = %d, want 30", cfg.SmsPageLimit)
	}
	if cfg.SmsLockTTL != time.Hour {
		t.Errorf("SmsLockTTL = %s, want 1h", cfg.SmsLockTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SMS_PAGE_LIMIT", "50")
	t.Setenv("SMS_LOCK_TTL", "15m")
	t.Setenv("SMS_GATEWAY_URL", "http://gateway.local")

	cfg := LoadConfig()
	if cfg.SmsPageLimit != 50 {
		t.Errorf("SmsPageLimit = %d, want 50", cfg.SmsPageLimit)
	}
	if cfg.SmsLockTTL != 15*time.Minute {
		t.Errorf("SmsLockTTL = %s, want 15m", cfg.SmsLockTTL)
	}
	if cfg.GatewayURL != "http://gateway.local" {
		t.Errorf("GatewayURL = %q", cfg.GatewayURL)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SMS_GATEWAY_TIMEOUT", "soon")
	cfg := LoadConfig()
	if cfg.GatewayTimeout != 10*time.Second {
		t.Errorf("GatewayTimeout = %s, want 10s", cfg.GatewayTimeout)
	}
}
