package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAZORPAY_API_SECRET", "secret")
	t.Setenv("DEMO_MODE", "")
	t.Setenv("PAYMENT_CURRENCY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", cfg.Currency)
	}
	if cfg.DemoMode {
		t.Error("DemoMode should default to false")
	}
	if cfg.TournamentCacheTTL != 5*time.Second {
		t.Errorf("TournamentCacheTTL = %s, want 5s", cfg.TournamentCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RAZORPAY_API_SECRET", "secret")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("PAYMENT_CURRENCY", "usd")
	t.Setenv("OUTBOX_INTERVAL", "250ms")
	t.Setenv("RAZORPAY_BASE_URL", "http://localhost:9999/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.DemoMode {
		t.Error("DemoMode should be true")
	}
	if cfg.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", cfg.Currency)
	}
	if cfg.OutboxInterval != 250*time.Millisecond {
		t.Errorf("OutboxInterval = %s", cfg.OutboxInterval)
	}
	if cfg.RazorpayBaseURL != "http://localhost:9999/v1" {
		t.Errorf("RazorpayBaseURL = %q", cfg.RazorpayBaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{RazorpayKeySecret: "s", Currency: "INR", OutboxBatch: 1}, false},
		{"missing secret", Config{Currency: "INR", OutboxBatch: 1}, true},
		{"bad currency", Config{RazorpayKeySecret: "s", Currency: "RUPEES", OutboxBatch: 1}, true},
		{"bad batch", Config{RazorpayKeySecret: "s", Currency: "INR"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
