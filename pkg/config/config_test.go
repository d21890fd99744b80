package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if len(cfg.Symbols) != 3 {
		t.Errorf("Symbols = %v, want 3 defaults", cfg.Symbols)
	}
	if cfg.InitialBalance != 10000.0 {
		t.Errorf("InitialBalance = %v, want 10000", cfg.InitialBalance)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SYMBOLS", " AAAUSDT , BBBUSDT ,")
	t.Setenv("FEE_RATE", "0.002")
	t.Setenv("GATEWAY_LATENCY_MAX_MS", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "AAAUSDT" {
		t.Errorf("Symbols = %v, want trimmed pair", cfg.Symbols)
	}
	if cfg.FeeRate != 0.002 {
		t.Errorf("FeeRate = %v, want 0.002", cfg.FeeRate)
	}
	if cfg.LatencyMaxMs != 25 {
		t.Errorf("LatencyMaxMs = %v, want 25", cfg.LatencyMaxMs)
	}
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("FEE_RATE", "not-a-number")
	t.Setenv("GATEWAY_LATENCY_MIN_MS", "nope")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FeeRate != 0.001 {
		t.Errorf("FeeRate = %v, want default 0.001", cfg.FeeRate)
	}
	if cfg.LatencyMinMs != 0 {
		t.Errorf("LatencyMinMs = %v, want default 0", cfg.LatencyMinMs)
	}
}
