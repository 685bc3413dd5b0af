package config

import (
	"slices"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DB_DSN", "SHUTDOWN_TIMEOUT_SECONDS", "TX_MAX_RETRIES", "CORS_ORIGINS", "TELEGRAM_BOT_TOKEN", "BOT_POLLING"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.TxMaxRetries != 5 {
		t.Fatalf("TxMaxRetries = %d", cfg.TxMaxRetries)
	}
	if cfg.CORSOrigins != nil {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.BotEnabled() || cfg.BotPolling {
		t.Fatalf("bot should be disabled by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("TX_MAX_RETRIES", "8")
	t.Setenv("CORS_ORIGINS", "https://shop.example, ,http://localhost:3000")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("BOT_POLLING", "true")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":9090" || cfg.ShutdownTimeout != 3*time.Second || cfg.TxMaxRetries != 8 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	want := []string{"https://shop.example", "http://localhost:3000"}
	if !slices.Equal(cfg.CORSOrigins, want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
	if !cfg.BotEnabled() || !cfg.BotPolling {
		t.Fatalf("bot settings not applied: %+v", cfg)
	}
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	t.Setenv("TX_MAX_RETRIES", "many")
	t.Setenv("BOT_POLLING", "maybe")
	cfg := FromEnv()
	if cfg.ShutdownTimeout != 10*time.Second || cfg.TxMaxRetries != 5 || cfg.BotPolling {
		t.Fatalf("malformed values should fall back to defaults: %+v", cfg)
	}
}
