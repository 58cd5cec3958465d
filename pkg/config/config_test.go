package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Store.Driver != "postgres" {
		t.Fatalf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Store.Mongo.Database != "bloodCare" {
		t.Fatalf("mongo database = %q", cfg.Store.Mongo.Database)
	}
	if cfg.Server.TrustProxy {
		t.Fatalf("proxy headers should not be trusted by default")
	}
	if cfg.NATS.URL != "" || cfg.Redis.URL != "" {
		t.Fatalf("optional backends should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_REQUESTS", "nope")
	t.Setenv("CLIENT_DOMAIN", "https://a.example, ,https://b.example")

	cfg := Load()

	if cfg.Store.Driver != "memory" {
		t.Fatalf("driver = %q", cfg.Store.Driver)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("window = %v", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Requests != 20 {
		t.Fatalf("bad int should fall back, got %d", cfg.RateLimit.Requests)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_NonPositiveLimitsFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "0s")
	t.Setenv("RATE_LIMIT_REQUESTS", "-3")
	t.Setenv("IDEMPOTENCY_TTL", "-1h")

	cfg := Load()

	if cfg.RateLimit.Window != time.Minute {
		t.Fatalf("window = %v", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Requests != 20 {
		t.Fatalf("requests = %d", cfg.RateLimit.Requests)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Fatalf("ttl = %v", cfg.Idempotency.TTL)
	}
}
