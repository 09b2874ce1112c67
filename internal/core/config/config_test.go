package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("RESOLVE_MAX_RETRIES", "")
	t.Setenv("RESOLVE_BACKOFF_STEP", "")

	cfg := FromEnv()
	if cfg.BackendURL != "http://localhost:8000" {
		t.Fatalf("BackendURL=%q", cfg.BackendURL)
	}
	if cfg.ResolveMaxRetries != 5 {
		t.Fatalf("ResolveMaxRetries=%d want 5", cfg.ResolveMaxRetries)
	}
	if cfg.ResolveBackoff != 1500*time.Millisecond {
		t.Fatalf("ResolveBackoff=%s want 1.5s", cfg.ResolveBackoff)
	}
	if cfg.Cache.Driver != "sqlite" {
		t.Fatalf("Cache.Driver=%q want sqlite", cfg.Cache.Driver)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://reports.local:9000/")
	t.Setenv("CACHE_DRIVER", "REDIS")
	t.Setenv("RESOLVE_MAX_RETRIES", "-3")
	t.Setenv("STATUS_EVENTS_ENABLED", "yes")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")

	cfg := FromEnv()
	if cfg.BackendURL != "http://reports.local:9000" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.BackendURL)
	}
	if cfg.Cache.Driver != "redis" {
		t.Fatalf("Cache.Driver=%q want redis", cfg.Cache.Driver)
	}
	if cfg.ResolveMaxRetries != 0 {
		t.Fatalf("negative retries should clamp to 0, got %d", cfg.ResolveMaxRetries)
	}
	if !cfg.StatusEvents.Enabled {
		t.Fatal("status events should be enabled")
	}
	got := cfg.StatusEvents.BrokerList()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("BrokerList=%v", got)
	}
}
