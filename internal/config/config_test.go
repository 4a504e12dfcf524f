package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("COUNTDOWN_TICK_MS", "")
	t.Setenv("REDIS_URL", "")

	cfg := Load()
	if cfg.StoreDriver != StoreDriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.StoreDriver)
	}
	if cfg.CountdownTick != time.Second {
		t.Fatalf("expected 1s tick, got %v", cfg.CountdownTick)
	}
	if cfg.RedisURL != "" {
		t.Fatalf("expected redis disabled by default, got %q", cfg.RedisURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "POSTGRES")
	t.Setenv("COUNTDOWN_TICK_MS", "250")
	t.Setenv("EXPIRY_SWEEP_SECONDS", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", " https://a.test , ,https://b.test")

	cfg := Load()
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.StoreDriver)
	}
	if cfg.CountdownTick != 250*time.Millisecond {
		t.Fatalf("expected 250ms tick, got %v", cfg.CountdownTick)
	}
	if cfg.ExpirySweep != 30*time.Second {
		t.Fatalf("expected fallback sweep of 30s, got %v", cfg.ExpirySweep)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestScheduleLocation(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		want string
	}{
		{name: "local keyword", tz: "Local", want: time.Local.String()},
		{name: "empty", tz: "", want: time.Local.String()},
		{name: "utc", tz: "UTC", want: "UTC"},
		{name: "unknown zone falls back", tz: "Mars/Olympus", want: time.Local.String()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{ScheduleTimezone: tc.tz}
			if got := cfg.ScheduleLocation().String(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
