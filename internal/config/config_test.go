package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Settings.Path != "./data/settings.json" {
		t.Fatalf("expected default settings path, got %q", cfg.Settings.Path)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DICTA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("DICTA_BUS_USERNAME", "alice")
	t.Setenv("DICTA_BUS_PASSWORD", "secret")
	t.Setenv("DICTA_BUS_TLS_INSECURE", "true")
	t.Setenv("DICTA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("DICTA_SURFACE_ID", "test-surface")
	t.Setenv("DICTA_SURFACE_KIND", "hotkey-dialog")
	t.Setenv("DICTA_SURFACE_HEARTBEAT_INTERVAL_MS", "1500")
	t.Setenv("DICTA_SURFACE_HEARTBEAT_TIMEOUT_MS", "5000")
	t.Setenv("DICTA_SETTINGS_PATH", "./tmp-settings.json")
	t.Setenv("DICTA_SETTINGS_REQUEST_TIMEOUT_MS", "750")
	t.Setenv("DICTA_HISTORY_PATH", "./tmp.db")
	t.Setenv("DICTA_HISTORY_RETENTION_DAYS", "7")
	t.Setenv("DICTA_HISTORY_MAX_REVISIONS", "123")
	t.Setenv("DICTA_HISTORY_VACUUM_ON_START", "true")
	t.Setenv("DICTA_RECOGNITION_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Surface.ID != "test-surface" || cfg.Surface.Kind != "hotkey-dialog" {
		t.Fatal("expected surface overrides")
	}
	if cfg.Surface.HeartbeatInterval != 1500 || cfg.Surface.HeartbeatTimeout != 5000 {
		t.Fatal("expected heartbeat overrides")
	}
	if cfg.Settings.Path != "./tmp-settings.json" {
		t.Fatalf("expected settings path override, got %q", cfg.Settings.Path)
	}
	if cfg.Settings.RequestTimeout != 750 {
		t.Fatalf("expected request timeout override, got %d", cfg.Settings.RequestTimeout)
	}
	if cfg.History.Path != "./tmp.db" || cfg.History.RetentionDays != 7 || cfg.History.MaxRevisions != 123 {
		t.Fatal("expected history overrides")
	}
	if !cfg.History.VacuumOnStart {
		t.Fatal("expected vacuum override true")
	}
	if cfg.Recognition.Enabled {
		t.Fatal("expected recognition disabled")
	}
}

func TestTelemetryLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := (TelemetryConfig{LogLevel: tc.in}).Level(); got != tc.want {
			t.Fatalf("Level(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty runtime name", func(c *Config) { c.RuntimeName = "" }},
		{"bad http port", func(c *Config) { c.HTTP.Port = 0 }},
		{"no servers when external", func(c *Config) { c.Bus.Embedded = false; c.Bus.Servers = nil }},
		{"empty surface id", func(c *Config) { c.Surface.ID = "" }},
		{"timeout below interval", func(c *Config) { c.Surface.HeartbeatTimeout = c.Surface.HeartbeatInterval }},
		{"empty settings path", func(c *Config) { c.Settings.Path = "" }},
		{"empty history path", func(c *Config) { c.History.Path = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
