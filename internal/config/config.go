package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

// Level maps the configured log level onto slog. Unknown values fall back
// to info rather than failing startup.
func (t TelemetryConfig) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(t.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Surface     SurfaceConfig     `yaml:"surface"`
	Settings    SettingsConfig    `yaml:"settings"`
	History     HistoryConfig     `yaml:"history"`
	Recognition RecognitionConfig `yaml:"recognition"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// SurfaceConfig identifies this process on the presence bus. UI windows use
// kind "main" or "hotkey-dialog"; the daemon registers as "core".
type SurfaceConfig struct {
	ID                string `yaml:"id"`
	Kind              string `yaml:"kind"`
	HeartbeatInterval int    `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int    `yaml:"heartbeat_timeout_ms"`
}

// SettingsConfig locates the persisted settings document and bounds gateway
// round-trips.
type SettingsConfig struct {
	Path           string `yaml:"path"`
	RequestTimeout int    `yaml:"request_timeout_ms"`
}

// HistoryConfig controls the settings revision log.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRevisions  int    `yaml:"max_revisions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type RecognitionConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		RuntimeName: "dicta-core",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8570,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Surface: SurfaceConfig{
			ID:                "dicta-core-1",
			Kind:              "core",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
		},
		Settings: SettingsConfig{
			Path:           "./data/settings.json",
			RequestTimeout: 2000,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "./data/dicta-history.db",
			RetentionDays: 30,
			MaxRevisions:  1000,
		},
		Recognition: RecognitionConfig{
			Enabled: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "DICTA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "DICTA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "DICTA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "DICTA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "DICTA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "DICTA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "DICTA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "DICTA_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "DICTA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "DICTA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "DICTA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "DICTA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "DICTA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "DICTA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "DICTA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "DICTA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "DICTA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Surface.ID, "DICTA_SURFACE_ID")
	overrideString(&cfg.Surface.Kind, "DICTA_SURFACE_KIND")
	overrideInt(&cfg.Surface.HeartbeatInterval, "DICTA_SURFACE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Surface.HeartbeatTimeout, "DICTA_SURFACE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.Settings.Path, "DICTA_SETTINGS_PATH")
	overrideInt(&cfg.Settings.RequestTimeout, "DICTA_SETTINGS_REQUEST_TIMEOUT_MS")
	overrideBool(&cfg.History.Enabled, "DICTA_HISTORY_ENABLED")
	overrideString(&cfg.History.Path, "DICTA_HISTORY_PATH")
	overrideInt(&cfg.History.RetentionDays, "DICTA_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxRevisions, "DICTA_HISTORY_MAX_REVISIONS")
	overrideBool(&cfg.History.VacuumOnStart, "DICTA_HISTORY_VACUUM_ON_START")
	overrideBool(&cfg.Recognition.Enabled, "DICTA_RECOGNITION_ENABLED")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Surface.ID == "" {
		return errors.New("surface.id must not be empty")
	}
	if cfg.Surface.HeartbeatInterval <= 0 {
		return errors.New("surface.heartbeat_interval_ms must be positive")
	}
	if cfg.Surface.HeartbeatTimeout <= cfg.Surface.HeartbeatInterval {
		return errors.New("surface.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if cfg.Settings.Path == "" {
		return errors.New("settings.path must not be empty")
	}
	if cfg.Settings.RequestTimeout <= 0 {
		return errors.New("settings.request_timeout_ms must be positive")
	}
	if cfg.History.Enabled {
		if cfg.History.Path == "" {
			return errors.New("history.path must not be empty when history is enabled")
		}
		if cfg.History.RetentionDays < 0 {
			return errors.New("history.retention_days must be >= 0")
		}
		if cfg.History.MaxRevisions < 0 {
			return errors.New("history.max_revisions must be >= 0")
		}
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}
