package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix marks environment overrides. Nested keys use a double underscore,
// e.g. PARKING_LOT__ENTRY_POINTS=5.
const EnvPrefix = "PARKING_"

type Config struct {
	Server    ServerConfig    `json:"server"`
	Lot       LotConfig       `json:"lot"`
	Logging   LoggingConfig   `json:"logging"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

type ServerConfig struct {
	Port                   string `json:"port"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `json:"write_timeout_seconds"`
	IdleTimeoutSeconds     int    `json:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds"`
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

type LotConfig struct {
	// EntryPoints is the initial number of slots in each capacity class.
	EntryPoints int `json:"entry_points"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

type TelemetryConfig struct {
	Enabled               bool   `json:"enabled"`
	ServiceName           string `json:"service_name"`
	Endpoint              string `json:"endpoint"`
	Environment           string `json:"environment"`
	ExportIntervalSeconds int    `json:"export_interval_seconds"`
}

func (c TelemetryConfig) ExportInterval() time.Duration {
	return time.Duration(c.ExportIntervalSeconds) * time.Second
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:                   "8080",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    15,
			IdleTimeoutSeconds:     60,
			ShutdownTimeoutSeconds: 10,
		},
		Lot: LotConfig{
			EntryPoints: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Enabled:               true,
			ServiceName:           "parking-lot-service",
			Endpoint:              "http://localhost:4318",
			Environment:           "development",
			ExportIntervalSeconds: 5,
		},
	}
}

// Load builds the configuration from defaults, the standard OTEL_* variables,
// an optional YAML or JSON file and PARKING_* environment overrides, in that
// order of precedence (last wins).
func Load(path string) (*Config, error) {
	cfg := Default()
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Telemetry.ServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}

	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Lot.EntryPoints < 1 {
		errs = append(errs, fmt.Errorf("lot.entry_points must be at least 1, got %d", c.Lot.EntryPoints))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}
	return errors.Join(errs...)
}
