// Package config loads the service configuration. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Payment   PaymentConfig   `koanf:"payment"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Email     EmailConfig     `koanf:"email"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// AuthRateLimit is the number of login/register attempts allowed per IP
	// within AuthRateWindow.
	AuthRateLimit  int           `koanf:"auth_rate_limit"`
	AuthRateWindow time.Duration `koanf:"auth_rate_window"`
}

type DatabaseConfig struct {
	URL          string `koanf:"url"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`

	// MigrationsPath is a golang-migrate source URL.
	MigrationsPath string `koanf:"migrations_path"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// PaymentConfig holds the gateway credentials. An empty SecretKey puts the
// payment flow in mock mode and disables webhook signature checks.
type PaymentConfig struct {
	SecretKey       string        `koanf:"secret_key"`
	BaseURL         string        `koanf:"base_url"`
	Timeout         time.Duration `koanf:"timeout"`
	ReferencePrefix string        `koanf:"reference_prefix"`

	// VerifyMockReferences sends mock_ references to the gateway instead of
	// trusting them when a SecretKey is set.
	VerifyMockReferences bool `koanf:"verify_mock_references"`
}

// MockMode reports whether no gateway credentials are configured.
func (p PaymentConfig) MockMode() bool {
	return p.SecretKey == ""
}

// TrustsMockReferences reports whether a mock_ reference confirms its order
// without asking the gateway.
func (p PaymentConfig) TrustsMockReferences() bool {
	return p.MockMode() || !p.VerifyMockReferences
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	GroupID string   `koanf:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type EmailConfig struct {
	ServiceURL string `koanf:"service_url"`
}

type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// SlogLevel maps the configured level name to a slog.Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			AuthRateLimit:   20,
			AuthRateWindow:  time.Minute,
		},
		Database: DatabaseConfig{
			MaxOpenConns:   20,
			MaxIdleConns:   5,
			MigrationsPath: "file://migrations",
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		Payment: PaymentConfig{
			BaseURL:         "https://api.paystack.co",
			Timeout:         15 * time.Second,
			ReferencePrefix: "chopflow",
		},
		Kafka: KafkaConfig{
			GroupID: "receipt-worker",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    "chopflow-api",
			ServiceVersion: "0.1.0",
			OTLPEndpoint:   "localhost:4317",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the settings every binary that talks to the database needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("POSTGRES_URL is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token ttl must be positive, got %s", c.Auth.TokenTTL))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("payment timeout must be positive, got %s", c.Payment.Timeout))
	}
	return errors.Join(errs...)
}

// ValidateAPI adds the checks only the HTTP API needs.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET is required and must be at least 32 characters")
	}
	return nil
}
