package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar points at an optional YAML config file.
const PathEnvVar = "CONFIG_PATH"

var envMappings = map[string]string{
	"port":                           "server.port",
	"http_read_timeout":              "server.read_timeout",
	"http_write_timeout":             "server.write_timeout",
	"shutdown_timeout":               "server.shutdown_timeout",
	"cors_origins":                   "server.cors_origins",
	"auth_rate_limit":                "server.auth_rate_limit",
	"auth_rate_window":               "server.auth_rate_window",
	"postgres_url":                   "database.url",
	"postgres_max_open_conns":        "database.max_open_conns",
	"postgres_max_idle_conns":        "database.max_idle_conns",
	"migrations_path":                "database.migrations_path",
	"jwt_secret":                     "auth.jwt_secret",
	"jwt_token_ttl":                  "auth.token_ttl",
	"paystack_secret_key":            "payment.secret_key",
	"paystack_base_url":              "payment.base_url",
	"payment_timeout":                "payment.timeout",
	"payment_reference_prefix":       "payment.reference_prefix",
	"payment_verify_mock_references": "payment.verify_mock_references",
	"kafka_brokers":                  "kafka.brokers",
	"kafka_group_id":                 "kafka.group_id",
	"email_service_url":              "email.service_url",
	"telemetry_enabled":              "telemetry.enabled",
	"otel_service_name":              "telemetry.service_name",
	"otel_exporter_otlp_endpoint":    "telemetry.otlp_endpoint",
	"log_level":                      "log.level",
}

var sliceConfigPaths = []string{
	"server.cors_origins",
	"kafka.brokers",
}

// Load builds the configuration. Precedence is env > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// envTransform maps known environment variables onto config paths. Anything
// else is dropped so unrelated process env never leaks into the config.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}

		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}
