package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "LENDRULES_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates the result.
// Unknown keys are rejected so typos surface at startup.
func Parse(data []byte) (*Config, error) {
	cfg := seeded()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention LENDRULES_SECTION_FIELD (e.g. LENDRULES_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	key string
	set func(cfg *Config, val string) error
}

func stringVar(dst func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		*dst(cfg) = val
		return nil
	}
}

func boolVar(dst func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		*dst(cfg) = b
		return nil
	}
}

func intVar(dst func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		i, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*dst(cfg) = i
		return nil
	}
}

func durationVar(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*dst(cfg) = d
		return nil
	}
}

func floatVar(dst func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		*dst(cfg) = f
		return nil
	}
}

func listVar(dst func(*Config) *[]string) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst(cfg) = out
		return nil
	}
}

var envBindings = []envBinding{
	{"SERVER_LISTEN_ADDRESS", stringVar(func(c *Config) *string { return &c.Server.ListenAddress })},
	{"SERVER_READ_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Server.ReadTimeout })},
	{"SERVER_WRITE_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Server.WriteTimeout })},
	{"SERVER_SHUTDOWN_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},
	{"SERVER_CORS_ENABLED", boolVar(func(c *Config) *bool { return &c.Server.CORS.Enabled })},
	{"SERVER_CORS_ALLOWED_ORIGINS", listVar(func(c *Config) *[]string { return &c.Server.CORS.AllowedOrigins })},
	{"SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", floatVar(func(c *Config) *float64 { return &c.Server.RateLimit.RequestsPerSecond })},
	{"SERVER_RATE_LIMIT_BURST", intVar(func(c *Config) *int { return &c.Server.RateLimit.Burst })},
	{"SERVER_TLS_ENABLED", boolVar(func(c *Config) *bool { return &c.Server.TLS.Enabled })},
	{"SERVER_TLS_CERT_FILE", stringVar(func(c *Config) *string { return &c.Server.TLS.CertFile })},
	{"SERVER_TLS_KEY_FILE", stringVar(func(c *Config) *string { return &c.Server.TLS.KeyFile })},

	{"STORE_BACKEND", stringVar(func(c *Config) *string { return &c.Store.Backend })},
	{"STORE_PATH", stringVar(func(c *Config) *string { return &c.Store.Path })},
	{"STORE_DRIVER", stringVar(func(c *Config) *string { return &c.Store.Driver })},
	{"STORE_DSN", stringVar(func(c *Config) *string { return &c.Store.DSN })},
	{"STORE_BUSY_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Store.BusyTimeout })},

	{"RULES_MAX_DEPTH", intVar(func(c *Config) *int { return &c.Rules.MaxDepth })},
	{"RULES_MAX_CLAUSES", intVar(func(c *Config) *int { return &c.Rules.MaxClauses })},

	{"ELIGIBILITY_CONCURRENCY", intVar(func(c *Config) *int { return &c.Eligibility.Concurrency })},
	{"ELIGIBILITY_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Eligibility.Timeout })},

	{"IMPORTER_DIR", stringVar(func(c *Config) *string { return &c.Importer.Dir })},
	{"IMPORTER_WATCH", boolVar(func(c *Config) *bool { return &c.Importer.Watch })},

	{"AUDIT_SCHEDULE", stringVar(func(c *Config) *string { return &c.Audit.Schedule })},
	{"AUDIT_RUN_ON_START", boolVar(func(c *Config) *bool { return &c.Audit.RunOnStart })},

	{"TELEMETRY_LOGGING_LEVEL", stringVar(func(c *Config) *string { return &c.Telemetry.Logging.Level })},
	{"TELEMETRY_LOGGING_FORMAT", stringVar(func(c *Config) *string { return &c.Telemetry.Logging.Format })},
	{"TELEMETRY_METRICS_ENABLED", boolVar(func(c *Config) *bool { return &c.Telemetry.Metrics.Enabled })},
	{"TELEMETRY_METRICS_PATH", stringVar(func(c *Config) *string { return &c.Telemetry.Metrics.Path })},
	{"TELEMETRY_TRACING_ENABLED", boolVar(func(c *Config) *bool { return &c.Telemetry.Tracing.Enabled })},
	{"TELEMETRY_TRACING_ENDPOINT", stringVar(func(c *Config) *string { return &c.Telemetry.Tracing.Endpoint })},
	{"TELEMETRY_TRACING_INSECURE", boolVar(func(c *Config) *bool { return &c.Telemetry.Tracing.Insecure })},
	{"TELEMETRY_TRACING_SAMPLE_RATIO", floatVar(func(c *Config) *float64 { return &c.Telemetry.Tracing.SampleRatio })},
}

// applyEnvOverrides applies LENDRULES_* variables to cfg. Malformed values
// are reported together instead of being silently ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var errs []FieldError
	for _, b := range envBindings {
		val, ok := lookup(EnvPrefix + b.key)
		if !ok || val == "" {
			continue
		}
		if err := b.set(cfg, val); err != nil {
			errs = append(errs, FieldError{
				Field:   EnvPrefix + b.key,
				Message: fmt.Sprintf("invalid value %q: %v", val, err),
			})
		}
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
