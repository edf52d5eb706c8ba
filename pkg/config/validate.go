package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateEligibility(&cfg.Eligibility)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "max age must be non-negative"})
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.requests_per_second", Message: "rate must be non-negative"})
	}
	if cfg.RateLimit.Burst < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.burst", Message: "burst must be non-negative"})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}
	if v := cfg.TLS.MinVersion; v != "" && v != "1.2" && v != "1.3" {
		errs = append(errs, FieldError{Field: "server.tls.min_version", Message: fmt.Sprintf("unsupported TLS version %q (must be '1.2' or '1.3')", v)})
	}
	if cfg.TLS.ReloadInterval < 0 {
		errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "reload interval must be non-negative"})
	}

	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "store.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.Driver != "sqlite" && cfg.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "store.driver",
				Message: fmt.Sprintf("invalid driver %q (must be 'sqlite' or 'sqlite3')", cfg.Driver),
			})
		}
	case "postgres":
		if cfg.DSN == "" {
			errs = append(errs, FieldError{Field: "store.dsn", Message: "dsn is required for the postgres backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid backend %q (must be 'memory', 'sqlite', or 'postgres')", cfg.Backend),
		})
	}

	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "store.busy_timeout", Message: "busy timeout must be positive"})
	}
	if cfg.CheckpointInterval < 0 {
		errs = append(errs, FieldError{Field: "store.checkpoint_interval", Message: "checkpoint interval must be non-negative"})
	}
	if cfg.MinConns < 0 || cfg.MaxConns < 0 {
		errs = append(errs, FieldError{Field: "store.max_conns", Message: "connection limits must be non-negative"})
	} else if cfg.MaxConns > 0 && cfg.MinConns > cfg.MaxConns {
		errs = append(errs, FieldError{Field: "store.min_conns", Message: "min conns cannot exceed max conns"})
	}

	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxDepth < 1 {
		errs = append(errs, FieldError{Field: "rules.max_depth", Message: "max depth must be at least 1"})
	}
	if cfg.MaxClauses < 1 {
		errs = append(errs, FieldError{Field: "rules.max_clauses", Message: "max clauses must be at least 1"})
	}

	known := ast.DefaultCatalog()
	for name, d := range cfg.Domains {
		field := "rules.domains." + name
		info, ok := known.Lookup(name)
		if !ok {
			errs = append(errs, FieldError{Field: field, Message: "unknown field"})
			continue
		}
		if info.Type != ast.FieldTypeNumeric {
			errs = append(errs, FieldError{Field: field, Message: "only numeric fields have a domain"})
			continue
		}
		if d.Min > d.Max {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("min %g exceeds max %g", d.Min, d.Max)})
		}
	}

	return errs
}

func validateEligibility(cfg *EligibilityConfig) []FieldError {
	var errs []FieldError
	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{Field: "eligibility.concurrency", Message: "concurrency must be at least 1"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "eligibility.timeout", Message: "timeout must be non-negative"})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	if cfg.Schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return []FieldError{{Field: "audit.schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)}}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be 'debug', 'info', 'warn', or 'error')", cfg.Logging.Level),
		})
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be 'json' or 'text')", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with '/'"})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	return errs
}
