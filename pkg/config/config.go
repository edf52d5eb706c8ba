package config

import (
	"time"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// Config is the root configuration structure for the lendrules service.
// It is typically loaded from a YAML file with environment variable overrides.
type Config struct {
	// Server contains HTTP API configuration.
	Server ServerConfig `yaml:"server"`

	// Store selects and configures the rule persistence backend.
	Store StoreConfig `yaml:"store"`

	// Rules contains rule language limits and field domain overrides.
	Rules RulesConfig `yaml:"rules"`

	// Eligibility contains evaluation fan-out settings.
	Eligibility EligibilityConfig `yaml:"eligibility"`

	// Importer contains directory import settings.
	Importer ImporterConfig `yaml:"importer"`

	// Audit contains periodic consistency audit settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains observability configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address the HTTP server binds to.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies.
	// Default: 1MiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains cross-origin settings.
	CORS CORSConfig `yaml:"cors"`

	// RateLimit throttles rule submission and evaluation per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS serves the API over HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS for the API server.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM-encoded. Both are required when enabled.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the files are checked for renewal.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// RateLimitConfig configures per-client throttling of the POST routes.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client address.
	// Default: 0 (disabled)
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests a client may make at once.
	// Default: twice RequestsPerSecond
	Burst int `yaml:"burst"`
}

// CORSConfig contains Cross-Origin Resource Sharing configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists origins permitted to call the API.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists permitted HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists permitted request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// StoreConfig configures the rule store backend.
type StoreConfig struct {
	// Backend selects the implementation.
	// Options: "memory", "sqlite", "postgres"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	// Default: "data/rules.db"
	Path string `yaml:"path"`

	// Driver selects the SQLite driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval controls periodic WAL checkpoints (0 disables).
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`

	// MaxConns and MinConns size the PostgreSQL pool.
	MaxConns int32 `yaml:"max_conns"`
	MinConns int32 `yaml:"min_conns"`
}

// RulesConfig contains rule language limits.
type RulesConfig struct {
	// MaxDepth bounds rule tree nesting.
	// Default: 32
	MaxDepth int `yaml:"max_depth"`

	// MaxClauses bounds the number of disjunctive clauses a rule may expand to.
	// Default: 4096
	MaxClauses int `yaml:"max_clauses"`

	// Domains overrides the numeric domain of known fields.
	// Example: {"credit_score": {"min": 300, "max": 900}}
	Domains map[string]ast.Domain `yaml:"domains"`
}

// EligibilityConfig contains evaluation settings.
type EligibilityConfig struct {
	// Concurrency bounds how many rules are evaluated in parallel.
	// Default: 16
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds a single evaluation request (0 = no timeout).
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// ImporterConfig configures directory imports.
type ImporterConfig struct {
	// Dir is the directory scanned for rule documents.
	Dir string `yaml:"dir"`

	// Watch enables continuous import of new or changed files.
	Watch bool `yaml:"watch"`

	// Debounce collapses bursts of file events.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// AuditConfig configures the periodic audit.
type AuditConfig struct {
	// Schedule is a cron expression; empty disables the scheduler.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// RunOnStart runs one audit pass when the service starts.
	RunOnStart bool `yaml:"run_on_start"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactFields lists borrower attributes masked whenever a record is logged.
	// Default: ["income", "overdue_amount"]
	RedactFields []string `yaml:"redact_fields"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "lendrules"
	Namespace string `yaml:"namespace"`

	// EvaluationDurationBuckets defines histogram buckets for evaluation latency (seconds).
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`

	// RequestDurationBuckets defines histogram buckets for HTTP latency (seconds).
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "lendrules"
	ServiceName string `yaml:"service_name"`
}

// Catalog returns the default field catalog with the configured domain
// overrides applied.
func (c RulesConfig) Catalog() (*ast.Catalog, error) {
	if len(c.Domains) == 0 {
		return ast.DefaultCatalog(), nil
	}
	return ast.DefaultCatalog().WithDomains(c.Domains)
}
