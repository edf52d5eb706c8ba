package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)
	DefaultCORSMaxAge      = 3600

	DefaultTLSMinVersion     = "1.3"
	DefaultTLSReloadInterval = 5 * time.Minute

	// Store defaults
	DefaultStoreBackend       = "sqlite"
	DefaultStorePath          = "data/rules.db"
	DefaultStoreDriver        = "sqlite"
	DefaultBusyTimeout        = 5 * time.Second
	DefaultCheckpointInterval = 5 * time.Minute
	DefaultPostgresMaxConns   = int32(10)

	// Rules defaults
	DefaultMaxDepth   = 32
	DefaultMaxClauses = 4096

	// Eligibility defaults
	DefaultConcurrency       = 16
	DefaultEvaluationTimeout = 5 * time.Second

	// Importer defaults
	DefaultImportDebounce = 100 * time.Millisecond

	// Audit defaults
	DefaultAuditSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "lendrules"
	DefaultTracingRatio     = 1.0
	DefaultServiceName      = "lendrules"
)

var (
	DefaultCORSOrigins = []string{"*"}
	DefaultCORSMethods = []string{"GET", "POST", "OPTIONS"}
	DefaultCORSHeaders = []string{"Content-Type", "X-Request-ID"}

	DefaultEvaluationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5}
	DefaultRequestBuckets    = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

	DefaultRedactFields = []string{"income", "overdue_amount"}
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := seeded()
	ApplyDefaults(cfg)
	return cfg
}

// seeded returns a Config holding the defaults whose zero value is
// meaningful. YAML decoding only overwrites keys present in the file, so an
// explicit "enabled: false" or "schedule: ''" survives.
func seeded() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = true
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Audit.Schedule = DefaultAuditSchedule
	cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	cfg.Telemetry.Logging.RedactFields = DefaultRedactFields
	return cfg
}

// ApplyDefaults fills zero values in cfg with their defaults.
// Booleans are left untouched because false is a meaningful setting.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)

	if cfg.Rules.MaxDepth == 0 {
		cfg.Rules.MaxDepth = DefaultMaxDepth
	}
	if cfg.Rules.MaxClauses == 0 {
		cfg.Rules.MaxClauses = DefaultMaxClauses
	}

	if cfg.Eligibility.Concurrency == 0 {
		cfg.Eligibility.Concurrency = DefaultConcurrency
	}
	if cfg.Eligibility.Timeout == 0 {
		cfg.Eligibility.Timeout = DefaultEvaluationTimeout
	}

	if cfg.Importer.Debounce == 0 {
		cfg.Importer.Debounce = DefaultImportDebounce
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = DefaultCORSOrigins
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = DefaultCORSMethods
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = DefaultCORSHeaders
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = DefaultCORSMaxAge
	}
	if cfg.TLS.MinVersion == "" {
		cfg.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.TLS.ReloadInterval == 0 {
		cfg.TLS.ReloadInterval = DefaultTLSReloadInterval
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStoreBackend
	}
	if cfg.Path == "" {
		cfg.Path = DefaultStorePath
	}
	if cfg.Driver == "" {
		cfg.Driver = DefaultStoreDriver
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = DefaultPostgresMaxConns
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.EvaluationDurationBuckets) == 0 {
		cfg.Metrics.EvaluationDurationBuckets = DefaultEvaluationBuckets
	}
	if len(cfg.Metrics.RequestDurationBuckets) == 0 {
		cfg.Metrics.RequestDurationBuckets = DefaultRequestBuckets
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}
}
