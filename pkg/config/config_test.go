package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/rule/ast"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultListenAddress, cfg.Server.ListenAddress)
	assert.Equal(t, DefaultMaxBodyBytes, cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Server.CORS.Enabled)
	assert.False(t, cfg.Server.TLS.Enabled)
	assert.Equal(t, "1.3", cfg.Server.TLS.MinVersion)
	assert.Zero(t, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, DefaultMaxClauses, cfg.Rules.MaxClauses)
	assert.Equal(t, DefaultMaxDepth, cfg.Rules.MaxDepth)
	assert.Equal(t, DefaultAuditSchedule, cfg.Audit.Schedule)
	assert.True(t, cfg.Telemetry.Metrics.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.Tracing.SampleRatio)
	require.NoError(t, Validate(cfg))
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 10s
store:
  backend: memory
rules:
  max_clauses: 128
  domains:
    credit_score: {min: 350, max: 850}
audit:
  schedule: ""
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.ListenAddress)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 128, cfg.Rules.MaxClauses)
	assert.Empty(t, cfg.Audit.Schedule, "explicit empty schedule disables the audit")
	assert.False(t, cfg.Telemetry.Metrics.Enabled)
	assert.True(t, cfg.Server.CORS.Enabled)

	catalog, err := cfg.Rules.Catalog()
	require.NoError(t, err)
	info, ok := catalog.Lookup("credit_score")
	require.True(t, ok)
	assert.Equal(t, ast.Domain{Min: 350, Max: 850}, info.Domain)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("server:\n  listen_adress: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_adress")
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "postgres"
	cfg.Rules.MaxClauses = 0
	cfg.Rules.Domains = map[string]ast.Domain{
		"occupation": {Min: 0, Max: 1},
		"shoe_size":  {Min: 0, Max: 1},
		"age":        {Min: 50, Max: 10},
	}
	cfg.Audit.Schedule = "every tuesday"
	cfg.Telemetry.Logging.Level = "loud"
	cfg.Telemetry.Tracing.Enabled = true
	cfg.Server.RateLimit.RequestsPerSecond = -1
	cfg.Server.TLS.Enabled = true
	cfg.Server.TLS.MinVersion = "1.1"

	err := Validate(cfg)
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{
		"store.dsn",
		"rules.max_clauses",
		"rules.domains.occupation",
		"rules.domains.shoe_size",
		"rules.domains.age",
		"audit.schedule",
		"telemetry.logging.level",
		"telemetry.tracing.endpoint",
		"server.rate_limit.requests_per_second",
		"server.tls.cert_file",
		"server.tls.key_file",
		"server.tls.min_version",
	} {
		assert.True(t, fields[want], "expected error for %s", want)
	}
	assert.Contains(t, err.Error(), "errors:")
}

func TestValidate_StoreBackends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StoreConfig)
		wantErr string
	}{
		{name: "memory", mutate: func(s *StoreConfig) { s.Backend = "memory" }},
		{name: "sqlite cgo driver", mutate: func(s *StoreConfig) { s.Driver = "sqlite3" }},
		{name: "bad driver", mutate: func(s *StoreConfig) { s.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "bad backend", mutate: func(s *StoreConfig) { s.Backend = "redis" }, wantErr: "store.backend"},
		{name: "postgres with dsn", mutate: func(s *StoreConfig) { s.Backend = "postgres"; s.DSN = "postgres://x" }},
		{name: "min over max", mutate: func(s *StoreConfig) { s.MinConns = 20; s.MaxConns = 5 }, wantErr: "store.min_conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg.Store)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"LENDRULES_SERVER_LISTEN_ADDRESS":       ":7000",
		"LENDRULES_STORE_BACKEND":               "postgres",
		"LENDRULES_STORE_DSN":                   "postgres://rules@db/lendrules",
		"LENDRULES_RULES_MAX_CLAUSES":           "64",
		"LENDRULES_ELIGIBILITY_TIMEOUT":         "250ms",
		"LENDRULES_TELEMETRY_METRICS_ENABLED":   "false",
		"LENDRULES_SERVER_CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"LENDRULES_SERVER_RATE_LIMIT_BURST":     "4",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, applyEnvOverrides(cfg, lookup))

	assert.Equal(t, ":7000", cfg.Server.ListenAddress)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://rules@db/lendrules", cfg.Store.DSN)
	assert.Equal(t, 64, cfg.Rules.MaxClauses)
	assert.Equal(t, 250*time.Millisecond, cfg.Eligibility.Timeout)
	assert.False(t, cfg.Telemetry.Metrics.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, 4, cfg.Server.RateLimit.Burst)
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	lookup := func(k string) (string, bool) {
		switch k {
		case "LENDRULES_RULES_MAX_DEPTH":
			return "deep", true
		case "LENDRULES_IMPORTER_WATCH":
			return "sometimes", true
		}
		return "", false
	}

	err := applyEnvOverrides(Default(), lookup)
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendrules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o644))

	t.Setenv("LENDRULES_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "warn", cfg.Telemetry.Logging.Level)

	_, err = LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = LoadConfigWithEnvOverrides("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestSingleton(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(nil)
	assert.Nil(t, GetConfig())
	assert.Panics(t, func() { MustGetConfig() })

	require.NoError(t, Initialize(""))
	assert.NotNil(t, GetConfig())
	assert.NotPanics(t, func() { MustGetConfig() })
}
