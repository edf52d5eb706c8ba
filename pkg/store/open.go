package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend            string
	Path               string
	Driver             string
	DSN                string
	BusyTimeout        time.Duration
	CheckpointInterval time.Duration
	MaxConns           int32
	MinConns           int32
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(SQLiteConfig{
			Path:               cfg.Path,
			Driver:             cfg.Driver,
			BusyTimeout:        cfg.BusyTimeout,
			CheckpointInterval: cfg.CheckpointInterval,
		}, logger)
	case BackendPostgres:
		return NewPostgres(ctx, PostgresConfig{DSN: cfg.DSN, MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
