package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"mercator-hq/lendrules/pkg/rule"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	// DSN is the connection string.
	DSN string

	// MaxConns bounds the pool size.
	// Default: 10
	MaxConns int32

	// MinConns keeps idle connections open.
	// Default: 2
	MinConns int32
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool   Pool
	logger *slog.Logger
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lender_rules (
	seq           BIGSERIAL PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	lender        TEXT NOT NULL,
	rule_json     JSONB NOT NULL,
	expression    TEXT NOT NULL,
	canonical_key TEXT NOT NULL,
	key_hash      CHAR(64) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (lender, key_hash)
);

CREATE INDEX IF NOT EXISTS idx_lender_rules_lender ON lender_rules(lender, seq);
`

const (
	pgSelectByLender = `SELECT id, lender, rule_json::text, expression, canonical_key, created_at FROM lender_rules WHERE lender = $1 ORDER BY seq ASC`
	pgSelectAll      = `SELECT id, lender, rule_json::text, expression, canonical_key, created_at FROM lender_rules ORDER BY seq DESC`
	pgInsert         = `INSERT INTO lender_rules (id, lender, rule_json, expression, canonical_key, key_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	pgLockLender     = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// NewPostgres connects to PostgreSQL and applies the schema.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, newError("postgres", "open", eris.Wrap(err, "postgres: parse config"))
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if cfg.MaxConns > 0 {
		pgxCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pgxCfg.MinConns = cfg.MinConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, newError("postgres", "open", eris.Wrap(err, "postgres: create pool"))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, newError("postgres", "open", eris.Wrap(err, "postgres: ping"))
	}

	s := NewPostgresWithPool(pool, logger)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.logger.Info("PostgreSQL rule store initialized", "max_conns", pgxCfg.MaxConns)
	return s, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger.With("component", "store.postgres")}
}

// Migrate creates the rules table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return newError("postgres", "migrate", eris.Wrap(err, "postgres: migrate"))
	}
	return nil
}

// FindByLender returns the lender's rules, oldest first.
func (s *PostgresStore) FindByLender(ctx context.Context, lender string) ([]*rule.Rule, error) {
	rows, err := s.pool.Query(ctx, pgSelectByLender, lender)
	if err != nil {
		return nil, newError("postgres", "find_by_lender", eris.Wrap(err, "postgres: query rules"))
	}
	rules, err := scanPgRows(rows)
	if err != nil {
		return nil, newError("postgres", "find_by_lender", err)
	}
	return rules, nil
}

// FindAll returns every rule, newest first.
func (s *PostgresStore) FindAll(ctx context.Context) ([]*rule.Rule, error) {
	rows, err := s.pool.Query(ctx, pgSelectAll)
	if err != nil {
		return nil, newError("postgres", "find_all", eris.Wrap(err, "postgres: query rules"))
	}
	rules, err := scanPgRows(rows)
	if err != nil {
		return nil, newError("postgres", "find_all", err)
	}
	return rules, nil
}

// Save inserts a rule.
func (s *PostgresStore) Save(ctx context.Context, r *rule.Rule) error {
	return s.SaveIf(ctx, r, nil)
}

// SaveIf takes a transaction-scoped advisory lock on the lender, reads its
// rules, runs check and inserts r. Concurrent SaveIf calls for one lender
// queue on the lock, in this process or any other.
func (s *PostgresStore) SaveIf(ctx context.Context, r *rule.Rule, check CheckFunc) error {
	rw, err := toRow(r)
	if err != nil {
		return newError("postgres", "save", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return newError("postgres", "save", eris.Wrap(err, "postgres: begin"))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, pgLockLender, rw.Lender); err != nil {
		return newError("postgres", "save", eris.Wrap(err, "postgres: lock lender"))
	}

	if check != nil {
		rows, err := tx.Query(ctx, pgSelectByLender, rw.Lender)
		if err != nil {
			return newError("postgres", "save", eris.Wrap(err, "postgres: query lender rules"))
		}
		existing, err := scanPgRows(rows)
		if err != nil {
			return newError("postgres", "save", err)
		}
		if err := check(existing); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, pgInsert, rw.ID, rw.Lender, rw.RuleJSON, rw.Expression, rw.Key, rw.KeyHash, rw.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return newError("postgres", "save", ErrDuplicate)
		}
		return newError("postgres", "save", eris.Wrap(err, "postgres: insert rule"))
	}

	if err := tx.Commit(ctx); err != nil {
		return newError("postgres", "save", eris.Wrap(err, "postgres: commit"))
	}
	return nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return newError("postgres", "ping", eris.Wrap(err, "postgres: ping"))
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgRows(rows pgx.Rows) ([]*rule.Rule, error) {
	defer rows.Close()
	out := make([]*rule.Rule, 0)
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.ID, &rw.Lender, &rw.RuleJSON, &rw.Expression, &rw.Key, &rw.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule")
		}
		r, err := rw.toRule()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rules")
	}
	return out, nil
}
