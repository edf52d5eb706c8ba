package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver "sqlite3"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // pure Go driver "sqlite"

	"mercator-hq/lendrules/pkg/rule"
)

// SQLite driver names accepted by SQLiteConfig.Driver.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string

	// Driver selects the database/sql driver.
	// Default: "sqlite" (modernc.org/sqlite)
	Driver string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL. Zero disables
	// periodic checkpoints.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// SQLiteStore implements Store on SQLite. A single connection serialises
// all access, which makes SaveIf atomic.
type SQLiteStore struct {
	db        *sql.DB
	cfg       SQLiteConfig
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once

	insertStmt   *sql.Stmt
	byLenderStmt *sql.Stmt
	allStmt      *sql.Stmt
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rules (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	lender        TEXT NOT NULL,
	rule_json     TEXT NOT NULL,
	expression    TEXT NOT NULL,
	canonical_key TEXT NOT NULL,
	key_hash      TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	UNIQUE (lender, key_hash)
);

CREATE INDEX IF NOT EXISTS idx_rules_lender ON rules(lender, seq);
`

const sqliteColumns = `id, lender, rule_json, expression, canonical_key, created_at`

// NewSQLite opens (creating if needed) a SQLite rule store.
func NewSQLite(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store.sqlite")

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, newError("sqlite", "open", eris.Wrap(err, "open database"))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, cfg: cfg, logger: logger, done: make(chan struct{})}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.CheckpointInterval > 0 && cfg.Path != ":memory:" {
		go s.checkpointLoop()
	}

	logger.Info("SQLite rule store initialized", "path", cfg.Path, "driver", cfg.Driver)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d;", s.cfg.BusyTimeout.Milliseconds()),
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return newError("sqlite", "pragma", eris.Wrapf(err, "exec %s", p))
		}
	}

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return newError("sqlite", "init_schema", eris.Wrap(err, "create schema"))
	}

	var err error
	s.insertStmt, err = s.db.Prepare(`INSERT INTO rules (id, lender, rule_json, expression, canonical_key, key_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return newError("sqlite", "prepare", eris.Wrap(err, "prepare insert"))
	}
	s.byLenderStmt, err = s.db.Prepare(`SELECT ` + sqliteColumns + ` FROM rules WHERE lender = ? ORDER BY seq ASC`)
	if err != nil {
		return newError("sqlite", "prepare", eris.Wrap(err, "prepare find by lender"))
	}
	s.allStmt, err = s.db.Prepare(`SELECT ` + sqliteColumns + ` FROM rules ORDER BY seq DESC`)
	if err != nil {
		return newError("sqlite", "prepare", eris.Wrap(err, "prepare find all"))
	}
	return nil
}

// FindByLender returns the lender's rules, oldest first.
func (s *SQLiteStore) FindByLender(ctx context.Context, lender string) ([]*rule.Rule, error) {
	rows, err := s.byLenderStmt.QueryContext(ctx, lender)
	if err != nil {
		return nil, newError("sqlite", "find_by_lender", eris.Wrap(err, "query rules"))
	}
	rules, err := scanSQLRows(rows)
	if err != nil {
		return nil, newError("sqlite", "find_by_lender", err)
	}
	return rules, nil
}

// FindAll returns every rule, newest first.
func (s *SQLiteStore) FindAll(ctx context.Context) ([]*rule.Rule, error) {
	rows, err := s.allStmt.QueryContext(ctx)
	if err != nil {
		return nil, newError("sqlite", "find_all", eris.Wrap(err, "query rules"))
	}
	rules, err := scanSQLRows(rows)
	if err != nil {
		return nil, newError("sqlite", "find_all", err)
	}
	return rules, nil
}

// Save inserts a rule.
func (s *SQLiteStore) Save(ctx context.Context, r *rule.Rule) error {
	return s.SaveIf(ctx, r, nil)
}

// SaveIf reads the lender's rules, runs check and inserts r in one
// transaction.
func (s *SQLiteStore) SaveIf(ctx context.Context, r *rule.Rule, check CheckFunc) error {
	rw, err := toRow(r)
	if err != nil {
		return newError("sqlite", "save", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newError("sqlite", "save", eris.Wrap(err, "begin transaction"))
	}
	defer tx.Rollback() //nolint:errcheck

	if check != nil {
		rows, err := tx.StmtContext(ctx, s.byLenderStmt).QueryContext(ctx, rw.Lender)
		if err != nil {
			return newError("sqlite", "save", eris.Wrap(err, "query lender rules"))
		}
		existing, err := scanSQLRows(rows)
		if err != nil {
			return newError("sqlite", "save", err)
		}
		if err := check(existing); err != nil {
			return err
		}
	}

	_, err = tx.StmtContext(ctx, s.insertStmt).ExecContext(ctx,
		rw.ID, rw.Lender, rw.RuleJSON, rw.Expression, rw.Key, rw.KeyHash, rw.CreatedAt.UnixNano())
	if err != nil {
		if isSQLiteUnique(err) {
			return newError("sqlite", "save", ErrDuplicate)
		}
		return newError("sqlite", "save", eris.Wrap(err, "insert rule"))
	}

	if err := tx.Commit(); err != nil {
		return newError("sqlite", "save", eris.Wrap(err, "commit"))
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return newError("sqlite", "ping", eris.Wrap(err, "ping"))
	}
	return nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.done)
		for _, stmt := range []*sql.Stmt{s.insertStmt, s.byLenderStmt, s.allStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})
	return closeErr
}

func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.cfg.CheckpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
				s.logger.Warn("WAL checkpoint failed", "error", err)
			}
		case <-s.done:
			return
		}
	}
}

func scanSQLRows(rows *sql.Rows) ([]*rule.Rule, error) {
	defer rows.Close()
	out := make([]*rule.Rule, 0)
	for rows.Next() {
		var rw row
		var created int64
		if err := rows.Scan(&rw.ID, &rw.Lender, &rw.RuleJSON, &rw.Expression, &rw.Key, &created); err != nil {
			return nil, eris.Wrap(err, "scan rule")
		}
		rw.CreatedAt = time.Unix(0, created).UTC()
		r, err := rw.toRule()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate rules")
	}
	return out, nil
}

// isSQLiteUnique matches the constraint message both drivers report.
func isSQLiteUnique(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
