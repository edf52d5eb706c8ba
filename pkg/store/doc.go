// Package store persists eligibility rules.
//
// Store is the narrow interface the rest of the system depends on:
// FindByLender, FindAll (newest first) and Save. Backends additionally
// implement AtomicSaver, whose SaveIf runs a caller-supplied check against
// a consistent view of the lender's rules and inserts only if the check
// passes, within one critical section or transaction.
//
// Backends:
//
//   - MemoryStore: process-local, guarded by a sync.RWMutex.
//   - SQLiteStore: database/sql over modernc.org/sqlite ("sqlite") or
//     github.com/mattn/go-sqlite3 ("sqlite3").
//   - PostgresStore: jackc/pgx/v5 pool; SaveIf takes a transaction-scoped
//     advisory lock keyed by lender so creates serialise across processes.
//
// Every backend enforces uniqueness of (lender, canonical key) and reports
// a violation as ErrDuplicate.
package store
