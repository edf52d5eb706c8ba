package store

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/lendrules/pkg/rule"
)

var (
	// ErrDuplicate indicates a structurally identical rule already exists
	// for the lender.
	ErrDuplicate = errors.New("rule already exists for lender")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// Store persists rules. Implementations must be safe for concurrent use.
type Store interface {
	// FindByLender returns the lender's rules, oldest first.
	FindByLender(ctx context.Context, lender string) ([]*rule.Rule, error)

	// FindAll returns every rule, newest first.
	FindAll(ctx context.Context) ([]*rule.Rule, error)

	// Save inserts a rule. Rules are immutable, so saving an ID twice or a
	// (lender, tree) pair twice fails with ErrDuplicate.
	Save(ctx context.Context, r *rule.Rule) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources. The store must not be used afterwards.
	Close() error
}

// CheckFunc inspects the lender's current rules before an insert. A
// non-nil error aborts the insert and is returned unchanged by SaveIf.
type CheckFunc func(existing []*rule.Rule) error

// AtomicSaver is implemented by stores that can run a check and an insert
// atomically with respect to other SaveIf calls for the same lender.
type AtomicSaver interface {
	SaveIf(ctx context.Context, r *rule.Rule, check CheckFunc) error
}

// Error is a persistence failure.
type Error struct {
	Backend string
	Op      string
	Err     error
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Backend: backend, Op: op, Err: err}
}

// IsDuplicate reports whether err signals a duplicate rule.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
