package store

import (
	"context"
	"sync"

	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/ast"
)

// MemoryStore keeps rules in process memory. All data is lost when the
// process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	rules  []*rule.Rule // insertion order
	ids    map[string]bool
	keys   map[string]bool // lender + "\x00" + canonical key
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{ids: make(map[string]bool), keys: make(map[string]bool)}
}

func lenderKey(lender, key string) string {
	return lender + "\x00" + key
}

// FindByLender returns the lender's rules, oldest first.
func (m *MemoryStore) FindByLender(ctx context.Context, lender string) ([]*rule.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, newError("memory", "find_by_lender", ErrClosed)
	}
	return m.byLender(lender), nil
}

func (m *MemoryStore) byLender(lender string) []*rule.Rule {
	out := make([]*rule.Rule, 0)
	for _, r := range m.rules {
		if r.Lender == lender {
			out = append(out, r)
		}
	}
	return out
}

// FindAll returns every rule, newest first.
func (m *MemoryStore) FindAll(ctx context.Context) ([]*rule.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, newError("memory", "find_all", ErrClosed)
	}
	out := make([]*rule.Rule, 0, len(m.rules))
	for i := len(m.rules) - 1; i >= 0; i-- {
		out = append(out, m.rules[i])
	}
	return out, nil
}

// Save inserts a rule.
func (m *MemoryStore) Save(ctx context.Context, r *rule.Rule) error {
	return m.SaveIf(ctx, r, nil)
}

// SaveIf runs check and inserts r while holding the write lock.
func (m *MemoryStore) SaveIf(ctx context.Context, r *rule.Rule, check CheckFunc) error {
	if _, err := toRow(r); err != nil {
		return newError("memory", "save", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return newError("memory", "save", ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if check != nil {
		if err := check(m.byLender(r.Lender)); err != nil {
			return err
		}
	}

	key := r.Key
	if key == "" {
		key = ast.CanonicalKey(r.Tree)
	}
	if m.ids[r.ID] || m.keys[lenderKey(r.Lender, key)] {
		return newError("memory", "save", ErrDuplicate)
	}

	m.rules = append(m.rules, r)
	m.ids[r.ID] = true
	m.keys[lenderKey(r.Lender, key)] = true
	return nil
}

// Count returns the number of stored rules.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Ping reports whether the store is open.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return newError("memory", "ping", ErrClosed)
	}
	return nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
