package registry

import "sync"

// lenderLocks serializes work per lender. Entries are reference counted and
// removed when the last holder releases, so idle lenders cost nothing.
type lenderLocks struct {
	mu    sync.Mutex
	locks map[string]*lenderLock
}

type lenderLock struct {
	mu   sync.Mutex
	refs int
}

func newLenderLocks() *lenderLocks {
	return &lenderLocks{locks: make(map[string]*lenderLock)}
}

// Lock blocks until the lender's lock is held and returns its release func.
func (l *lenderLocks) Lock(lender string) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[lender]
	if !ok {
		lk = &lenderLock{}
		l.locks[lender] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()

	return func() {
		lk.mu.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, lender)
		}
		l.mu.Unlock()
	}
}

func (l *lenderLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
