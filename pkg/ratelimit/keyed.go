package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock returns the current time.
type Clock func() time.Time

// Config sizes a Keyed limiter.
type Config struct {
	// RequestsPerSecond is the sustained rate per key. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the bucket capacity. Defaults to twice RequestsPerSecond,
	// and at least 1.
	Burst int
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Keyed keeps one token bucket per key. It is safe for concurrent use.
type Keyed struct {
	limit rate.Limit
	burst int
	now   Clock

	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	lastSweep time.Time
}

// Option configures a Keyed limiter.
type Option func(*Keyed)

// WithClock replaces time.Now.
func WithClock(now Clock) Option {
	return func(k *Keyed) { k.now = now }
}

// NewKeyed returns a limiter for cfg, or nil when cfg disables limiting.
// A nil *Keyed allows everything.
func NewKeyed(cfg Config, opts ...Option) *Keyed {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.RequestsPerSecond * 2)
	}
	if burst < 1 {
		burst = 1
	}
	k := &Keyed{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.lastSweep = k.now()
	return k
}

// Allow takes one token from key's bucket.
func (k *Keyed) Allow(key string) Result {
	if k == nil {
		return Result{Allowed: true}
	}

	now := k.now()
	lim := k.bucket(key, now)
	res := Result{Limit: int64(k.burst)}

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res
	}
	res.Allowed = true
	res.Remaining = int64(lim.TokensAt(now))
	return res
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	if k == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *Keyed) bucket(key string, now time.Time) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.sweepLocked(now)
	lim, ok := k.buckets[key]
	if !ok {
		lim = rate.NewLimiter(k.limit, k.burst)
		k.buckets[key] = lim
	}
	return lim
}

// sweepLocked drops full buckets once per refill period. A dropped key
// starts again with a full bucket, so nothing is lost.
func (k *Keyed) sweepLocked(now time.Time) {
	period := time.Duration(float64(k.burst) / float64(k.limit) * float64(time.Second))
	if now.Sub(k.lastSweep) < period {
		return
	}
	for key, lim := range k.buckets {
		if lim.TokensAt(now) >= float64(k.burst) {
			delete(k.buckets, key)
		}
	}
	k.lastSweep = now
}
