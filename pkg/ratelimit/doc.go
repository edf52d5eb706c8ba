// Package ratelimit throttles API clients.
//
// A Keyed limiter keeps one token bucket (golang.org/x/time/rate) per client
// key, the client address in the HTTP server:
//
//	limiter := ratelimit.NewKeyed(ratelimit.Config{RequestsPerSecond: 10, Burst: 20})
//	if res := limiter.Allow(addr); !res.Allowed {
//	    // reject, retry after res.RetryAfter
//	}
//
// Buckets that have been idle long enough to refill completely are
// forgotten, so the map stays bounded by the number of active clients.
package ratelimit
