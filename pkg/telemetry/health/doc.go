// Package health provides liveness and readiness probes.
//
// Readiness aggregates named checks, typically a ping of the rule store:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", health.PingCheck(st))
//	router.Get("/ready", checker.ReadinessHandler())
package health
