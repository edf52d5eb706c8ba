// Package server exposes the rule registry and the eligibility service
// over HTTP.
//
// Routes:
//
//	POST /rules           create a rule (201, 400 invalid, 409 duplicate or overlap)
//	GET  /rules           list rules, newest first
//	POST /rules/preview   show regions, samples and conflicts without storing
//	POST /evaluate        echo the borrower record with its eligible lenders
//	GET  /health          liveness
//	GET  /ready           readiness, including a store ping
//	GET  /version         build information
//	GET  /metrics         Prometheus metrics
//
// Requests pass through chi's request ID, real IP and panic recovery
// middleware, optional CORS, trace context extraction and an access log
// that also feeds the HTTP metrics. The POST routes are additionally
// throttled per client address (429 with Retry-After) when
// server.rate_limit is set, and have their bodies capped.
//
// With server.tls enabled the listener serves HTTPS, and renewed
// certificate files are picked up without a restart.
package server
