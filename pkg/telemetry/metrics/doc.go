// Package metrics provides Prometheus metrics collection for lendrules.
//
// # Metrics Categories
//
//   - Rule metrics: submissions by outcome, degenerate clauses, stored rules
//   - Evaluation metrics: evaluations, latency, eligible lenders, rule errors
//   - Audit metrics: findings by kind
//   - HTTP metrics: request count and latency by route and status
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordSubmission(metrics.OutcomeCreated)
//	collector.RecordEvaluation(time.Since(start), len(eligible), 0)
//	router.Handle("/metrics", collector.Handler())
//
// Every recording method is safe on a nil *Collector and is a no-op when
// metrics are disabled, so components can take an optional collector.
package metrics
