package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/lendrules/pkg/config"
)

// EvaluationMetrics tracks eligibility evaluations.
//
// Metrics:
//   - lendrules_evaluations_total
//   - lendrules_evaluation_duration_seconds
//   - lendrules_eligible_lenders
//   - lendrules_rule_evaluation_errors_total
type EvaluationMetrics struct {
	total      prometheus.Counter
	duration   prometheus.Histogram
	eligible   prometheus.Histogram
	ruleErrors prometheus.Counter
}

// NewEvaluationMetrics creates and registers evaluation metrics with the provided registry.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "evaluations_total",
			Help:      "Total number of eligibility evaluations",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of eligibility evaluations in seconds",
			Buckets:   cfg.EvaluationDurationBuckets,
		}),
		eligible: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "eligible_lenders",
			Help:      "Number of eligible lenders per evaluation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		ruleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "rule_evaluation_errors_total",
			Help:      "Rules that failed to evaluate against a record",
		}),
	}

	registry.MustRegister(em.total, em.duration, em.eligible, em.ruleErrors)
	return em
}
