package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/lendrules/pkg/config"
)

// RuleMetrics tracks rule submission and audit state.
//
// Metrics:
//   - lendrules_rules_submitted_total{outcome}
//   - lendrules_degenerate_clauses_total
//   - lendrules_rules_stored
//   - lendrules_audit_findings{kind}
type RuleMetrics struct {
	submitted     *prometheus.CounterVec
	degenerate    prometheus.Counter
	stored        prometheus.Gauge
	auditFindings *prometheus.GaugeVec
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rules_submitted_total",
				Help:      "Rule submissions by outcome",
			},
			[]string{"outcome"},
		),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "degenerate_clauses_total",
			Help:      "Unsatisfiable clauses found in accepted rules",
		}),
		stored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "rules_stored",
			Help:      "Number of persisted rules",
		}),
		auditFindings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_findings",
				Help:      "Findings of the latest audit pass by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(rm.submitted, rm.degenerate, rm.stored, rm.auditFindings)
	return rm
}
