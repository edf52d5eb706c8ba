package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/lendrules/pkg/config"
)

// Submission outcomes recorded by RecordSubmission.
const (
	OutcomeCreated    = "created"
	OutcomeDuplicate  = "duplicate"
	OutcomeOverlap    = "overlap"
	OutcomeInvalid    = "invalid"
	OutcomeStoreError = "store_error"
)

// Collector is the entry point for all Prometheus metrics of the service.
// It owns a registry and the per-area metric groups.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	rules       *RuleMetrics
	evaluations *EvaluationMetrics
	http        *HTTPMetrics
}

// NewCollector creates a collector with the given configuration. If registry
// is nil a fresh registry is created, keeping metrics isolated from the
// global default registry.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = config.DefaultEvaluationBuckets
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestBuckets
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		rules:       NewRuleMetrics(cfg, registry),
		evaluations: NewEvaluationMetrics(cfg, registry),
		http:        NewHTTPMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordSubmission counts one rule submission with the given outcome.
func (c *Collector) RecordSubmission(outcome string) {
	if !c.enabled() {
		return
	}
	c.rules.submitted.WithLabelValues(outcome).Inc()
}

// RecordDegenerateClauses counts clauses found unsatisfiable at submission.
func (c *Collector) RecordDegenerateClauses(n int) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.rules.degenerate.Add(float64(n))
}

// SetRulesStored sets the number of persisted rules.
func (c *Collector) SetRulesStored(n int) {
	if !c.enabled() {
		return
	}
	c.rules.stored.Set(float64(n))
}

// IncRulesStored counts one newly persisted rule.
func (c *Collector) IncRulesStored() {
	if !c.enabled() {
		return
	}
	c.rules.stored.Inc()
}

// RecordEvaluation records a completed eligibility evaluation.
func (c *Collector) RecordEvaluation(duration time.Duration, eligible, failures int) {
	if !c.enabled() {
		return
	}
	c.evaluations.total.Inc()
	c.evaluations.duration.Observe(duration.Seconds())
	c.evaluations.eligible.Observe(float64(eligible))
	if failures > 0 {
		c.evaluations.ruleErrors.Add(float64(failures))
	}
}

// SetAuditFindings sets the number of findings of one kind from the latest audit.
func (c *Collector) SetAuditFindings(kind string, n int) {
	if !c.enabled() {
		return
	}
	c.rules.auditFindings.WithLabelValues(kind).Set(float64(n))
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.http.record(method, route, status, duration)
}
