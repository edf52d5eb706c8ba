package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	c := NewCollector(cfg, nil)

	require.NotNil(t, c.Registry())
	assert.Equal(t, config.DefaultMetricsNamespace, cfg.Namespace)
	assert.Equal(t, config.DefaultEvaluationBuckets, cfg.EvaluationDurationBuckets)
}

func TestCollector_RecordSubmission(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordSubmission(OutcomeCreated)
	c.RecordSubmission(OutcomeCreated)
	c.RecordSubmission(OutcomeOverlap)
	c.RecordDegenerateClauses(3)
	c.RecordDegenerateClauses(0)
	c.SetRulesStored(6)
	c.IncRulesStored()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rules.submitted.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rules.submitted.WithLabelValues(OutcomeOverlap)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.rules.degenerate))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.rules.stored))
}

func TestCollector_RecordEvaluation(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordEvaluation(2*time.Millisecond, 3, 0)
	c.RecordEvaluation(time.Millisecond, 0, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.evaluations.total))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.evaluations.ruleErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(c.evaluations.duration))
}

func TestCollector_AuditAndHTTP(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.SetAuditFindings("overlap", 2)
	c.RecordHTTPRequest(http.MethodPost, "/rules", http.StatusCreated, 5*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rules.auditFindings.WithLabelValues("overlap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.http.requests.WithLabelValues("POST", "/rules", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.http.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordSubmission(OutcomeCreated)
	c.RecordEvaluation(time.Millisecond, 1, 1)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.rules.submitted.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.evaluations.total))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordSubmission(OutcomeInvalid)
		c.RecordDegenerateClauses(1)
		c.SetRulesStored(1)
		c.IncRulesStored()
		c.RecordEvaluation(time.Millisecond, 1, 0)
		c.SetAuditFindings("overlap", 1)
		c.RecordHTTPRequest("GET", "/rules", 200, time.Millisecond)
	})
	assert.Nil(t, c.Registry())
}

func TestHandler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordSubmission(OutcomeDuplicate)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_rules_submitted_total{outcome="duplicate"} 1`), body)
}
