package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/eligibility"
	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/evaluator"
	"mercator-hq/lendrules/pkg/store"
	"mercator-hq/lendrules/pkg/telemetry/health"
	"mercator-hq/lendrules/pkg/telemetry/metrics"
)

const (
	axisYoung = `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":18}},{"age":{"operator":"<","value":30}}]}}`
	axisMid   = `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":25}},{"age":{"operator":"<","value":40}}]}}`
)

type fixture struct {
	server  *Server
	store   *store.MemoryStore
	metrics *metrics.Collector
}

func newFixture(t *testing.T, mutate ...func(*config.ServerConfig)) *fixture {
	t.Helper()
	st := store.NewMemory()
	reg, err := registry.New(st, registry.Config{})
	require.NoError(t, err)
	svc, err := eligibility.NewService(st)
	require.NoError(t, err)

	checker := health.New(time.Second)
	checker.RegisterCheck("store", health.PingCheck(st))
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, prometheus.NewRegistry())

	cfg := config.Default().Server
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := New(cfg, Deps{
		Rules:       reg,
		Eligibility: svc,
		Health:      checker,
		Metrics:     collector,
		Version:     "test",
	})
	require.NoError(t, err)
	return &fixture{server: srv, store: st, metrics: collector}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(config.Default().Server, Deps{})
	assert.Error(t, err)
}

func TestCreateRule(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/rules", axisYoung)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	created := body["rule"].(map[string]any)
	assert.Equal(t, "AXIS", created["lender"])
	assert.Equal(t, "age > 18 AND age < 30", created["expression"])
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, []any{}, body["warnings"])

	rec = f.do(t, http.MethodPost, "/rules", axisYoung)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "duplicate_rule", body["error"])
	assert.Equal(t, "duplicate", body["conflict"].(map[string]any)["kind"])

	rec = f.do(t, http.MethodPost, "/rules", axisMid)
	require.Equal(t, http.StatusConflict, rec.Code)
	report := decode(t, rec)["conflict"].(map[string]any)
	assert.Equal(t, "overlap", report["kind"])
	assert.Equal(t, created["id"], report["existingId"])
	assert.Equal(t, "age ∈ (25, 30)", report["overlappingRegion"])

	assert.Equal(t, 1, f.store.Count())
}

func TestCreateRule_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{"not json", `{"lender":`, "malformed_document"},
		{"unknown field", `{"lender":"AXIS","rule":{"and":[{"salary":{"operator":">","value":1}}]}}`, "unknown_field"},
		{"out of domain", `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":150}}]}}`, "out_of_domain"},
		{"no conditions", `{"lender":"AXIS","rule":{"and":[]}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/rules", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, "invalid_rule", body["error"])
			errs := body["errors"].([]any)
			require.NotEmpty(t, errs)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, errs[0].(map[string]any)["reason"])
			}
		})
	}
	assert.Zero(t, f.store.Count())
}

func TestCreateRule_BodyTooLarge(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) { c.MaxBodyBytes = 16 })

	rec := f.do(t, http.MethodPost, "/rules", axisYoung)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) {
		c.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.01, Burst: 2}
	})

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/evaluate", `{"age":25}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := f.do(t, http.MethodPost, "/evaluate", `{"age":25}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode(t, rec)["error"])

	// Reads are not throttled.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/rules", "").Code)

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{"age":25}`))
	req.Header.Set("X-Real-IP", "198.51.100.7")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRule_Concurrent(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	codes := make(chan int, 10)
	for i := range 10 {
		doc := axisYoung
		if i%2 == 1 {
			doc = axisMid
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- f.do(t, http.MethodPost, "/rules", doc).Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := make(map[int]int)
	for c := range codes {
		counts[c]++
	}
	assert.Equal(t, map[int]int{http.StatusCreated: 1, http.StatusConflict: 9}, counts)
}

func TestListRules_NewestFirst(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["rules"])

	for _, doc := range []string{
		axisYoung,
		`{"lender":"HDFC","rule":{"and":[{"income":{"operator":">=","value":50000}}]}}`,
		`{"lender":"SBI","rule":{"and":[{"credit_score":{"operator":">=","value":700}}]}}`,
	} {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/rules", doc).Code)
	}

	rec = f.do(t, http.MethodGet, "/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decode(t, rec)["rules"].([]any)
	require.Len(t, rules, 3)
	var lenders []string
	for _, r := range rules {
		lenders = append(lenders, r.(map[string]any)["lender"].(string))
	}
	assert.Equal(t, []string{"SBI", "HDFC", "AXIS"}, lenders)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/rules/preview", axisYoung)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "AXIS", body["lender"])
	regions := body["regions"].([]any)
	require.Len(t, regions, 1)
	assert.Equal(t, "age ∈ (18, 30)", regions[0].(map[string]any)["region"])
	assert.Nil(t, body["conflict"])
	assert.Zero(t, f.store.Count())

	rec = f.do(t, http.MethodPost, "/rules/preview", `{"lender":"AXIS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/rules", axisYoung).Code)

	rec := f.do(t, http.MethodPost, "/evaluate", `{"name":"Asha","age":25,"income":50000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Asha", body["name"])
	assert.Equal(t, 25.0, body["age"])
	assert.Equal(t, []any{"AXIS"}, body["eligibleLenders"])
	assert.NotContains(t, body, "ruleErrors")

	rec = f.do(t, http.MethodPost, "/evaluate", `{"age":16}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["eligibleLenders"])

	rec = f.do(t, http.MethodPost, "/evaluate", `{"age":"young"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, []any{}, body["eligibleLenders"])
	require.Len(t, body["ruleErrors"], 1)
}

func TestEvaluate_MalformedRecord(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{``, `[1,2]`, `null`, `{"age":1} {"age":2}`, `{"age":`} {
		rec := f.do(t, http.MethodPost, "/evaluate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

type brokenEvaluator struct{}

func (brokenEvaluator) Evaluate(context.Context, evaluator.Record) (*eligibility.Result, error) {
	return nil, errors.New("store unavailable")
}

type brokenRules struct{ *registry.Registry }

func (brokenRules) List(context.Context) ([]*rule.Rule, error) {
	return nil, errors.New("store unavailable")
}

func TestInternalErrors(t *testing.T) {
	reg, err := registry.New(store.NewMemory(), registry.Config{})
	require.NoError(t, err)
	srv, err := New(config.Default().Server, Deps{Rules: brokenRules{reg}, Eligibility: brokenEvaluator{}})
	require.NoError(t, err)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/rules", ""},
		{http.MethodPost, "/evaluate", `{"age":25}`},
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "store unavailable")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, "test", decode(t, f.do(t, http.MethodGet, "/version", ""))["version"])

	f.do(t, http.MethodPost, "/rules", axisYoung)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lendrules_rules_submitted_total{outcome="created"}`)
	assert.Contains(t, rec.Body.String(), `route="/rules"`)

	require.NoError(t, f.store.Close())
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/ready", "").Code)
}

func TestRouting(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["error"])

	rec = f.do(t, http.MethodDelete, "/rules", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestCORS(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) {
		c.CORS.AllowedOrigins = []string{"https://console.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/rules", nil)
	req.Header.Set("Origin", "https://console.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://console.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartShutdown(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) { c.ListenAddress = "127.0.0.1:0" })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Start(ctx) }()

	require.Eventually(t, f.server.IsRunning, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Post("http://"+f.server.Addr()+"/evaluate", "application/json", bytes.NewBufferString(`{"age":20}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, f.server.IsRunning())
}
