package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/lendrules/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), &config.TracingConfig{Enabled: false}, "test")
	require.NoError(t, err)
	assert.False(t, tr.Enabled())

	_, span := tr.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test")
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestMiddlewareAndAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var inner trace.SpanContext
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		_, span := otel.Tracer(InstrumentationName).Start(r.Context(), "registry.submit")
		span.SetAttributes(Lender("AXIS"), Outcome("created"), Count(AttrClauses, 2))
		RecordError(span, errors.New("boom"))
		RecordError(span, nil)
		span.End()
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rules", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, inner.IsValid())

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "registry.submit", spans[0].Name())
	assert.Equal(t, "POST /rules", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Len(t, spans[0].Events(), 1)
}
