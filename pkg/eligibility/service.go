package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/evaluator"
	"mercator-hq/lendrules/pkg/store"
	"mercator-hq/lendrules/pkg/telemetry/logging"
	"mercator-hq/lendrules/pkg/telemetry/metrics"
	"mercator-hq/lendrules/pkg/telemetry/tracing"
)

// DefaultConcurrency bounds the number of rules evaluated at once.
const DefaultConcurrency = 16

// RuleFailure is a rule that could not be evaluated against the record.
type RuleFailure struct {
	RuleID string `json:"ruleId"`
	Lender string `json:"lender"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error"`
}

// Result is the outcome of one eligibility query.
type Result struct {
	// EligibleLenders is sorted and holds each lender once.
	EligibleLenders []string `json:"eligibleLenders"`
	// RulesEvaluated counts the rules in the snapshot.
	RulesEvaluated int           `json:"rulesEvaluated"`
	Failures       []RuleFailure `json:"failures,omitempty"`
}

// Service evaluates borrower records against the stored rules.
type Service struct {
	store       store.Store
	concurrency int
	timeout     time.Duration

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds parallel rule evaluation. Values below one keep
// the default.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTimeout bounds a whole evaluation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Default(l) }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// NewService creates a service reading rules from st.
func NewService(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("eligibility: store cannot be nil")
	}
	s := &Service{
		store:       st,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracing.InstrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate returns the lenders with at least one rule matching record.
// Missing fields make a condition false. A type mismatch fails only the
// rule it occurs in. Store errors and cancellation fail the call.
func (s *Service) Evaluate(ctx context.Context, record evaluator.Record) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "eligibility.evaluate")
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rules, err := s.store.FindAll(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("eligibility: load rules: %w", err)
	}
	span.SetAttributes(tracing.Count(tracing.AttrRuleCount, len(rules)))

	var (
		mu       sync.Mutex
		eligible = make(map[string]struct{})
		failures []RuleFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, r := range rules {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ok, err := evaluator.Evaluate(gctx, r.Tree, record)
			if err != nil {
				var tm *evaluator.TypeMismatchError
				if !errors.As(err, &tm) {
					return err
				}
				mu.Lock()
				failures = append(failures, failureOf(r, tm))
				mu.Unlock()
				return nil
			}
			if ok {
				mu.Lock()
				eligible[r.Lender] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("eligibility: %w", err)
	}
	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("eligibility: %w", err)
	}

	res := &Result{
		EligibleLenders: make([]string, 0, len(eligible)),
		RulesEvaluated:  len(rules),
		Failures:        failures,
	}
	for lender := range eligible {
		res.EligibleLenders = append(res.EligibleLenders, lender)
	}
	sort.Strings(res.EligibleLenders)
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].RuleID < res.Failures[j].RuleID })

	elapsed := time.Since(start)
	s.metrics.RecordEvaluation(elapsed, len(res.EligibleLenders), len(res.Failures))
	span.SetAttributes(tracing.Count(tracing.AttrEligibleCount, len(res.EligibleLenders)))

	for _, f := range res.Failures {
		s.logger.WarnContext(logging.WithLender(ctx, f.Lender), "rule not evaluable for record",
			"rule_id", f.RuleID, "field", f.Field, "error", f.Error)
	}
	s.logger.DebugContext(ctx, "eligibility evaluated",
		"rules", len(rules),
		"eligible", len(res.EligibleLenders),
		"duration", elapsed,
	)
	return res, nil
}

func failureOf(r *rule.Rule, tm *evaluator.TypeMismatchError) RuleFailure {
	return RuleFailure{RuleID: r.ID, Lender: r.Lender, Field: tm.Field, Error: tm.Error()}
}
