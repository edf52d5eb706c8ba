package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/ast"
	"mercator-hq/lendrules/pkg/rule/conflict"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
	"mercator-hq/lendrules/pkg/rule/parser"
	"mercator-hq/lendrules/pkg/rule/region"
	"mercator-hq/lendrules/pkg/store"
	"mercator-hq/lendrules/pkg/telemetry/logging"
	"mercator-hq/lendrules/pkg/telemetry/metrics"
	"mercator-hq/lendrules/pkg/telemetry/tracing"
)

// Config holds the rule language limits applied on submission.
type Config struct {
	// Catalog is the field whitelist; nil selects the default catalog.
	Catalog *ast.Catalog
	// MaxDepth bounds tree nesting; zero keeps the parser default.
	MaxDepth int
	// MaxClauses bounds the normal form size; zero keeps the region default.
	MaxClauses int
}

// Registry is the create path for rules. It validates documents, rejects
// duplicates and overlapping rules of the same lender, and persists the rest.
// Submissions for one lender are serialized; different lenders proceed in
// parallel.
type Registry struct {
	store     store.Store
	validator *rule.Validator
	extractor *region.Extractor
	detector  *conflict.Detector
	locks     *lenderLocks

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = logging.Default(l) }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) { r.metrics = c }
}

// WithClock sets the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator sets the rule ID source.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) { r.newID = gen }
}

// New creates a registry persisting into st.
func New(st store.Store, cfg Config, opts ...Option) (*Registry, error) {
	if st == nil {
		return nil, errors.New("registry: store cannot be nil")
	}

	var parserOpts []parser.Option
	if cfg.MaxDepth > 0 {
		parserOpts = append(parserOpts, parser.WithMaxDepth(cfg.MaxDepth))
	}
	v, err := rule.NewValidator(cfg.Catalog, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	extractor := region.NewExtractor(v.Catalog(), region.WithMaxClauses(cfg.MaxClauses))

	r := &Registry{
		store:     st,
		validator: v,
		extractor: extractor,
		detector:  conflict.NewDetector(extractor),
		locks:     newLenderLocks(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracing.InstrumentationName),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Catalog returns the field catalog submissions are validated against.
func (r *Registry) Catalog() *ast.Catalog {
	return r.validator.Catalog()
}

// Extractor returns the region extractor used for conflict detection.
func (r *Registry) Extractor() *region.Extractor {
	return r.extractor
}

// SubmitResult is a successfully stored rule.
type SubmitResult struct {
	Rule     *rule.Rule                       `json:"rule"`
	Warnings []region.DegenerateClauseWarning `json:"warnings,omitempty"`
	Clauses  int                              `json:"clauses"`
}

// Submit validates a wire-format document and stores it.
//
// Errors:
//   - *ruleerrors.ErrorList when the document is invalid
//   - *conflict.DuplicateRuleError when the lender has an identical rule
//   - *conflict.ConflictError when the rule overlaps one of the lender's rules
//   - any other error is a store failure
func (r *Registry) Submit(ctx context.Context, data []byte) (*SubmitResult, error) {
	ctx, span := r.tracer.Start(ctx, "registry.submit")
	defer span.End()

	doc, res, err := r.prepare(data)
	if err != nil {
		r.metrics.RecordSubmission(metrics.OutcomeInvalid)
		span.SetAttributes(tracing.Outcome(metrics.OutcomeInvalid))
		return nil, err
	}

	ctx = logging.WithLender(ctx, doc.Lender)
	span.SetAttributes(tracing.Lender(doc.Lender), tracing.Count(tracing.AttrClauses, res.Clauses))

	candidate := rule.New(doc, r.newID(), r.now().UTC())
	err = r.save(ctx, candidate, res)
	outcome := outcomeOf(err)
	r.metrics.RecordSubmission(outcome)
	span.SetAttributes(tracing.Outcome(outcome))

	if err != nil {
		if outcome == metrics.OutcomeStoreError {
			tracing.RecordError(span, err)
			r.logger.ErrorContext(ctx, "rule submission failed", "error", err)
		} else {
			r.logger.InfoContext(ctx, "rule rejected", "outcome", outcome, "reason", err.Error())
		}
		return nil, err
	}

	span.SetAttributes(tracing.RuleID(candidate.ID))
	r.metrics.IncRulesStored()
	r.metrics.RecordDegenerateClauses(len(res.Warnings))
	for _, w := range res.Warnings {
		r.logger.WarnContext(ctx, "rule has an unsatisfiable clause", "rule_id", candidate.ID, "warning", w.String())
	}
	r.logger.InfoContext(ctx, "rule created", "rule_id", candidate.ID, "expression", candidate.Expression)

	return &SubmitResult{Rule: candidate, Warnings: res.Warnings, Clauses: res.Clauses}, nil
}

// prepare validates data and computes its regions. Region errors are
// returned in the same ErrorList form as validation errors.
func (r *Registry) prepare(data []byte) (*ast.Document, *region.Result, error) {
	doc, err := r.validator.Validate(data)
	if err != nil {
		return nil, nil, err
	}
	res, err := r.extractor.Extract(doc.Rule)
	if err != nil {
		var se *ruleerrors.SchemaError
		if errors.As(err, &se) {
			el := ruleerrors.NewErrorList()
			el.Add(se)
			return nil, nil, el
		}
		return nil, nil, err
	}
	return doc, res, nil
}

// save runs the conflict check and the insert under the lender's lock.
// Stores that support it repeat the check inside their own transaction so
// writers in other processes are serialized too.
func (r *Registry) save(ctx context.Context, candidate *rule.Rule, res *region.Result) error {
	unlock := r.locks.Lock(candidate.Lender)
	defer unlock()

	check := func(existing []*rule.Rule) error {
		report, err := r.detector.CheckRegions(ctx, candidate, res, existing)
		if err != nil {
			return err
		}
		return report.Err()
	}

	var err error
	if saver, ok := r.store.(store.AtomicSaver); ok {
		err = saver.SaveIf(ctx, candidate, check)
	} else {
		var existing []*rule.Rule
		existing, err = r.store.FindByLender(ctx, candidate.Lender)
		if err == nil {
			err = check(existing)
		}
		if err == nil {
			err = r.store.Save(ctx, candidate)
		}
	}

	// A unique-constraint hit means another writer stored the same tree
	// between our read and insert.
	if store.IsDuplicate(err) {
		report := &conflict.Report{Kind: conflict.KindDuplicate, Lender: candidate.Lender}
		if winner := r.findByKey(ctx, candidate); winner != nil {
			report.ExistingID = winner.ID
			report.ExistingExpression = winner.Expression
		}
		return &conflict.DuplicateRuleError{Report: report}
	}
	return err
}

// findByKey returns the stored rule of candidate's lender with the same
// canonical tree, or nil if it cannot be read back.
func (r *Registry) findByKey(ctx context.Context, candidate *rule.Rule) *rule.Rule {
	existing, err := r.store.FindByLender(ctx, candidate.Lender)
	if err != nil {
		r.logger.WarnContext(ctx, "duplicate rule lookup failed", "lender", candidate.Lender, "error", err)
		return nil
	}
	for _, e := range existing {
		if ast.CanonicalKey(e.Tree) == candidate.Key {
			return e
		}
	}
	return nil
}

func outcomeOf(err error) string {
	var (
		dup *conflict.DuplicateRuleError
		ce  *conflict.ConflictError
		el  *ruleerrors.ErrorList
	)
	switch {
	case err == nil:
		return metrics.OutcomeCreated
	case errors.As(err, &dup):
		return metrics.OutcomeDuplicate
	case errors.As(err, &ce):
		return metrics.OutcomeOverlap
	case errors.As(err, &el):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeStoreError
	}
}

// List returns every stored rule, newest first.
func (r *Registry) List(ctx context.Context) ([]*rule.Rule, error) {
	return r.store.FindAll(ctx)
}

// ListByLender returns the lender's rules, oldest first.
func (r *Registry) ListByLender(ctx context.Context, lender string) ([]*rule.Rule, error) {
	return r.store.FindByLender(ctx, lender)
}
