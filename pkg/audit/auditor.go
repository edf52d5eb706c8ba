package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/conflict"
	"mercator-hq/lendrules/pkg/rule/parser"
	"mercator-hq/lendrules/pkg/rule/region"
	"mercator-hq/lendrules/pkg/store"
	"mercator-hq/lendrules/pkg/telemetry/logging"
	"mercator-hq/lendrules/pkg/telemetry/metrics"
)

// Kind classifies a finding.
type Kind string

const (
	KindInvalid    Kind = "invalid"
	KindDegenerate Kind = "degenerate"
	KindDuplicate  Kind = "duplicate"
	KindOverlap    Kind = "overlap"
)

// Kinds lists every finding kind.
var Kinds = []Kind{KindInvalid, KindDegenerate, KindDuplicate, KindOverlap}

// Finding is one problem with a stored rule.
type Finding struct {
	Kind   Kind   `json:"kind"`
	RuleID string `json:"ruleId"`
	Lender string `json:"lender"`
	// OtherID is the older rule a duplicate or overlap was found against.
	OtherID string `json:"otherId,omitempty"`
	Detail  string `json:"detail"`
}

// Report is the result of one audit pass.
type Report struct {
	Rules    int           `json:"rules"`
	Lenders  int           `json:"lenders"`
	Findings []Finding     `json:"findings"`
	Duration time.Duration `json:"duration"`
}

// Count returns the number of findings of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// Clean reports whether the pass found nothing.
func (r *Report) Clean() bool {
	return len(r.Findings) == 0
}

// Auditor runs audit passes over a store.
type Auditor struct {
	store     store.Store
	validator *rule.Validator
	extractor *region.Extractor
	detector  *conflict.Detector

	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Collector
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Auditor) { a.logger = logging.Default(l) }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Auditor) { a.metrics = c }
}

// WithConcurrency bounds how many lenders are audited at once.
func WithConcurrency(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an auditor checking rules with the same limits the create
// path applies.
func New(st store.Store, cfg registry.Config, opts ...Option) (*Auditor, error) {
	if st == nil {
		return nil, errors.New("audit: store cannot be nil")
	}
	var parserOpts []parser.Option
	if cfg.MaxDepth > 0 {
		parserOpts = append(parserOpts, parser.WithMaxDepth(cfg.MaxDepth))
	}
	v, err := rule.NewValidator(cfg.Catalog, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	ex := region.NewExtractor(v.Catalog(), region.WithMaxClauses(cfg.MaxClauses))

	a := &Auditor{
		store:       st,
		validator:   v,
		extractor:   ex,
		detector:    conflict.NewDetector(ex),
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run performs one audit pass.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	all, err := a.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: load rules: %w", err)
	}

	byLender := make(map[string][]*rule.Rule)
	for _, r := range all {
		byLender[r.Lender] = append(byLender[r.Lender], r)
	}

	var (
		mu       sync.Mutex
		findings []Finding
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for lender, rules := range byLender {
		g.Go(func() error {
			found, err := a.auditLender(gctx, rules)
			if err != nil {
				return fmt.Errorf("lender %s: %w", lender, err)
			}
			mu.Lock()
			findings = append(findings, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Lender != findings[j].Lender {
			return findings[i].Lender < findings[j].Lender
		}
		if findings[i].RuleID != findings[j].RuleID {
			return findings[i].RuleID < findings[j].RuleID
		}
		return findings[i].Kind < findings[j].Kind
	})

	report := &Report{
		Rules:    len(all),
		Lenders:  len(byLender),
		Findings: findings,
		Duration: time.Since(start),
	}
	a.publish(ctx, report)
	return report, nil
}

// auditLender checks each rule alone and then against the lender's older
// rules.
func (a *Auditor) auditLender(ctx context.Context, rules []*rule.Rule) ([]Finding, error) {
	// FindAll is newest first.
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })

	var findings []Finding
	valid := make([]*rule.Rule, 0, len(rules))
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.revalidate(r); err != nil {
			findings = append(findings, Finding{Kind: KindInvalid, RuleID: r.ID, Lender: r.Lender, Detail: err.Error()})
			continue
		}
		res, err := a.extractor.Extract(r.Tree)
		if err != nil {
			findings = append(findings, Finding{Kind: KindInvalid, RuleID: r.ID, Lender: r.Lender, Detail: err.Error()})
			continue
		}
		for _, w := range res.Warnings {
			findings = append(findings, Finding{Kind: KindDegenerate, RuleID: r.ID, Lender: r.Lender, Detail: w.String()})
		}

		report, err := a.detector.CheckRegions(ctx, r, res, valid)
		if err != nil {
			return nil, err
		}
		switch report.Kind {
		case conflict.KindDuplicate:
			findings = append(findings, Finding{Kind: KindDuplicate, RuleID: r.ID, Lender: r.Lender, OtherID: report.ExistingID, Detail: report.ExistingExpression})
		case conflict.KindOverlap:
			findings = append(findings, Finding{Kind: KindOverlap, RuleID: r.ID, Lender: r.Lender, OtherID: report.ExistingID, Detail: report.Region})
		}
		valid = append(valid, r)
	}
	return findings, nil
}

// revalidate runs a stored rule back through the create-path checks, so
// rules made invalid by a catalog or limit change are reported.
func (a *Auditor) revalidate(r *rule.Rule) error {
	_, err := a.validator.ValidateValue(map[string]any{
		"lender": r.Lender,
		"rule":   parser.EncodeTree(r.Tree),
	})
	return err
}

func (a *Auditor) publish(ctx context.Context, report *Report) {
	a.metrics.SetRulesStored(report.Rules)
	for _, k := range Kinds {
		a.metrics.SetAuditFindings(string(k), report.Count(k))
	}

	for _, f := range report.Findings {
		a.logger.WarnContext(logging.WithLender(ctx, f.Lender), "audit finding",
			"kind", f.Kind,
			"rule_id", f.RuleID,
			"other_id", f.OtherID,
			"detail", f.Detail,
		)
	}
	a.logger.InfoContext(ctx, "audit pass completed",
		"rules", report.Rules,
		"lenders", report.Lenders,
		"findings", len(report.Findings),
		"duration", report.Duration,
	)
}
