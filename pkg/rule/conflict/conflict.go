package conflict

import (
	"context"
	"fmt"
	"sync"

	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/ast"
	"mercator-hq/lendrules/pkg/rule/region"
)

// Kind classifies a conflict check outcome.
type Kind string

const (
	KindNone      Kind = "none"
	KindDuplicate Kind = "duplicate"
	KindOverlap   Kind = "overlap"
)

// Report is the outcome of a conflict check.
type Report struct {
	Kind   Kind   `json:"kind"`
	Lender string `json:"lender"`
	// ExistingID identifies the stored rule the candidate collides with.
	ExistingID string `json:"existingId,omitempty"`
	// ExistingExpression renders the stored rule's tree.
	ExistingExpression string `json:"existingExpression,omitempty"`
	// Box is the shared region for an Overlap.
	Box *region.Box `json:"overlappingBox,omitempty"`
	// Region is Box rendered as text.
	Region string `json:"overlappingRegion,omitempty"`
	// Regions are the candidate's satisfiable boxes.
	Regions []region.Box `json:"-"`
	// Warnings are the candidate's degenerate clauses.
	Warnings []region.DegenerateClauseWarning `json:"warnings,omitempty"`
}

// OK reports whether the candidate may be stored.
func (r *Report) OK() bool {
	return r.Kind == KindNone
}

// Err returns the error equivalent of the report, or nil for KindNone.
func (r *Report) Err() error {
	switch r.Kind {
	case KindDuplicate:
		return &DuplicateRuleError{Report: r}
	case KindOverlap:
		return &ConflictError{Report: r}
	default:
		return nil
	}
}

// DuplicateRuleError reports a candidate structurally equal to a stored
// rule of the same lender.
type DuplicateRuleError struct {
	Report *Report
}

// Error returns the error message.
func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("lender %q already has an identical rule %s", e.Report.Lender, e.Report.ExistingID)
}

// ConflictError reports a candidate whose region overlaps a stored rule of
// the same lender.
type ConflictError struct {
	Report *Report
}

// Error returns the error message.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("rule overlaps rule %s of lender %q on %s", e.Report.ExistingID, e.Report.Lender, e.Report.Region)
}

// Detector checks candidates against stored rules. Regions of stored rules
// are cached by rule ID, since stored rules never change.
type Detector struct {
	extractor *region.Extractor
	cache     sync.Map // rule ID -> cachedRegions
}

type cachedRegions struct {
	key   string
	boxes []region.Box
}

// NewDetector creates a detector computing regions with extractor. A nil
// extractor uses the default catalog.
func NewDetector(extractor *region.Extractor) *Detector {
	if extractor == nil {
		extractor = region.NewExtractor(nil)
	}
	return &Detector{extractor: extractor}
}

// Extractor returns the region extractor used by the detector.
func (d *Detector) Extractor() *region.Extractor {
	return d.extractor
}

// Check compares candidate against existing. Rules of other lenders in
// existing are ignored. Cancellation is checked between stored rules.
func (d *Detector) Check(ctx context.Context, candidate *rule.Rule, existing []*rule.Rule) (*Report, error) {
	cand, err := d.extractor.Extract(candidate.Tree)
	if err != nil {
		return nil, fmt.Errorf("candidate regions: %w", err)
	}
	return d.CheckRegions(ctx, candidate, cand, existing)
}

// CheckRegions is Check with the candidate's regions already computed.
func (d *Detector) CheckRegions(ctx context.Context, candidate *rule.Rule, cand *region.Result, existing []*rule.Rule) (*Report, error) {
	report := &Report{
		Kind:     KindNone,
		Lender:   candidate.Lender,
		Regions:  cand.Boxes,
		Warnings: cand.Warnings,
	}

	key := candidate.Key
	if key == "" {
		key = ast.CanonicalKey(candidate.Tree)
	}

	same := make([]*rule.Rule, 0, len(existing))
	for _, r := range existing {
		if r.Lender != candidate.Lender || (candidate.ID != "" && r.ID == candidate.ID) {
			continue
		}
		same = append(same, r)
		if ruleKey(r) == key {
			report.Kind = KindDuplicate
			report.ExistingID = r.ID
			report.ExistingExpression = r.Expression
			return report, nil
		}
	}

	for _, r := range same {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		boxes, err := d.regionsOf(r)
		if err != nil {
			return nil, fmt.Errorf("regions of rule %s: %w", r.ID, err)
		}
		if shared, ok := region.OverlapSets(cand.Boxes, boxes); ok {
			report.Kind = KindOverlap
			report.ExistingID = r.ID
			report.ExistingExpression = r.Expression
			report.Box = &shared
			report.Region = shared.String()
			return report, nil
		}
	}
	return report, nil
}

func (d *Detector) regionsOf(r *rule.Rule) ([]region.Box, error) {
	key := ruleKey(r)
	if r.ID != "" {
		if v, ok := d.cache.Load(r.ID); ok {
			if c := v.(cachedRegions); c.key == key {
				return c.boxes, nil
			}
		}
	}
	res, err := d.extractor.Extract(r.Tree)
	if err != nil {
		return nil, err
	}
	if r.ID != "" {
		d.cache.Store(r.ID, cachedRegions{key: key, boxes: res.Boxes})
	}
	return res.Boxes, nil
}

func ruleKey(r *rule.Rule) string {
	if r.Key != "" {
		return r.Key
	}
	return ast.CanonicalKey(r.Tree)
}

var defaultDetector = NewDetector(nil)

// Check runs the default detector.
func Check(ctx context.Context, candidate *rule.Rule, existing []*rule.Rule) (*Report, error) {
	return defaultDetector.Check(ctx, candidate, existing)
}
