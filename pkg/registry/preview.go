package registry

import (
	"context"

	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/ast"
	"mercator-hq/lendrules/pkg/rule/conflict"
	"mercator-hq/lendrules/pkg/rule/region"
)

// Preview describes what storing a document would do, without storing it.
type Preview struct {
	Lender      string `json:"lender"`
	Expression  string `json:"expression"`
	Clauses     int    `json:"clauses"`
	Depth       int    `json:"depth"`
	// Satisfiable is false when every clause is degenerate, so the rule
	// would match no record.
	Satisfiable bool                             `json:"satisfiable"`
	Regions     []RegionPreview                  `json:"regions"`
	Warnings    []region.DegenerateClauseWarning `json:"warnings,omitempty"`
	// Conflict is set when the document would be rejected as a duplicate
	// or an overlap.
	Conflict *conflict.Report `json:"conflict,omitempty"`
}

// RegionPreview is one satisfiable clause with a record that falls inside it.
type RegionPreview struct {
	Box    region.Box     `json:"box"`
	Region string         `json:"region"`
	Sample map[string]any `json:"sample"`
}

// Accepted reports whether the document would be stored.
func (p *Preview) Accepted() bool {
	return p.Conflict == nil
}

// Preview validates data, computes its regions with a sample record per
// region, and runs the conflict check against the lender's stored rules.
// Nothing is written. Invalid documents fail with *ruleerrors.ErrorList.
func (r *Registry) Preview(ctx context.Context, data []byte) (*Preview, error) {
	ctx, span := r.tracer.Start(ctx, "registry.preview")
	defer span.End()

	doc, res, err := r.prepare(data)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.FindByLender(ctx, doc.Lender)
	if err != nil {
		return nil, err
	}

	candidate := rule.New(doc, "", r.now().UTC())
	report, err := r.detector.CheckRegions(ctx, candidate, res, existing)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Lender:      doc.Lender,
		Expression:  ast.Expression(doc.Rule),
		Clauses:     res.Clauses,
		Depth:       ast.Depth(doc.Rule),
		Satisfiable: res.Satisfiable(),
		Regions:     make([]RegionPreview, 0, len(res.Boxes)),
		Warnings:    res.Warnings,
	}
	for _, b := range res.Boxes {
		p.Regions = append(p.Regions, RegionPreview{Box: b, Region: b.String(), Sample: b.Sample()})
	}
	if !report.OK() {
		p.Conflict = report
	}
	return p, nil
}
