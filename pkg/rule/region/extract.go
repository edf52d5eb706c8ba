package region

import (
	"fmt"
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// DefaultMaxClauses bounds the size of the normal form of one rule.
const DefaultMaxClauses = 4096

// DegenerateClauseWarning reports a clause that can never match.
type DegenerateClauseWarning struct {
	// Clause is the zero-based index of the clause in normal form.
	Clause int `json:"clause"`
	// Expression renders the clause's conditions.
	Expression string `json:"expression"`
	// Fields lists the fields whose constraints contradict each other.
	Fields []string `json:"fields"`
	// Paths locates the clause's conditions in the document.
	Paths []ast.Path `json:"paths,omitempty"`
}

// String returns a one-line description.
func (w DegenerateClauseWarning) String() string {
	return fmt.Sprintf("clause %d (%s) is unsatisfiable on %s", w.Clause, w.Expression, strings.Join(w.Fields, ", "))
}

// Result holds the regions of one rule tree.
type Result struct {
	// Boxes are the satisfiable clauses, in normal-form order.
	Boxes []Box `json:"boxes"`
	// Warnings describe the dropped clauses.
	Warnings []DegenerateClauseWarning `json:"warnings,omitempty"`
	// Clauses counts every clause of the normal form, including dropped ones.
	Clauses int `json:"clauses"`
}

// Satisfiable reports whether any clause survived.
func (r *Result) Satisfiable() bool {
	return len(r.Boxes) > 0
}

// Extractor computes regions against a field catalog.
type Extractor struct {
	catalog    *ast.Catalog
	maxClauses int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxClauses bounds the normal form size.
func WithMaxClauses(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxClauses = n
		}
	}
}

// NewExtractor creates an extractor. A nil catalog selects the default.
func NewExtractor(catalog *ast.Catalog, opts ...Option) *Extractor {
	if catalog == nil {
		catalog = ast.DefaultCatalog()
	}
	e := &Extractor{catalog: catalog, maxClauses: DefaultMaxClauses}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = NewExtractor(nil)

// Extract computes regions with the default catalog.
func Extract(n ast.Node) (*Result, error) {
	return defaultExtractor.Extract(n)
}

// Extract expands the tree into normal form and turns each clause into a
// box, dropping unsatisfiable clauses with a warning.
func (e *Extractor) Extract(n ast.Node) (*Result, error) {
	clauses, err := e.dnf(n)
	if err != nil {
		return nil, err
	}

	res := &Result{Boxes: make([]Box, 0, len(clauses)), Clauses: len(clauses)}
	for i, clause := range clauses {
		box, err := e.clauseBox(clause)
		if err != nil {
			return nil, err
		}
		if empty := box.EmptyFields(); len(empty) > 0 {
			res.Warnings = append(res.Warnings, degenerate(i, clause, empty))
			continue
		}
		res.Boxes = append(res.Boxes, box)
	}
	return res, nil
}

// dnf returns the clauses of the disjunctive normal form. Each clause is a
// list of conditions to be conjoined.
func (e *Extractor) dnf(n ast.Node) ([][]*ast.Condition, error) {
	switch n := n.(type) {
	case *ast.Condition:
		return [][]*ast.Condition{{n}}, nil
	case *ast.Disjunction:
		var out [][]*ast.Condition
		for _, child := range n.Children {
			cs, err := e.dnf(child)
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
			if len(out) > e.maxClauses {
				return nil, e.tooLarge(n)
			}
		}
		return out, nil
	case *ast.Conjunction:
		out := [][]*ast.Condition{{}}
		for _, child := range n.Children {
			cs, err := e.dnf(child)
			if err != nil {
				return nil, err
			}
			if len(out)*len(cs) > e.maxClauses {
				return nil, e.tooLarge(n)
			}
			next := make([][]*ast.Condition, 0, len(out)*len(cs))
			for _, left := range out {
				for _, right := range cs {
					clause := make([]*ast.Condition, 0, len(left)+len(right))
					clause = append(clause, left...)
					clause = append(clause, right...)
					next = append(next, clause)
				}
			}
			out = next
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("region: nil rule tree")
	default:
		return nil, fmt.Errorf("region: unsupported node %T", n)
	}
}

func (e *Extractor) tooLarge(n ast.Node) error {
	return ruleerrors.New(ruleerrors.ReasonClauseLimitExceeded, n.Location(),
		"rule expands to more than %d clauses", e.maxClauses)
}

func (e *Extractor) clauseBox(clause []*ast.Condition) (Box, error) {
	box := newBox()
	for _, c := range clause {
		field, ok := e.catalog.Lookup(c.Field)
		if !ok {
			return Box{}, ruleerrors.New(ruleerrors.ReasonUnknownField, c.Path, "unknown field %q", c.Field)
		}
		if c.Value.Type != field.Type.ValueType() {
			return Box{}, ruleerrors.New(ruleerrors.ReasonTypeMismatch, c.Path, "field %q expects a %s value", c.Field, field.Type.ValueType())
		}

		switch field.Type {
		case ast.FieldTypeNumeric:
			r, err := rangeFor(c, field.Domain)
			if err != nil {
				return Box{}, ruleerrors.New(ruleerrors.ReasonUnknownOperator, c.Path, "%v", err)
			}
			if cur, ok := box.Numeric[c.Field]; ok {
				r = cur.Intersect(r)
			}
			box.Numeric[c.Field] = r
		case ast.FieldTypeCategorical:
			s, err := setFor(c)
			if err != nil {
				return Box{}, ruleerrors.New(ruleerrors.ReasonOperatorNotAllowed, c.Path, "%v", err)
			}
			if cur, ok := box.Categorical[c.Field]; ok {
				s = cur.Intersect(s)
			}
			box.Categorical[c.Field] = s
		}
	}
	return box, nil
}

func degenerate(i int, clause []*ast.Condition, fields []string) DegenerateClauseWarning {
	children := make([]ast.Node, len(clause))
	paths := make([]ast.Path, 0, len(clause))
	for j, c := range clause {
		children[j] = c
		if c.Path != ast.RootPath {
			paths = append(paths, c.Path)
		}
	}
	return DegenerateClauseWarning{
		Clause:     i,
		Expression: ast.Expression(&ast.Conjunction{Children: children}),
		Fields:     fields,
		Paths:      paths,
	}
}
