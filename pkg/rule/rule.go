package rule

import (
	"encoding/json"
	"time"

	"mercator-hq/lendrules/pkg/rule/ast"
	"mercator-hq/lendrules/pkg/rule/parser"
	"mercator-hq/lendrules/pkg/rule/validator"
)

// Rule is a validated, stored eligibility rule. Rules are immutable once
// created.
type Rule struct {
	ID        string
	Lender    string
	Tree      ast.Node
	CreatedAt time.Time

	// Expression is the human-readable rendering of Tree.
	Expression string
	// Key is the canonical form of Tree used for duplicate detection.
	Key string
}

// New builds a Rule from a validated document.
func New(doc *ast.Document, id string, createdAt time.Time) *Rule {
	return &Rule{
		ID:         id,
		Lender:     doc.Lender,
		Tree:       doc.Rule,
		CreatedAt:  createdAt,
		Expression: ast.Expression(doc.Rule),
		Key:        ast.CanonicalKey(doc.Rule),
	}
}

// Document returns the wire document the rule was created from.
func (r *Rule) Document() *ast.Document {
	return &ast.Document{Lender: r.Lender, Rule: r.Tree}
}

type ruleJSON struct {
	ID         string         `json:"id"`
	Lender     string         `json:"lender"`
	Rule       map[string]any `json:"rule"`
	Expression string         `json:"expression"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// MarshalJSON encodes the rule with its tree in wire format.
func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleJSON{
		ID:         r.ID,
		Lender:     r.Lender,
		Rule:       parser.EncodeTree(r.Tree),
		Expression: r.Expression,
		CreatedAt:  r.CreatedAt.UTC(),
	})
}

// Validator runs the parser and the semantic validator as one step.
type Validator struct {
	parser    *parser.Parser
	validator *validator.Validator
}

// NewValidator creates a Validator over catalog (nil selects the default
// catalog) with the given parser options.
func NewValidator(catalog *ast.Catalog, opts ...parser.Option) (*Validator, error) {
	p, err := parser.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Validator{parser: p, validator: validator.New(catalog)}, nil
}

// Catalog returns the field catalog rules are checked against.
func (v *Validator) Catalog() *ast.Catalog {
	return v.validator.Catalog()
}

// Validate turns a wire-format document into a validated Document, or
// returns an *errors.ErrorList.
func (v *Validator) Validate(data []byte) (*ast.Document, error) {
	doc, err := v.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := v.validator.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateValue is Validate for an already decoded JSON value.
func (v *Validator) ValidateValue(raw any) (*ast.Document, error) {
	doc, err := v.parser.ParseValue(raw)
	if err != nil {
		return nil, err
	}
	if err := v.validator.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

var defaultValidator = func() *Validator {
	v, err := NewValidator(nil)
	if err != nil {
		panic(err)
	}
	return v
}()

// Validate validates data against the default field catalog.
func Validate(data []byte) (*ast.Document, error) {
	return defaultValidator.Validate(data)
}
