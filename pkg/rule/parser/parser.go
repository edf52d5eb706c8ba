package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// DefaultMaxDepth bounds the nesting of logical nodes in a rule tree.
const DefaultMaxDepth = 32

// Parser converts wire-format rule documents into ast.Document values.
// A Parser is safe for concurrent use.
type Parser struct {
	schema   *jsonschema.Schema
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the maximum nesting depth of a rule tree.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// New creates a Parser with the embedded wire-format schema.
func New(opts ...Option) (*Parser, error) {
	s, err := compileSchema()
	if err != nil {
		return nil, err
	}
	p := &Parser{schema: s, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

var defaultParser = func() *Parser {
	p, err := New()
	if err != nil {
		panic(fmt.Sprintf("parser: embedded schema: %v", err))
	}
	return p
}()

// Parse parses a rule document with the default parser.
func Parse(data []byte) (*ast.Document, error) {
	return defaultParser.Parse(data)
}

// Parse decodes data and builds the rule tree. On failure it returns an
// *errors.ErrorList describing every structural problem found.
func (p *Parser) Parse(data []byte) (*ast.Document, error) {
	v, err := decode(data)
	if err != nil {
		list := ruleerrors.NewErrorList()
		list.Addf(ruleerrors.ReasonMalformedDocument, ast.RootPath, "invalid JSON: %v", err)
		return nil, list
	}
	return p.ParseValue(v)
}

// ParseValue builds a document from an already decoded JSON value. Numbers
// may be float64 or json.Number.
func (p *Parser) ParseValue(v any) (*ast.Document, error) {
	if err := p.schema.Validate(v); err != nil {
		list := ruleerrors.NewErrorList()
		list.Add(schemaError(err))
		return nil, list
	}

	b := &builder{maxDepth: p.maxDepth, errs: ruleerrors.NewErrorList()}
	doc := b.document(v)
	if err := b.errs.ToError(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseTree builds a bare rule tree, without the lender envelope, rooted at
// the given path.
func (p *Parser) ParseTree(v any, path ast.Path) (ast.Node, error) {
	b := &builder{maxDepth: p.maxDepth, errs: ruleerrors.NewErrorList()}
	n := b.node(v, path, 1)
	if err := b.errs.ToError(); err != nil {
		return nil, err
	}
	return n, nil
}

// decode reads exactly one JSON value, keeping numbers as json.Number.
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

type builder struct {
	maxDepth int
	errs     *ruleerrors.ErrorList
}

func (b *builder) document(v any) *ast.Document {
	obj, ok := v.(map[string]any)
	if !ok {
		b.errs.Addf(ruleerrors.ReasonMalformedDocument, ast.RootPath, "document must be a JSON object")
		return nil
	}

	for _, key := range sortedKeys(obj) {
		if key != "lender" && key != "rule" {
			b.errs.Addf(ruleerrors.ReasonMalformedDocument, ast.RootPath.Key(key), "unexpected top-level key %q", key)
		}
	}

	doc := &ast.Document{}
	lender, _ := obj["lender"].(string)
	doc.Lender = strings.TrimSpace(lender)
	if doc.Lender == "" {
		b.errs.Addf(ruleerrors.ReasonMissingLender, ast.RootPath.Key("lender"), "lender must be a non-empty string")
	}

	raw, ok := obj["rule"]
	if !ok || raw == nil {
		b.errs.Addf(ruleerrors.ReasonEmptyTree, ast.RootPath.Key("rule"), "rule is required")
		return doc
	}
	doc.Rule = b.node(raw, ast.RootPath.Key("rule"), 1)
	return doc
}

func (b *builder) node(v any, path ast.Path, depth int) ast.Node {
	if depth > b.maxDepth {
		b.errs.Addf(ruleerrors.ReasonMaxDepthExceeded, path, "rule nesting exceeds %d levels", b.maxDepth)
		return nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path, "node must be an object, got %s", jsonType(v))
		return nil
	}
	if len(obj) != 1 {
		b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path,
			`node must hold exactly one of "and", "or" or a single field, found %d keys`, len(obj))
		return nil
	}

	for key, val := range obj {
		switch key {
		case "and":
			children, ok := b.children(val, path.Key(key), depth)
			if !ok {
				return nil
			}
			return &ast.Conjunction{Children: children, Path: path}
		case "or":
			children, ok := b.children(val, path.Key(key), depth)
			if !ok {
				return nil
			}
			return &ast.Disjunction{Children: children, Path: path}
		default:
			return b.condition(key, val, path.Key(key))
		}
	}
	return nil
}

func (b *builder) children(v any, path ast.Path, depth int) ([]ast.Node, bool) {
	arr, ok := v.([]any)
	if !ok {
		b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path, "expected an array of nodes, got %s", jsonType(v))
		return nil, false
	}
	if len(arr) == 0 {
		b.errs.Addf(ruleerrors.ReasonEmptyChildren, path, "logical node must have at least one child")
		return nil, false
	}

	before := b.errs.Count()
	children := make([]ast.Node, 0, len(arr))
	for i, item := range arr {
		if child := b.node(item, path.Index(i), depth+1); child != nil {
			children = append(children, child)
		}
	}
	return children, b.errs.Count() == before
}

func (b *builder) condition(field string, v any, path ast.Path) ast.Node {
	obj, ok := v.(map[string]any)
	if !ok {
		b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path, "comparison must be an object, got %s", jsonType(v))
		return nil
	}

	bad := false
	for _, key := range sortedKeys(obj) {
		if key != "operator" && key != "value" {
			b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path.Key(key), "unexpected comparison key %q", key)
			bad = true
		}
	}

	op, ok := obj["operator"].(string)
	if !ok {
		b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path.Key("operator"), "operator must be a string")
		bad = true
	}

	raw, present := obj["value"]
	var value ast.Value
	switch {
	case !present || raw == nil:
		b.errs.Addf(ruleerrors.ReasonInvalidNodeShape, path.Key("value"), "value is required")
		bad = true
	default:
		var err error
		value, err = ast.ValueOf(raw)
		if err != nil {
			b.errs.Addf(ruleerrors.ReasonTypeMismatch, path.Key("value"), "value must be a number or string, got %s", jsonType(raw))
			bad = true
		}
	}

	if bad {
		return nil
	}
	return &ast.Condition{Field: field, Operator: ast.Operator(op), Value: value, Path: path}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
