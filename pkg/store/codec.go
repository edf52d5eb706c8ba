package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/ast"
	"mercator-hq/lendrules/pkg/rule/parser"
)

// row is the persisted form of a rule shared by the SQL backends.
type row struct {
	ID         string
	Lender     string
	RuleJSON   string
	Expression string
	Key        string
	// KeyHash is the hex SHA-256 of Key. The unique index is built on it
	// because canonical keys can outgrow an index entry.
	KeyHash   string
	CreatedAt time.Time
}

func toRow(r *rule.Rule) (row, error) {
	if r == nil {
		return row{}, fmt.Errorf("rule cannot be nil")
	}
	if r.ID == "" {
		return row{}, fmt.Errorf("rule id cannot be empty")
	}
	if r.Lender == "" {
		return row{}, fmt.Errorf("rule lender cannot be empty")
	}
	data, err := parser.EncodeTreeJSON(r.Tree)
	if err != nil {
		return row{}, fmt.Errorf("encode rule tree: %w", err)
	}
	key := r.Key
	if key == "" {
		key = ast.CanonicalKey(r.Tree)
	}
	expr := r.Expression
	if expr == "" {
		expr = ast.Expression(r.Tree)
	}
	return row{
		ID:         r.ID,
		Lender:     r.Lender,
		RuleJSON:   string(data),
		Expression: expr,
		Key:        key,
		KeyHash:    keyHash(key),
		CreatedAt:  r.CreatedAt.UTC(),
	}, nil
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

var treeParser = func() *parser.Parser {
	p, err := parser.New()
	if err != nil {
		panic(err)
	}
	return p
}()

func (rw row) toRule() (*rule.Rule, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(rw.RuleJSON)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode rule %s: %w", rw.ID, err)
	}
	tree, err := treeParser.ParseTree(raw, ast.RootPath.Key("rule"))
	if err != nil {
		return nil, fmt.Errorf("decode rule %s: %w", rw.ID, err)
	}
	return &rule.Rule{
		ID:         rw.ID,
		Lender:     rw.Lender,
		Tree:       tree,
		CreatedAt:  rw.CreatedAt.UTC(),
		Expression: rw.Expression,
		Key:        rw.Key,
	}, nil
}
