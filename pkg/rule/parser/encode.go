package parser

import (
	"encoding/json"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// EncodeTree converts a rule tree into its wire-format JSON value.
func EncodeTree(n ast.Node) map[string]any {
	switch n := n.(type) {
	case *ast.Conjunction:
		return map[string]any{"and": encodeChildren(n.Children)}
	case *ast.Disjunction:
		return map[string]any{"or": encodeChildren(n.Children)}
	case *ast.Condition:
		return map[string]any{
			n.Field: map[string]any{
				"operator": string(n.Operator),
				"value":    n.Value.Raw(),
			},
		}
	}
	return nil
}

func encodeChildren(children []ast.Node) []any {
	out := make([]any, len(children))
	for i, c := range children {
		out[i] = EncodeTree(c)
	}
	return out
}

// Encode serialises a document into the wire format accepted by Parse.
func Encode(doc *ast.Document) ([]byte, error) {
	return json.Marshal(map[string]any{
		"lender": doc.Lender,
		"rule":   EncodeTree(doc.Rule),
	})
}

// EncodeTreeJSON serialises a bare rule tree.
func EncodeTreeJSON(n ast.Node) ([]byte, error) {
	return json.Marshal(EncodeTree(n))
}
