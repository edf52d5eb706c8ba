package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// Record maps borrower field names to values as decoded from JSON.
type Record map[string]any

// TypeMismatchError reports a record value whose type differs from the
// type of the condition it is compared against.
type TypeMismatchError struct {
	Field    string
	Expected ast.ValueType
	Actual   string
	Path     ast.Path
}

// Error returns the error message.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: expected %s value, record has %s", e.Field, e.Expected, e.Actual)
}

// Unwrap exposes the equivalent SchemaError.
func (e *TypeMismatchError) Unwrap() error {
	return &ruleerrors.SchemaError{
		Reason:  ruleerrors.ReasonTypeMismatch,
		Path:    e.Path,
		Message: e.Error(),
	}
}

// Evaluate reports whether record satisfies the tree. Children are
// evaluated left to right and evaluation stops as soon as the result is
// known. Cancellation is checked before each child.
func Evaluate(ctx context.Context, n ast.Node, record Record) (bool, error) {
	switch n := n.(type) {
	case *ast.Condition:
		return evalCondition(n, record)
	case *ast.Conjunction:
		for _, child := range n.Children {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			ok, err := Evaluate(ctx, child, record)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *ast.Disjunction:
		for _, child := range n.Children {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			ok, err := Evaluate(ctx, child, record)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case nil:
		return false, fmt.Errorf("evaluate: nil rule tree")
	default:
		return false, fmt.Errorf("evaluate: unsupported node %T", n)
	}
}

func evalCondition(c *ast.Condition, record Record) (bool, error) {
	raw, ok := record[c.Field]
	if !ok || raw == nil {
		return false, nil
	}

	switch c.Value.Type {
	case ast.ValueTypeNumber:
		x, ok := toNumber(raw)
		if !ok {
			return false, mismatch(c, raw)
		}
		return compare(c.Operator, cmpNumber(x, c.Value.Num))
	case ast.ValueTypeString:
		s, ok := raw.(string)
		if !ok {
			return false, mismatch(c, raw)
		}
		return compare(c.Operator, strings.Compare(s, c.Value.Str))
	default:
		return false, fmt.Errorf("condition on %q has no value", c.Field)
	}
}

func compare(op ast.Operator, cmp int) (bool, error) {
	switch op {
	case ast.OperatorGreaterThan:
		return cmp > 0, nil
	case ast.OperatorGreaterEqual:
		return cmp >= 0, nil
	case ast.OperatorLessThan:
		return cmp < 0, nil
	case ast.OperatorLessEqual:
		return cmp <= 0, nil
	case ast.OperatorEqual:
		return cmp == 0, nil
	case ast.OperatorNotEqual:
		return cmp != 0, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

func cmpNumber(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func mismatch(c *ast.Condition, raw any) error {
	return &TypeMismatchError{
		Field:    c.Field,
		Expected: c.Value.Type,
		Actual:   describe(raw),
		Path:     c.Path,
	}
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toNumber(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
