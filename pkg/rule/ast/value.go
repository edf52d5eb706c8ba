package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueType is the type tag of a constant in a Condition.
type ValueType string

const (
	ValueTypeNumber ValueType = "number"
	ValueTypeString ValueType = "string"
)

// Value is a tagged constant. Exactly one of Num and Str is meaningful,
// selected by Type.
type Value struct {
	Type ValueType
	Num  float64
	Str  string
}

// Number returns a numeric Value. Negative zero is stored as zero.
func Number(f float64) Value {
	if f == 0 {
		f = 0
	}
	return Value{Type: ValueTypeNumber, Num: f}
}

// String returns a string Value.
func String(s string) Value {
	return Value{Type: ValueTypeString, Str: s}
}

// ValueOf converts a decoded JSON scalar into a Value. Go integer types and
// json.Number are accepted as numbers.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case string:
		return String(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// Raw returns the value as a plain Go scalar suitable for JSON encoding.
func (v Value) Raw() any {
	if v.Type == ValueTypeString {
		return v.Str
	}
	return v.Num
}

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool {
	return v.Type == ValueTypeNumber
}

// Literal renders the value as it would appear in a rule expression.
func (v Value) Literal() string {
	if v.Type == ValueTypeString {
		return strconv.Quote(v.Str)
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// MarshalJSON encodes the underlying scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}
