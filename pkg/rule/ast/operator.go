package ast

// Operator is a comparison operator in a Condition.
type Operator string

const (
	OperatorGreaterThan  Operator = ">"
	OperatorGreaterEqual Operator = ">="
	OperatorLessThan     Operator = "<"
	OperatorLessEqual    Operator = "<="
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
)

// Operators lists every supported operator.
var Operators = []Operator{
	OperatorGreaterThan,
	OperatorGreaterEqual,
	OperatorLessThan,
	OperatorLessEqual,
	OperatorEqual,
	OperatorNotEqual,
}

// ParseOperator returns the Operator for s and whether it is supported.
func ParseOperator(s string) (Operator, bool) {
	for _, op := range Operators {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

// IsOrdering reports whether the operator compares by order (<, <=, >, >=).
func (o Operator) IsOrdering() bool {
	switch o {
	case OperatorGreaterThan, OperatorGreaterEqual, OperatorLessThan, OperatorLessEqual:
		return true
	}
	return false
}

// AllowedFor reports whether the operator may be applied to a field of type t.
// Categorical fields accept only equality operators.
func (o Operator) AllowedFor(t FieldType) bool {
	if t == FieldTypeCategorical {
		return o == OperatorEqual || o == OperatorNotEqual
	}
	_, ok := ParseOperator(string(o))
	return ok
}

// OperatorsFor returns the operators allowed for a field type.
func OperatorsFor(t FieldType) []Operator {
	var ops []Operator
	for _, op := range Operators {
		if op.AllowedFor(t) {
			ops = append(ops, op)
		}
	}
	return ops
}
