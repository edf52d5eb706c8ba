package ast

// Kind identifies the variant of a rule tree node.
type Kind string

const (
	KindConjunction Kind = "and"       // all children hold
	KindDisjunction Kind = "or"        // at least one child holds
	KindCondition   Kind = "condition" // field op value
)

// Node is a rule tree node. The interface is sealed: only *Conjunction,
// *Disjunction and *Condition implement it.
type Node interface {
	// Kind returns the node variant.
	Kind() Kind
	// Location returns where the node appeared in the submitted document.
	Location() Path

	sealed()
}

// Conjunction holds when every child holds. Children is never empty in a
// validated tree.
type Conjunction struct {
	Children []Node
	Path     Path
}

// Disjunction holds when at least one child holds. Children is never empty
// in a validated tree.
type Disjunction struct {
	Children []Node
	Path     Path
}

// Condition compares one borrower field against a constant value.
type Condition struct {
	Field    string
	Operator Operator
	Value    Value
	Path     Path
}

func (*Conjunction) Kind() Kind { return KindConjunction }
func (*Disjunction) Kind() Kind { return KindDisjunction }
func (*Condition) Kind() Kind   { return KindCondition }

func (n *Conjunction) Location() Path { return n.Path }
func (n *Disjunction) Location() Path { return n.Path }
func (n *Condition) Location() Path   { return n.Path }

func (*Conjunction) sealed() {}
func (*Disjunction) sealed() {}
func (*Condition) sealed()   {}

// And builds a Conjunction from the given children.
func And(children ...Node) *Conjunction {
	return &Conjunction{Children: children}
}

// Or builds a Disjunction from the given children.
func Or(children ...Node) *Disjunction {
	return &Disjunction{Children: children}
}

// Cond builds a Condition. The value is converted with ValueOf; unsupported
// values leave the zero Value, which the validator rejects.
func Cond(field string, op Operator, value any) *Condition {
	v, _ := ValueOf(value)
	return &Condition{Field: field, Operator: op, Value: v}
}

// Children returns the child nodes of a logical node, or nil for a Condition.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Conjunction:
		return n.Children
	case *Disjunction:
		return n.Children
	default:
		return nil
	}
}
