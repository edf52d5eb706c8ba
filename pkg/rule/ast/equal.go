package ast

import (
	"sort"
	"strings"
)

// CanonicalKey returns a string that is identical for two trees exactly when
// they are structurally equal, ignoring the order of children in
// Conjunction and Disjunction nodes. Repeated children are kept, so
// "a AND a" and "a" have different keys.
func CanonicalKey(n Node) string {
	var sb strings.Builder
	writeKey(&sb, n)
	return sb.String()
}

func writeKey(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Condition:
		sb.WriteString(n.Field)
		sb.WriteString(string(n.Operator))
		sb.WriteString(n.Value.Literal())
	case *Conjunction:
		writeGroup(sb, "and", n.Children)
	case *Disjunction:
		writeGroup(sb, "or", n.Children)
	}
}

func writeGroup(sb *strings.Builder, name string, children []Node) {
	keys := make([]string, len(children))
	for i, c := range children {
		keys[i] = CanonicalKey(c)
	}
	sort.Strings(keys)
	sb.WriteString(name)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(keys, ","))
	sb.WriteByte(')')
}

// Equal reports whether a and b are structurally equal, ignoring the order
// of children in logical nodes.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return CanonicalKey(a) == CanonicalKey(b)
}
