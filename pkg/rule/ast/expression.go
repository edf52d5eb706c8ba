package ast

import "strings"

// Expression renders a tree as a human-readable infix expression, for
// example `age > 18 AND (income > 10000 OR occupation == "salaried")`.
func Expression(n Node) string {
	var sb strings.Builder
	writeExpr(&sb, n, false)
	return sb.String()
}

func writeExpr(sb *strings.Builder, n Node, nested bool) {
	switch n := n.(type) {
	case *Condition:
		sb.WriteString(n.Field)
		sb.WriteByte(' ')
		sb.WriteString(string(n.Operator))
		sb.WriteByte(' ')
		sb.WriteString(n.Value.Literal())
	case *Conjunction:
		writeJoined(sb, " AND ", n.Children, nested)
	case *Disjunction:
		writeJoined(sb, " OR ", n.Children, nested)
	}
}

func writeJoined(sb *strings.Builder, sep string, children []Node, nested bool) {
	if len(children) == 1 {
		writeExpr(sb, children[0], nested)
		return
	}
	if nested {
		sb.WriteByte('(')
	}
	for i, c := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		writeExpr(sb, c, true)
	}
	if nested {
		sb.WriteByte(')')
	}
}
