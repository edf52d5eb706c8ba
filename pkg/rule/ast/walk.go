package ast

// Walk visits n and its descendants depth first, in child order. If fn
// returns false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Conditions returns every leaf of the tree in document order.
func Conditions(n Node) []*Condition {
	var out []*Condition
	Walk(n, func(n Node) bool {
		if c, ok := n.(*Condition); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func Depth(n Node) int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range Children(n) {
		deepest = max(deepest, Depth(c))
	}
	return deepest + 1
}

// Fields returns the distinct field names referenced by the tree, in order
// of first appearance.
func Fields(n Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range Conditions(n) {
		if !seen[c.Field] {
			seen[c.Field] = true
			out = append(out, c.Field)
		}
	}
	return out
}
