package ast

// Document is a parsed rule document: the lender namespace and the rule
// tree submitted for it.
type Document struct {
	Lender string
	Rule   Node
}
