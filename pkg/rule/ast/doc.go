// Package ast provides the typed syntax tree for lender eligibility rules.
//
// A rule tree is a closed set of node kinds: Conjunction (all children must
// hold), Disjunction (at least one child must hold) and Condition (a single
// field comparison). Every consumer switches over these three kinds and
// nothing else, so adding a node kind is a deliberate, compiler-visible
// change.
//
// # Core Types
//
// Node: sealed interface implemented by *Conjunction, *Disjunction, *Condition
//
// Condition: leaf comparison of a borrower field against a constant
//
// Value: tagged numeric or string constant
//
// Catalog: whitelist of borrower fields with their types and numeric domains
//
// Path: location of a node inside the submitted rule document
//
// # Basic Usage
//
//	tree := &ast.Conjunction{Children: []ast.Node{
//	    &ast.Condition{Field: "age", Operator: ast.OperatorGreaterThan, Value: ast.Number(18)},
//	    &ast.Condition{Field: "income", Operator: ast.OperatorGreaterThan, Value: ast.Number(10000)},
//	}}
//
//	fmt.Println(ast.Expression(tree)) // age > 18 AND income > 10000
//
// Structural equality ignores the order of children in Conjunction and
// Disjunction nodes:
//
//	ast.Equal(a, b)       // true when a and b differ only in child order
//	ast.CanonicalKey(a)   // stable string form used for duplicate detection
package ast
