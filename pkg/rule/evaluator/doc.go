// Package evaluator decides whether a borrower record satisfies a rule
// tree.
//
// Evaluation is pure and deterministic. A condition on a field the record
// does not carry is false. A record value whose type differs from the
// condition's constant (a string income, a numeric occupation) fails the
// evaluation with a *TypeMismatchError.
package evaluator
