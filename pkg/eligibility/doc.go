// Package eligibility answers which lenders accept a borrower record.
//
// Every call reads the current rule set from the store and evaluates the
// rules in parallel. A lender is eligible when at least one of its rules
// matches. Rules that cannot be evaluated against the record, because a
// field carries a value of the wrong type, are reported as failures and do
// not affect the other rules.
package eligibility
