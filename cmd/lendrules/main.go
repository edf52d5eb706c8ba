// Lendrules stores lender eligibility rules and answers which lenders
// accept a borrower.
//
// Rules arrive as structured documents, are validated against a whitelist
// of borrower fields, and are rejected when they duplicate or overlap a
// rule the same lender already has. Borrower records are evaluated against
// every stored rule in parallel.
//
// Usage:
//
//	# Start the HTTP service
//	lendrules run --config lendrules.yaml
//
//	# Check rule documents offline
//	lendrules validate rules/*.json
//
//	# Load a directory of rule documents, then keep watching it
//	lendrules import rules/ --watch
//
//	# Ask which lenders accept a borrower
//	lendrules evaluate --record borrower.json
package main

import "os"

func main() {
	os.Exit(Execute())
}
