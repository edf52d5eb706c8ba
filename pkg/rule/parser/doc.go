// Package parser turns rule documents in the wire format into typed rule
// trees and back.
//
// The wire format is
//
//	{
//	  "lender": "AXIS",
//	  "rule": {
//	    "and": [
//	      {"age":    {"operator": ">", "value": 18}},
//	      {"income": {"operator": ">", "value": 10000}}
//	    ]
//	  }
//	}
//
// where every node holds exactly one of "and", "or" or a single field key.
//
// Parsing runs in two passes. A JSON Schema pass rejects documents whose
// shape does not match the grammar, then a builder pass constructs the
// ast.Node tree and reports structural problems (empty child lists, bad
// scalar values, excessive nesting). Semantic checks against the field
// catalog live in package validator.
//
// Parse never repairs input. Anything that does not conform is a schema
// error.
package parser
