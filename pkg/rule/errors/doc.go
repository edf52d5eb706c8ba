// Package errors defines the schema error taxonomy for rule documents.
//
// Every problem found while parsing, validating or evaluating a rule is a
// *SchemaError carrying a machine-readable Reason and the JSON Pointer of
// the offending node. Validation accumulates errors in an *ErrorList so an
// author sees every problem in one round trip.
//
//	var list *errors.ErrorList
//	if stderrors.As(err, &list) {
//	    for _, e := range list.Errors {
//	        fmt.Println(e.Reason, e.Path, e.Message)
//	    }
//	}
package errors
