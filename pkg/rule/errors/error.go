package errors

import (
	"fmt"
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// Reason is the machine-readable cause of a SchemaError.
type Reason string

const (
	ReasonMalformedDocument   Reason = "malformed_document"    // not JSON or wrong top-level shape
	ReasonInvalidNodeShape    Reason = "invalid_node_shape"    // node is not exactly one of and/or/field
	ReasonMissingLender       Reason = "missing_lender"        // lender absent or blank
	ReasonUnknownField        Reason = "unknown_field"         // field not in the catalog
	ReasonUnknownOperator     Reason = "unknown_operator"      // operator not supported
	ReasonOperatorNotAllowed  Reason = "operator_not_allowed"  // operator not valid for field type
	ReasonTypeMismatch        Reason = "type_mismatch"         // value type differs from field type
	ReasonOutOfDomain         Reason = "out_of_domain"         // numeric value outside field domain
	ReasonEmptyTree           Reason = "empty_tree"            // tree has no conditions
	ReasonEmptyChildren       Reason = "empty_children"        // and/or with no children
	ReasonMaxDepthExceeded    Reason = "max_depth_exceeded"    // nesting too deep
	ReasonClauseLimitExceeded Reason = "clause_limit_exceeded" // normal form too large
)

// SchemaError describes one problem with a rule document or with a record
// evaluated against a rule.
type SchemaError struct {
	Reason     Reason   `json:"reason"`
	Path       ast.Path `json:"path"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Reason, e.Message)
	if e.Path != ast.RootPath {
		fmt.Fprintf(&sb, " at %s", e.Path)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", e.Suggestion)
	}
	return sb.String()
}

// New returns a SchemaError with a formatted message.
func New(reason Reason, path ast.Path, format string, args ...any) *SchemaError {
	return &SchemaError{Reason: reason, Path: path, Message: fmt.Sprintf(format, args...)}
}

// ErrorList accumulates schema errors instead of failing on the first one.
type ErrorList struct {
	Errors []*SchemaError `json:"errors"`
}

// NewErrorList creates an empty list.
func NewErrorList() *ErrorList {
	return &ErrorList{Errors: make([]*SchemaError, 0)}
}

// Add appends an error.
func (el *ErrorList) Add(err *SchemaError) {
	el.Errors = append(el.Errors, err)
}

// Addf creates and appends an error.
func (el *ErrorList) Addf(reason Reason, path ast.Path, format string, args ...any) {
	el.Add(New(reason, path, format, args...))
}

// AddWithSuggestion creates and appends an error carrying a suggested fix.
func (el *ErrorList) AddWithSuggestion(reason Reason, path ast.Path, message, suggestion string) {
	el.Add(&SchemaError{Reason: reason, Path: path, Message: message, Suggestion: suggestion})
}

// Merge appends every error of other.
func (el *ErrorList) Merge(other *ErrorList) {
	if other != nil {
		el.Errors = append(el.Errors, other.Errors...)
	}
}

// HasErrors reports whether the list is non-empty.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	switch el.Count() {
	case 0:
		return ""
	case 1:
		return el.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d schema errors:", el.Count())
	for _, e := range el.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	out := make([]error, len(el.Errors))
	for i, e := range el.Errors {
		out[i] = e
	}
	return out
}

// ToError returns nil for an empty list and the list itself otherwise.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByReason returns the errors with the given reason.
func (el *ErrorList) ByReason(reason Reason) []*SchemaError {
	var out []*SchemaError
	for _, e := range el.Errors {
		if e.Reason == reason {
			out = append(out, e)
		}
	}
	return out
}

// HasReason reports whether any error has the given reason.
func (el *ErrorList) HasReason(reason Reason) bool {
	for _, e := range el.Errors {
		if e.Reason == reason {
			return true
		}
	}
	return false
}
