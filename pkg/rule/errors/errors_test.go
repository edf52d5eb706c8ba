package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/rule/ast"
)

func TestErrorList(t *testing.T) {
	list := NewErrorList()
	assert.NoError(t, list.ToError())

	list.Addf(ReasonUnknownField, "/rule/salary", "unknown field %q", "salary")
	list.AddWithSuggestion(ReasonOutOfDomain, "/rule/age", "value 150 outside [0, 100]", "use a value within the domain")

	err := list.ToError()
	require.Error(t, err)
	assert.Equal(t, 2, list.Count())
	assert.True(t, list.HasReason(ReasonOutOfDomain))
	assert.False(t, list.HasReason(ReasonEmptyTree))
	assert.Len(t, list.ByReason(ReasonUnknownField), 1)
	assert.Contains(t, err.Error(), "2 schema errors")

	wrapped := fmt.Errorf("submit: %w", err)
	var se *SchemaError
	require.True(t, stderrors.As(wrapped, &se))
	assert.Equal(t, ReasonUnknownField, se.Reason)
}

func TestSchemaError_Error(t *testing.T) {
	e := &SchemaError{Reason: ReasonUnknownField, Path: ast.Path("/rule/agee"), Message: `unknown field "agee"`, Suggestion: `did you mean "age"?`}
	assert.Equal(t, `[unknown_field] unknown field "agee" at /rule/agee (did you mean "age"?)`, e.Error())

	root := New(ReasonMissingLender, ast.RootPath, "lender is required")
	assert.Equal(t, "[missing_lender] lender is required", root.Error())
}

func TestSuggestFieldName(t *testing.T) {
	fields := ast.DefaultCatalog().Names()

	assert.Equal(t, `did you mean "credit_score"?`, SuggestFieldName("credit_scor", fields))
	assert.Equal(t, `did you mean "dpd"?`, SuggestFieldName("dp", fields))
	assert.Contains(t, SuggestFieldName("completely_unrelated_name", fields), "valid fields:")
	assert.Empty(t, SuggestFieldName("x", nil))
}

func TestSuggestOperator(t *testing.T) {
	assert.Equal(t, "valid operators for categorical fields: ==, !=", SuggestOperator(ast.FieldTypeCategorical))
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("age", "age"))
	assert.Equal(t, 1, levenshteinDistance("age", "ages"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
}
