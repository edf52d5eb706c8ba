package evaluator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

var axis = ast.And(
	ast.Cond("age", ast.OperatorGreaterThan, 18),
	ast.Cond("income", ast.OperatorGreaterThan, 10000),
)

func TestEvaluate_Scenario(t *testing.T) {
	ctx := context.Background()

	ok, err := Evaluate(ctx, axis, Record{"age": 25.0, "income": 50000.0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(ctx, axis, Record{"age": 16.0, "income": 50000.0})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_Operators(t *testing.T) {
	tests := []struct {
		op    ast.Operator
		value float64
		want  bool
	}{
		{ast.OperatorGreaterThan, 30, false},
		{ast.OperatorGreaterThan, 29, true},
		{ast.OperatorGreaterEqual, 30, true},
		{ast.OperatorLessThan, 30, false},
		{ast.OperatorLessThan, 31, true},
		{ast.OperatorLessEqual, 30, true},
		{ast.OperatorEqual, 30, true},
		{ast.OperatorEqual, 30.5, false},
		{ast.OperatorNotEqual, 30, false},
		{ast.OperatorNotEqual, 31, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			ok, err := Evaluate(context.Background(), ast.Cond("age", tt.op, tt.value), Record{"age": 30})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEvaluate_Categorical(t *testing.T) {
	ctx := context.Background()
	eq := ast.Cond("occupation", ast.OperatorEqual, "salaried")
	ne := ast.Cond("occupation", ast.OperatorNotEqual, "salaried")

	ok, _ := Evaluate(ctx, eq, Record{"occupation": "salaried"})
	assert.True(t, ok)
	ok, _ = Evaluate(ctx, ne, Record{"occupation": "salaried"})
	assert.False(t, ok)
	ok, _ = Evaluate(ctx, ne, Record{"occupation": "self_employed"})
	assert.True(t, ok)
}

func TestEvaluate_MissingFieldIsFalse(t *testing.T) {
	ctx := context.Background()

	for _, tree := range []ast.Node{
		ast.Cond("age", ast.OperatorGreaterThan, 18),
		ast.Cond("age", ast.OperatorNotEqual, 18),
		ast.Cond("occupation", ast.OperatorNotEqual, "student"),
	} {
		ok, err := Evaluate(ctx, tree, Record{})
		require.NoError(t, err)
		assert.False(t, ok, ast.Expression(tree))
	}

	ok, err := Evaluate(ctx, axis, Record{"age": 25, "income": nil})
	require.NoError(t, err)
	assert.False(t, ok)

	or := ast.Or(ast.Cond("dpd", ast.OperatorLessThan, 30), ast.Cond("age", ast.OperatorGreaterThan, 18))
	ok, err = Evaluate(ctx, or, Record{"age": 40})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_TypeMismatch(t *testing.T) {
	ctx := context.Background()

	_, err := Evaluate(ctx, axis, Record{"age": "twenty", "income": 50000})
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "age", tm.Field)
	assert.Equal(t, ast.ValueTypeNumber, tm.Expected)
	assert.Equal(t, "string", tm.Actual)

	var se *ruleerrors.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ruleerrors.ReasonTypeMismatch, se.Reason)

	_, err = Evaluate(ctx, ast.Cond("occupation", ast.OperatorEqual, "salaried"), Record{"occupation": 3.0})
	assert.ErrorAs(t, err, &tm)
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	ctx := context.Background()

	// The mismatching second child is never reached.
	and := ast.And(ast.Cond("age", ast.OperatorGreaterThan, 18), ast.Cond("income", ast.OperatorGreaterThan, 1))
	ok, err := Evaluate(ctx, and, Record{"age": 10, "income": "lots"})
	require.NoError(t, err)
	assert.False(t, ok)

	or := ast.Or(ast.Cond("age", ast.OperatorGreaterThan, 18), ast.Cond("income", ast.OperatorGreaterThan, 1))
	ok, err = Evaluate(ctx, or, Record{"age": 30, "income": "lots"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_JSONNumber(t *testing.T) {
	ok, err := Evaluate(context.Background(), axis, Record{"age": json.Number("25"), "income": json.Number("10000.01")})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_Deterministic(t *testing.T) {
	record := Record{"age": 25, "income": 50000}
	first, err := Evaluate(context.Background(), axis, record)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := Evaluate(context.Background(), axis, record)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, Record{"age": 25, "income": 50000}, record, "record must not be modified")
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Evaluate(ctx, axis, Record{"age": 25, "income": 50000})
	assert.ErrorIs(t, err, context.Canceled)
}
