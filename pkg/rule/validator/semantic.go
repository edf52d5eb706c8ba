package validator

import (
	"fmt"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// SemanticValidator checks every condition against the field catalog.
type SemanticValidator struct {
	catalog *ast.Catalog
}

// Validate checks fields, operators, value types and numeric domains.
func (s *SemanticValidator) Validate(n ast.Node) *ruleerrors.ErrorList {
	errs := ruleerrors.NewErrorList()
	for _, c := range ast.Conditions(n) {
		s.validateCondition(c, errs)
	}
	return errs
}

func (s *SemanticValidator) validateCondition(c *ast.Condition, errs *ruleerrors.ErrorList) {
	field, ok := s.catalog.Lookup(c.Field)
	if !ok {
		errs.AddWithSuggestion(ruleerrors.ReasonUnknownField, c.Path,
			fmt.Sprintf("unknown field %q", c.Field),
			ruleerrors.SuggestFieldName(c.Field, s.catalog.Names()))
		return
	}

	if _, ok := ast.ParseOperator(string(c.Operator)); !ok {
		errs.AddWithSuggestion(ruleerrors.ReasonUnknownOperator, c.Path.Key("operator"),
			fmt.Sprintf("unknown operator %q", c.Operator),
			ruleerrors.SuggestOperator(field.Type))
		return
	}
	if !c.Operator.AllowedFor(field.Type) {
		errs.AddWithSuggestion(ruleerrors.ReasonOperatorNotAllowed, c.Path.Key("operator"),
			fmt.Sprintf("operator %q cannot be applied to %s field %q", c.Operator, field.Type, c.Field),
			ruleerrors.SuggestOperator(field.Type))
		return
	}

	if want := field.Type.ValueType(); c.Value.Type != want {
		errs.Addf(ruleerrors.ReasonTypeMismatch, c.Path.Key("value"),
			"field %q expects a %s value, got %s", c.Field, want, describe(c.Value))
		return
	}

	if field.Type == ast.FieldTypeNumeric && !field.Domain.Contains(c.Value.Num) {
		errs.AddWithSuggestion(ruleerrors.ReasonOutOfDomain, c.Path.Key("value"),
			fmt.Sprintf("value %s is outside the domain of %q", c.Value.Literal(), c.Field),
			fmt.Sprintf("%s must lie within %s", c.Field, field.Domain))
	}
}

func describe(v ast.Value) string {
	if v.Type == "" {
		return "nothing"
	}
	return string(v.Type)
}
