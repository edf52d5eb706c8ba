package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on lendrules spans.
const (
	AttrLender        = "lendrules.lender"
	AttrRuleID        = "lendrules.rule_id"
	AttrOutcome       = "lendrules.outcome"
	AttrRuleCount     = "lendrules.rule_count"
	AttrEligibleCount = "lendrules.eligible_count"
	AttrClauses       = "lendrules.clauses"
)

// Lender returns the lender attribute.
func Lender(name string) attribute.KeyValue {
	return attribute.String(AttrLender, name)
}

// RuleID returns the rule ID attribute.
func RuleID(id string) attribute.KeyValue {
	return attribute.String(AttrRuleID, id)
}

// Outcome returns the outcome attribute.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// Count returns an integer attribute under key.
func Count(key string, n int) attribute.KeyValue {
	return attribute.Int(key, n)
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
