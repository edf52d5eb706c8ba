package errors

import (
	"fmt"
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// SuggestFieldName suggests the closest known field for a misspelled one,
// using Levenshtein distance.
func SuggestFieldName(unknown string, validFields []string) string {
	if len(validFields) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string
	for _, field := range validFields {
		dist := levenshteinDistance(unknown, field)
		if dist < minDistance {
			minDistance = dist
			bestMatch = field
		}
	}

	if minDistance <= 3 {
		return fmt.Sprintf("did you mean %q?", bestMatch)
	}
	return fmt.Sprintf("valid fields: %s", strings.Join(validFields, ", "))
}

// SuggestOperator lists the operators valid for a field type.
func SuggestOperator(t ast.FieldType) string {
	ops := ast.OperatorsFor(t)
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return fmt.Sprintf("valid operators for %s fields: %s", t, strings.Join(names, ", "))
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
