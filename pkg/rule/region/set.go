package region

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// Set is the categorical component of a Box. When Negated is false it
// allows exactly Values; when true it allows every value except Values.
// Values is kept sorted and free of duplicates.
type Set struct {
	Values  []string `json:"values"`
	Negated bool     `json:"negated,omitempty"`
}

// AllValues is the unrestricted set.
func AllValues() Set {
	return Set{Negated: true}
}

func newSet(values []string, negated bool) Set {
	vs := append([]string(nil), values...)
	sort.Strings(vs)
	return Set{Values: slices.Compact(vs), Negated: negated}
}

// Empty reports whether the set allows no value. A negated set is never
// empty because the categorical universe is open.
func (s Set) Empty() bool {
	return !s.Negated && len(s.Values) == 0
}

// Contains reports whether v is allowed.
func (s Set) Contains(v string) bool {
	_, found := slices.BinarySearch(s.Values, v)
	return found != s.Negated
}

// Intersect returns the values allowed by both sets.
func (s Set) Intersect(o Set) Set {
	switch {
	case !s.Negated:
		var out []string
		for _, v := range s.Values {
			if o.Contains(v) {
				out = append(out, v)
			}
		}
		return newSet(out, false)
	case !o.Negated:
		return o.Intersect(s)
	default:
		return newSet(append(append([]string(nil), s.Values...), o.Values...), true)
	}
}

// Sample returns a value allowed by a non-empty set.
func (s Set) Sample() string {
	if !s.Negated {
		return s.Values[0]
	}
	candidate := "other"
	for i := 1; !s.Contains(candidate); i++ {
		candidate = "other_" + strconv.Itoa(i)
	}
	return candidate
}

// String renders the set, e.g. {"salaried"} or not {"student"}.
func (s Set) String() string {
	quoted := make([]string, len(s.Values))
	for i, v := range s.Values {
		quoted[i] = strconv.Quote(v)
	}
	body := "{" + strings.Join(quoted, ", ") + "}"
	if s.Negated {
		if len(s.Values) == 0 {
			return "*"
		}
		return "not " + body
	}
	return body
}

func setFor(c *ast.Condition) (Set, error) {
	switch c.Operator {
	case ast.OperatorEqual:
		return newSet([]string{c.Value.Str}, false), nil
	case ast.OperatorNotEqual:
		return newSet([]string{c.Value.Str}, true), nil
	default:
		return Set{}, fmt.Errorf("operator %q cannot be applied to categorical field %q", c.Operator, c.Field)
	}
}
