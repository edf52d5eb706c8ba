package region

import (
	"sort"
	"strings"
)

// Box is the region matched by one conjunctive clause. Fields missing from
// both maps are unrestricted.
type Box struct {
	Numeric     map[string]Range `json:"numeric,omitempty"`
	Categorical map[string]Set   `json:"categorical,omitempty"`
}

func newBox() Box {
	return Box{Numeric: map[string]Range{}, Categorical: map[string]Set{}}
}

// Fields returns the restricted field names in sorted order.
func (b Box) Fields() []string {
	out := make([]string, 0, len(b.Numeric)+len(b.Categorical))
	for f := range b.Numeric {
		out = append(out, f)
	}
	for f := range b.Categorical {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether some field admits no value.
func (b Box) Empty() bool {
	return len(b.EmptyFields()) > 0
}

// EmptyFields returns the fields whose constraint admits no value, sorted.
func (b Box) EmptyFields() []string {
	var out []string
	for f, r := range b.Numeric {
		if r.Empty() {
			out = append(out, f)
		}
	}
	for f, s := range b.Categorical {
		if s.Empty() {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Intersect returns the box of points lying in both boxes. A field
// restricted by only one box keeps that restriction.
func (b Box) Intersect(o Box) Box {
	out := newBox()
	for f, r := range b.Numeric {
		out.Numeric[f] = r
	}
	for f, r := range o.Numeric {
		if cur, ok := out.Numeric[f]; ok {
			out.Numeric[f] = cur.Intersect(r)
		} else {
			out.Numeric[f] = r
		}
	}
	for f, s := range b.Categorical {
		out.Categorical[f] = s
	}
	for f, s := range o.Categorical {
		if cur, ok := out.Categorical[f]; ok {
			out.Categorical[f] = cur.Intersect(s)
		} else {
			out.Categorical[f] = s
		}
	}
	return out
}

// Overlap returns the shared region of two boxes and whether it is
// non-empty.
func Overlap(a, b Box) (Box, bool) {
	shared := a.Intersect(b)
	if shared.Empty() {
		return Box{}, false
	}
	return shared, true
}

// OverlapSets returns the first non-empty overlap between a box of as and a
// box of bs, scanning as in order.
func OverlapSets(as, bs []Box) (Box, bool) {
	for _, a := range as {
		for _, b := range bs {
			if shared, ok := Overlap(a, b); ok {
				return shared, true
			}
		}
	}
	return Box{}, false
}

// Contains reports whether a record lies in the box. A restricted field
// that the record lacks, or holds with the wrong type, is outside.
func (b Box) Contains(record map[string]any) bool {
	for f, r := range b.Numeric {
		x, ok := record[f].(float64)
		if !ok || !r.Contains(x) {
			return false
		}
	}
	for f, s := range b.Categorical {
		v, ok := record[f].(string)
		if !ok || !s.Contains(v) {
			return false
		}
	}
	return true
}

// Sample returns a record lying in a non-empty box, with one value for
// every restricted field.
func (b Box) Sample() map[string]any {
	out := make(map[string]any, len(b.Numeric)+len(b.Categorical))
	for f, r := range b.Numeric {
		out[f] = r.Sample()
	}
	for f, s := range b.Categorical {
		out[f] = s.Sample()
	}
	return out
}

// String renders the box, e.g. `age ∈ (25, 30) ∧ occupation ∈ {"salaried"}`.
func (b Box) String() string {
	fields := b.Fields()
	if len(fields) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if r, ok := b.Numeric[f]; ok {
			parts = append(parts, f+" ∈ "+r.String())
		} else {
			parts = append(parts, f+" ∈ "+b.Categorical[f].String())
		}
	}
	return strings.Join(parts, " ∧ ")
}
