package region

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
)

// Interval is a contiguous range of reals. Either end may be open.
type Interval struct {
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
	LoOpen bool    `json:"loOpen,omitempty"`
	HiOpen bool    `json:"hiOpen,omitempty"`
}

// DomainInterval returns the closed interval covering a field domain.
func DomainInterval(d ast.Domain) Interval {
	return Interval{Lo: d.Min, Hi: d.Max}
}

// Empty reports whether no real lies in the interval.
func (i Interval) Empty() bool {
	if i.Lo > i.Hi {
		return true
	}
	return i.Lo == i.Hi && (i.LoOpen || i.HiOpen)
}

// Intersect returns the intersection of two intervals.
func (i Interval) Intersect(j Interval) Interval {
	out := i
	switch {
	case j.Lo > out.Lo:
		out.Lo, out.LoOpen = j.Lo, j.LoOpen
	case j.Lo == out.Lo:
		out.LoOpen = out.LoOpen || j.LoOpen
	}
	switch {
	case j.Hi < out.Hi:
		out.Hi, out.HiOpen = j.Hi, j.HiOpen
	case j.Hi == out.Hi:
		out.HiOpen = out.HiOpen || j.HiOpen
	}
	return out
}

// Contains reports whether x lies in the interval.
func (i Interval) Contains(x float64) bool {
	if x < i.Lo || (x == i.Lo && i.LoOpen) {
		return false
	}
	if x > i.Hi || (x == i.Hi && i.HiOpen) {
		return false
	}
	return true
}

// Point reports whether the interval is a single closed point.
func (i Interval) Point() bool {
	return i.Lo == i.Hi && !i.LoOpen && !i.HiOpen
}

// String renders the interval in mathematical notation, e.g. "(25, 30]".
func (i Interval) String() string {
	lb, rb := "[", "]"
	if i.LoOpen {
		lb = "("
	}
	if i.HiOpen {
		rb = ")"
	}
	return lb + formatNumber(i.Lo) + ", " + formatNumber(i.Hi) + rb
}

// Range is an interval with a finite set of points removed. It is the
// numeric component of a Box.
type Range struct {
	Interval
	Excluded []float64 `json:"excluded,omitempty"`
}

// Empty reports whether no float64 lies in the range. Near its ends an
// interval may hold only a handful of floats, so excluded points can
// exhaust it even when Lo < Hi.
func (r Range) Empty() bool {
	_, ok := r.lowest()
	return !ok
}

// Intersect returns the intersection of two ranges.
func (r Range) Intersect(o Range) Range {
	out := Range{Interval: r.Interval.Intersect(o.Interval)}
	for _, x := range append(append([]float64(nil), r.Excluded...), o.Excluded...) {
		if out.Interval.Contains(x) && !out.excludes(x) {
			out.Excluded = append(out.Excluded, x)
		}
	}
	sort.Float64s(out.Excluded)
	return out
}

// Contains reports whether x lies in the range.
func (r Range) Contains(x float64) bool {
	return r.Interval.Contains(x) && !r.excludes(x)
}

func (r Range) excludes(x float64) bool {
	for _, e := range r.Excluded {
		if e == x {
			return true
		}
	}
	return false
}

// Sample returns a value inside a non-empty range, preferring an integer,
// then the midpoint, then the lowest free float.
func (r Range) Sample() float64 {
	if r.Point() {
		return r.Lo
	}
	lo := math.Ceil(r.Lo)
	if lo == r.Lo && r.LoOpen {
		lo++
	}
	for x, n := lo, 0; n <= len(r.Excluded) && r.Interval.Contains(x); x, n = x+1, n+1 {
		if !r.excludes(x) {
			return x
		}
	}
	if mid := r.Lo/2 + r.Hi/2; r.Contains(mid) {
		return mid
	}
	x, _ := r.lowest()
	return x
}

// lowest walks up from Lo one float at a time. Each excluded point can
// block at most one step, so the walk ends after len(Excluded)+1 floats.
func (r Range) lowest() (float64, bool) {
	if r.Interval.Empty() {
		return 0, false
	}
	x := r.Lo
	if r.LoOpen {
		x = math.Nextafter(x, math.Inf(1))
	}
	for n := 0; n <= len(r.Excluded) && r.Interval.Contains(x); n++ {
		if !r.excludes(x) {
			return x, true
		}
		x = math.Nextafter(x, math.Inf(1))
	}
	return 0, false
}

// String renders the range, e.g. "[0, 100] \ {18}".
func (r Range) String() string {
	if len(r.Excluded) == 0 {
		return r.Interval.String()
	}
	pts := make([]string, len(r.Excluded))
	for i, x := range r.Excluded {
		pts[i] = formatNumber(x)
	}
	return r.Interval.String() + ` \ {` + strings.Join(pts, ", ") + "}"
}

// rangeFor returns the range of values of a field satisfying one
// condition, clipped to the field domain.
func rangeFor(c *ast.Condition, d ast.Domain) (Range, error) {
	full := Range{Interval: DomainInterval(d)}
	v := c.Value.Num
	var con Interval
	switch c.Operator {
	case ast.OperatorGreaterThan:
		con = Interval{Lo: v, Hi: d.Max, LoOpen: true}
	case ast.OperatorGreaterEqual:
		con = Interval{Lo: v, Hi: d.Max}
	case ast.OperatorLessThan:
		con = Interval{Lo: d.Min, Hi: v, HiOpen: true}
	case ast.OperatorLessEqual:
		con = Interval{Lo: d.Min, Hi: v}
	case ast.OperatorEqual:
		con = Interval{Lo: v, Hi: v}
	case ast.OperatorNotEqual:
		return full.Intersect(Range{Interval: full.Interval, Excluded: []float64{v}}), nil
	default:
		return Range{}, fmt.Errorf("unknown operator %q", c.Operator)
	}
	return full.Intersect(Range{Interval: con}), nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
