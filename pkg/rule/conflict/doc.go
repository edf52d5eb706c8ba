// Package conflict decides whether a candidate rule may be stored next to
// the rules a lender already has.
//
// A candidate is a Duplicate when its tree is structurally equal, ignoring
// child order, to a stored tree of the same lender. It is an Overlap when
// some region it matches intersects a region of a stored rule of the same
// lender. Rules of different lenders never conflict. Duplicate takes
// precedence over Overlap.
//
// The detector is a pure function of its inputs: callers pass the stored
// rules explicitly.
package conflict
