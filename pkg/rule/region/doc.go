// Package region converts rule trees into explicit decision regions.
//
// A tree is expanded into disjunctive normal form. Each conjunctive clause
// becomes a Box: one Range per numeric field (an interval, open or closed
// at either end, minus a finite set of excluded points) and one Set per
// categorical field. Fields a clause does not mention are unrestricted.
// The union of the surviving boxes is exactly the set of records the rule
// matches.
//
// A clause whose constraints on some field cannot be met together (age > 60
// and age < 18) is dropped and reported as a DegenerateClauseWarning.
//
//	res, err := region.Extract(tree)
//	for _, w := range res.Warnings {
//	    log.Printf("clause %d never matches: %s", w.Clause, w.Expression)
//	}
//	if _, ok := region.OverlapSets(res.Boxes, other.Boxes); ok {
//	    // the two rules match a common population
//	}
package region
