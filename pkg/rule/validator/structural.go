package validator

import (
	"strings"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// StructuralValidator checks tree shape: lender presence, non-empty logical
// nodes and at least one condition. Trees from the parser already satisfy
// most of this; trees built in code may not.
type StructuralValidator struct{}

// ValidateDocument checks the document envelope and its tree.
func (s *StructuralValidator) ValidateDocument(doc *ast.Document) *ruleerrors.ErrorList {
	errs := ruleerrors.NewErrorList()
	if strings.TrimSpace(doc.Lender) == "" {
		errs.Addf(ruleerrors.ReasonMissingLender, ast.RootPath.Key("lender"), "lender must be a non-empty string")
	}
	errs.Merge(s.ValidateTree(doc.Rule, ast.RootPath.Key("rule")))
	return errs
}

// ValidateTree checks the shape of a tree. fallback locates nodes that
// carry no path of their own.
func (s *StructuralValidator) ValidateTree(n ast.Node, fallback ast.Path) *ruleerrors.ErrorList {
	errs := ruleerrors.NewErrorList()
	if n == nil {
		errs.Addf(ruleerrors.ReasonEmptyTree, fallback, "rule tree is empty")
		return errs
	}

	conditions := 0
	var walk func(n ast.Node, path ast.Path)
	walk = func(n ast.Node, path ast.Path) {
		if n.Location() != ast.RootPath {
			path = n.Location()
		}
		switch n := n.(type) {
		case *ast.Condition:
			conditions++
		case *ast.Conjunction, *ast.Disjunction:
			key := string(n.Kind())
			children := ast.Children(n)
			if len(children) == 0 {
				errs.Addf(ruleerrors.ReasonEmptyChildren, path.Key(key), "logical node must have at least one child")
				return
			}
			for i, c := range children {
				if c == nil {
					errs.Addf(ruleerrors.ReasonInvalidNodeShape, path.Key(key).Index(i), "child node is nil")
					continue
				}
				walk(c, path.Key(key).Index(i))
			}
		}
	}
	walk(n, fallback)

	if conditions == 0 && !errs.HasReason(ruleerrors.ReasonInvalidNodeShape) {
		errs.Addf(ruleerrors.ReasonEmptyTree, fallback, "rule must contain at least one condition")
	}
	return errs
}
