package validator

import (
	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// Validator orchestrates the structural and semantic passes over a parsed
// rule document.
type Validator struct {
	structural *StructuralValidator
	semantic   *SemanticValidator
}

// New creates a validator checking fields against catalog. A nil catalog
// selects ast.DefaultCatalog.
func New(catalog *ast.Catalog) *Validator {
	if catalog == nil {
		catalog = ast.DefaultCatalog()
	}
	return &Validator{
		structural: &StructuralValidator{},
		semantic:   &SemanticValidator{catalog: catalog},
	}
}

// Catalog returns the field catalog used by the semantic pass.
func (v *Validator) Catalog() *ast.Catalog {
	return v.semantic.catalog
}

// Validate checks a whole document. The semantic pass only runs when the
// structural pass found nothing, to avoid cascading errors.
func (v *Validator) Validate(doc *ast.Document) error {
	errs := ruleerrors.NewErrorList()
	if doc == nil {
		errs.Addf(ruleerrors.ReasonMalformedDocument, ast.RootPath, "document is required")
		return errs
	}

	errs.Merge(v.structural.ValidateDocument(doc))
	if !errs.HasErrors() {
		errs.Merge(v.semantic.Validate(doc.Rule))
	}
	return errs.ToError()
}
