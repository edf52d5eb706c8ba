package parser

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"mercator-hq/lendrules/pkg/rule/ast"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// SchemaURL identifies the embedded rule document schema.
const SchemaURL = "https://lendrules.mercator-hq.dev/schema/rule-document.json"

//go:embed schema.json
var schemaData []byte

// Schema returns the raw JSON Schema of the wire format.
func Schema() []byte {
	out := make([]byte, len(schemaData))
	copy(out, schemaData)
	return out
}

func compileSchema() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(schemaData, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(SchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	s, err := compiler.Compile(SchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// schemaError converts a jsonschema validation failure into a SchemaError
// located at the most specific failing instance.
func schemaError(err error) *ruleerrors.SchemaError {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return ruleerrors.New(ruleerrors.ReasonMalformedDocument, ast.RootPath, "schema validation: %v", err)
	}

	loc := mostSpecificLocation(validationErr)
	path := ast.PathFromSegments(loc)

	if len(loc) == 0 || loc[0] != "rule" {
		return ruleerrors.New(ruleerrors.ReasonMalformedDocument, path,
			`document must be an object with a string "lender" and a "rule" node`)
	}

	last := loc[len(loc)-1]
	switch {
	case last == "and" || last == "or":
		return ruleerrors.New(ruleerrors.ReasonInvalidNodeShape, path, "%q must be an array of nodes", last)
	case last == "rule" || isIndex(last):
		return ruleerrors.New(ruleerrors.ReasonInvalidNodeShape, path,
			`node must hold exactly one of "and", "or" or a single field`)
	default:
		return ruleerrors.New(ruleerrors.ReasonInvalidNodeShape, path,
			`comparison must be an object with exactly "operator" and "value"`)
	}
}

// mostSpecificLocation returns the longest instance location among the
// error and its causes.
func mostSpecificLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation
	for _, cause := range err.Causes {
		if candidate := mostSpecificLocation(cause); len(candidate) > len(longest) {
			longest = candidate
		}
	}
	return longest
}

func isIndex(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
