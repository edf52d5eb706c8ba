package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/rule/conflict"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
	"mercator-hq/lendrules/pkg/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check rule documents without storing them",
	Long: `Validate rule documents against the field catalog and show what each one
matches.

Files are checked in order against an empty in-memory store, so a file that
duplicates or overlaps an earlier file of the same lender is reported as a
conflict. The configured store is not read.

Examples:
  lendrules validate rules/axis-young.json
  lendrules validate rules/*.json --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateRules,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// fileValidation is the outcome for one document.
type fileValidation struct {
	Path    string                    `json:"path"`
	Valid   bool                      `json:"valid"`
	Preview *registry.Preview         `json:"preview,omitempty"`
	Errors  []*ruleerrors.SchemaError `json:"errors,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

type validateReport struct {
	Files []fileValidation `json:"files"`
}

func (r validateReport) failed() int {
	n := 0
	for _, f := range r.Files {
		if !f.Valid {
			n++
		}
	}
	return n
}

// Text renders the report for terminals.
func (r validateReport) Text() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Valid {
			fmt.Fprintf(&b, "ok    %s\n", f.Path)
		} else {
			fmt.Fprintf(&b, "FAIL  %s\n", f.Path)
		}
		if p := f.Preview; p != nil {
			fmt.Fprintf(&b, "      lender: %s\n      rule:   %s\n", p.Lender, p.Expression)
			for _, reg := range p.Regions {
				fmt.Fprintf(&b, "      region: %s\n", reg.Region)
			}
			for _, w := range p.Warnings {
				fmt.Fprintf(&b, "      warning: %s\n", w.String())
			}
			if c := p.Conflict; c != nil {
				fmt.Fprintf(&b, "      conflict: %s with %s", c.Kind, c.ExistingExpression)
				if c.Region != "" {
					fmt.Fprintf(&b, " on %s", c.Region)
				}
				b.WriteString("\n")
			}
		}
		for _, e := range f.Errors {
			fmt.Fprintf(&b, "      %s\n", e.Error())
		}
		if f.Error != "" {
			fmt.Fprintf(&b, "      %s\n", f.Error)
		}
	}
	fmt.Fprintf(&b, "%d file(s), %d failed\n", len(r.Files), r.failed())
	return b.String()
}

func validateRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := cfg.Rules.Catalog()
	if err != nil {
		return err
	}

	reg, err := registry.New(store.NewMemory(), registry.Config{
		Catalog:    catalog,
		MaxDepth:   cfg.Rules.MaxDepth,
		MaxClauses: cfg.Rules.MaxClauses,
	})
	if err != nil {
		return err
	}

	report := validateReport{Files: make([]fileValidation, 0, len(args))}
	var firstErr error
	for _, path := range args {
		res, err := validateFile(cmd.Context(), reg, path)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		report.Files = append(report.Files, res)
	}

	if err := printResult(cmd, report); err != nil {
		return err
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d file(s) failed validation: %w", report.failed(), len(args), firstErr)
	}
	return nil
}

// validateFile previews a document and, when it is acceptable, stores it
// in the scratch registry so later files are checked against it.
func validateFile(ctx context.Context, reg *registry.Registry, path string) (fileValidation, error) {
	res := fileValidation{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	p, err := reg.Preview(ctx, data)
	if err != nil {
		var el *ruleerrors.ErrorList
		if errors.As(err, &el) {
			res.Errors = el.Errors
		} else {
			res.Error = err.Error()
		}
		return res, err
	}
	res.Preview = p

	if !p.Accepted() {
		return res, p.Conflict.Err()
	}
	if _, err := reg.Submit(ctx, data); err != nil {
		var dup *conflict.DuplicateRuleError
		var ce *conflict.ConflictError
		if !errors.As(err, &dup) && !errors.As(err, &ce) {
			res.Error = err.Error()
		}
		return res, err
	}
	res.Valid = true
	return res, nil
}
