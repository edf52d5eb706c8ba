package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/audit"
)

var auditFlags struct {
	strict bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Re-check every stored rule",
	Long: `Run one audit pass over the configured store.

Each rule is re-validated against the current field catalog, its regions are
recomputed, and it is checked for duplicates and overlaps against the older
rules of its lender. The service runs the same pass on audit.schedule.

Examples:
  lendrules audit
  lendrules audit --strict --output json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().BoolVar(&auditFlags.strict, "strict", false, "exit non-zero when there are findings")
}

type auditResult struct {
	*audit.Report
}

// Text renders findings grouped by lender.
func (r auditResult) Text() string {
	var b strings.Builder
	lender := ""
	for _, f := range r.Findings {
		if f.Lender != lender {
			lender = f.Lender
			fmt.Fprintf(&b, "%s\n", lender)
		}
		fmt.Fprintf(&b, "  %-10s %s", f.Kind, f.RuleID)
		if f.OtherID != "" {
			fmt.Fprintf(&b, " vs %s", f.OtherID)
		}
		if f.Detail != "" {
			fmt.Fprintf(&b, ": %s", f.Detail)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d rule(s) across %d lender(s), %d finding(s)\n", r.Rules, r.Lenders, len(r.Findings))
	return b.String()
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	auditor, err := a.auditor()
	if err != nil {
		return err
	}
	report, err := auditor.Run(cmd.Context())
	if err != nil {
		return err
	}
	if err := printResult(cmd, auditResult{report}); err != nil {
		return err
	}
	if auditFlags.strict && !report.Clean() {
		return errors.New("audit found problems")
	}
	return nil
}
