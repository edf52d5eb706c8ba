package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/rule"
)

var rulesFlags struct {
	lender string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect stored rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rules, newest first",
	Long: `List the rules in the configured store, newest first.

Examples:
  lendrules rules list
  lendrules rules list --lender AXIS --output json`,
	Args: cobra.NoArgs,
	RunE: listRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)

	rulesListCmd.Flags().StringVar(&rulesFlags.lender, "lender", "", "only list this lender's rules")
}

type ruleList struct {
	Rules []*rule.Rule `json:"rules"`
}

// Text renders the rules as a table.
func (l ruleList) Text() string {
	if len(l.Rules) == 0 {
		return "no rules stored\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLENDER\tCREATED\tRULE")
	for _, r := range l.Rules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Lender, r.CreatedAt.Format(time.RFC3339), r.Expression)
	}
	_ = w.Flush()
	return b.String()
}

func listRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	rules, err := a.registry.List(cmd.Context())
	if err != nil {
		return err
	}
	if rulesFlags.lender != "" {
		filtered := rules[:0:0]
		for _, r := range rules {
			if r.Lender == rulesFlags.lender {
				filtered = append(filtered, r)
			}
		}
		rules = filtered
	}
	if rules == nil {
		rules = []*rule.Rule{}
	}
	return printResult(cmd, ruleList{Rules: rules})
}
