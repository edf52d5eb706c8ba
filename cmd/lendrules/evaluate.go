package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/eligibility"
	"mercator-hq/lendrules/pkg/rule/evaluator"
)

var evaluateFlags struct {
	record string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "List the lenders whose rules accept a borrower record",
	Long: `Evaluate a borrower record against every rule in the configured store.

The record is a JSON object of borrower fields. Fields a rule needs but the
record lacks make that rule not match. A field of the wrong type is reported
for the rules that use it.

Examples:
  lendrules evaluate --record borrower.json
  echo '{"age":25,"income":50000}' | lendrules evaluate --record -`,
	Args: cobra.NoArgs,
	RunE: evaluateRecord,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.record, "record", "r", "", "borrower record file, or - for stdin")
	_ = evaluateCmd.MarkFlagRequired("record")
}

type evaluateResult struct {
	Record evaluator.Record `json:"record"`
	*eligibility.Result
}

// Text renders the result for terminals.
func (r evaluateResult) Text() string {
	var b strings.Builder
	if len(r.EligibleLenders) == 0 {
		b.WriteString("no eligible lenders\n")
	} else {
		fmt.Fprintf(&b, "eligible lenders: %s\n", strings.Join(r.EligibleLenders, ", "))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "rule %s (%s) not evaluated: %s\n", f.RuleID, f.Lender, f.Error)
	}
	fmt.Fprintf(&b, "%d rule(s) evaluated\n", r.RulesEvaluated)
	return b.String()
}

func evaluateRecord(cmd *cobra.Command, args []string) error {
	record, err := readRecord(cmd.InOrStdin(), evaluateFlags.record)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.service.Evaluate(cmd.Context(), record)
	if err != nil {
		return err
	}
	return printResult(cmd, evaluateResult{Record: record, Result: res})
}

func readRecord(stdin io.Reader, path string) (evaluator.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var record evaluator.Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("record %s: %w", path, err)
	}
	if record == nil {
		return nil, fmt.Errorf("record %s: expected a JSON object", path)
	}
	return record, nil
}
