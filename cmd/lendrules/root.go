package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/cli"
)

// defaultConfigFile is read when --config is not given. Unlike an explicit
// --config, it may be absent.
const defaultConfigFile = "lendrules.yaml"

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lendrules",
	Short: "Lender eligibility rules engine",
	Long: `Lendrules stores lender eligibility rules and evaluates borrower records
against them.

Rules are validated against the borrower field catalog and rejected when they
duplicate or overlap an existing rule of the same lender. Eligibility queries
evaluate every stored rule and return the lenders with at least one match.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json")
}

// printResult writes v in the format selected by --output.
func printResult(cmd *cobra.Command, v any) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), v)
}
