package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/cli"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	outputFormat = "text"
	auditFlags.strict = false
	evaluateFlags.record = ""
	importFlags.watch = false
	importFlags.progress = false
	rulesFlags.lender = ""
	runFlags.listenAddress = ""
	runFlags.logLevel = ""
	runFlags.dryRun = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfig writes a config backed by a fresh SQLite file.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := "store:\n" +
		"  backend: sqlite\n" +
		"  path: " + filepath.Join(dir, "rules.db") + "\n" +
		"telemetry:\n" +
		"  logging:\n" +
		"    level: error\n"
	path := filepath.Join(dir, "lendrules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeRules(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

const (
	axisYoung  = `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":18}},{"age":{"operator":"<","value":30}}]}}`
	axisSenior = `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":25}}]}}`
	hdfcIncome = `{"lender":"HDFC","rule":{"and":[{"income":{"operator":">=","value":50000}}]}}`
)

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lendrules "+Version)
	assert.Contains(t, out, "Go Version:")
}

func TestRunDryRun(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "", "run", "--config", cfg, "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "configuration valid\n", out)

	_, err = execute(t, "", "run", "--config", cfg, "--dry-run", "--log-level", "loud")
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "", "rules", "list", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	cfg := writeConfig(t)
	dir := writeRules(t, map[string]string{
		"a.json": axisYoung,
		"b.json": hdfcIncome,
		"c.json": axisSenior,
	})

	out, err := execute(t, "", "validate", "--config", cfg,
		filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok    "+filepath.Join(dir, "a.json"))
	assert.Contains(t, out, "2 file(s), 0 failed")

	// c overlaps a within the same lender.
	out, err = execute(t, "", "validate", "--config", cfg,
		filepath.Join(dir, "a.json"), filepath.Join(dir, "c.json"))
	require.Error(t, err)
	assert.Equal(t, cli.ExitConflict, cli.ExitCode(err))
	assert.Contains(t, out, "FAIL  "+filepath.Join(dir, "c.json"))
	assert.Contains(t, out, "conflict: overlap")
}

func TestValidateInvalidDocument(t *testing.T) {
	cfg := writeConfig(t)
	dir := writeRules(t, map[string]string{
		"bad.json": `{"lender":"AXIS","rule":{"and":[{"age":{"operator":"~","value":18}}]}}`,
	})

	out, err := execute(t, "", "validate", "--config", cfg, "-o", "json", filepath.Join(dir, "bad.json"))
	require.Error(t, err)
	assert.Equal(t, cli.ExitInvalid, cli.ExitCode(err))

	var report struct {
		Files []struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Path string `json:"path"`
			} `json:"errors"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Files, 1)
	assert.False(t, report.Files[0].Valid)
	assert.NotEmpty(t, report.Files[0].Errors)
}

func TestImportListEvaluateAudit(t *testing.T) {
	cfg := writeConfig(t)
	dir := writeRules(t, map[string]string{
		"01-axis.json": axisYoung,
		"02-hdfc.json": hdfcIncome,
	})

	out, err := execute(t, "", "import", dir, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "2 created, 0 present")

	// A second pass finds both rules already stored.
	out, err = execute(t, "", "import", dir, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 2 present")

	out, err = execute(t, "", "rules", "list", "--config", cfg, "-o", "json")
	require.NoError(t, err)
	var list struct {
		Rules []struct {
			ID     string `json:"id"`
			Lender string `json:"lender"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Rules, 2)
	assert.Equal(t, "HDFC", list.Rules[0].Lender)
	assert.Equal(t, "AXIS", list.Rules[1].Lender)

	out, err = execute(t, "", "rules", "list", "--config", cfg, "--lender", "AXIS")
	require.NoError(t, err)
	assert.Contains(t, out, "AXIS")
	assert.NotContains(t, out, "HDFC")

	out, err = execute(t, `{"age":25,"income":60000}`, "evaluate", "--config", cfg, "--record", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "eligible lenders: AXIS, HDFC")

	out, err = execute(t, `{"age":40,"income":60000}`, "evaluate", "--config", cfg, "--record", "-", "-o", "json")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []any{"HDFC"}, result["eligibleLenders"])

	out, err = execute(t, "", "audit", "--config", cfg, "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rule(s) across 2 lender(s), 0 finding(s)")
}

func TestImportReportsConflicts(t *testing.T) {
	cfg := writeConfig(t)
	dir := writeRules(t, map[string]string{
		"01-axis.json":   axisYoung,
		"02-senior.json": axisSenior,
	})

	out, err := execute(t, "", "import", dir, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
	assert.Contains(t, out, "conflict 02-senior.json")
}

func TestEvaluateRejectsNonObject(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, `[1,2]`, "evaluate", "--config", cfg, "--record", "-")
	require.Error(t, err)
}
