package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/cli"
	"mercator-hq/lendrules/pkg/importer"
)

var importFlags struct {
	watch    bool
	progress bool
}

var importCmd = &cobra.Command{
	Use:   "import [DIR]",
	Short: "Import rule documents from a directory",
	Long: `Submit every *.json rule document in a directory to the configured store.

Documents go through the same validation and conflict checks as POST /rules.
Documents already stored for their lender count as present, so an import can
be repeated safely. DIR defaults to importer.dir from the configuration.

With --watch the directory is imported again whenever rule files change, until
interrupted.

Examples:
  lendrules import rules/
  lendrules import rules/ --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: importRules,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVarP(&importFlags.watch, "watch", "w", false, "keep importing as files change")
	importCmd.Flags().BoolVar(&importFlags.progress, "progress", false, "show a progress bar")
}

type importResult struct {
	*importer.Report
}

// Text renders one line per file and a summary.
func (r importResult) Text() string {
	var b strings.Builder
	for _, f := range r.Files {
		fmt.Fprintf(&b, "%-8s %s", f.Status, filepath.Base(f.Path))
		if f.RuleID != "" {
			fmt.Fprintf(&b, " (%s)", f.RuleID)
		}
		if f.Error != "" {
			fmt.Fprintf(&b, ": %s", f.Error)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d created, %d present, %d conflicting, %d invalid, %d failed\n",
		r.Count(importer.StatusCreated),
		r.Count(importer.StatusPresent),
		r.Count(importer.StatusConflict),
		r.Count(importer.StatusInvalid),
		r.Count(importer.StatusFailed),
	)
	return b.String()
}

func importRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Importer.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return cli.NewConfigError("importer.dir", "no directory given")
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	im := importer.New(a.registry, a.logger)

	if importFlags.watch {
		return im.Watch(ctx, dir,
			importer.WithDebounce(cfg.Importer.Debounce),
			importer.OnImport(func(r *importer.Report, err error) {
				if err != nil {
					a.logger.Error("import pass failed", "error", err)
					return
				}
				_ = printResult(cmd, importResult{r})
			}),
		)
	}

	var progress cli.ProgressReporter = cli.NopProgress{}
	if importFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "files")
	}
	report, err := importWithProgress(ctx, im, dir, progress)
	if err != nil {
		return cli.NewCommandError("import", err)
	}
	if err := printResult(cmd, importResult{report}); err != nil {
		return err
	}
	if report.Failed() {
		return cli.NewCommandError("import", fmt.Errorf("%d file(s) not imported",
			len(report.Files)-report.Count(importer.StatusCreated)-report.Count(importer.StatusPresent)))
	}
	return nil
}

func importWithProgress(ctx context.Context, im *importer.Importer, dir string, progress cli.ProgressReporter) (*importer.Report, error) {
	paths, err := importer.RuleFiles(dir)
	if err != nil {
		return nil, err
	}

	progress.Start(int64(len(paths)))
	report := &importer.Report{Files: make([]importer.FileResult, 0, len(paths))}
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			progress.Error(err)
			return nil, err
		}
		report.Files = append(report.Files, im.ImportFile(ctx, p))
		progress.Update(int64(i + 1))
	}
	progress.Finish()
	return report, nil
}
