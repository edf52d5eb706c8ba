package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/lendrules/pkg/audit"
	"mercator-hq/lendrules/pkg/cli"
	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/importer"
	"mercator-hq/lendrules/pkg/server"
	"mercator-hq/lendrules/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the lendrules HTTP service",
	Long: `Start the lendrules HTTP service with the specified configuration.

Besides serving the API, run starts the scheduled audit when audit.schedule is
set and watches importer.dir for new rule documents when importer.watch is set.

Examples:
  # Start with lendrules.yaml from the working directory, or defaults
  lendrules run

  # Start with a custom config
  lendrules run --config /etc/lendrules/config.yaml

  # Override listen address
  lendrules run --listen 0.0.0.0:8080

  # Validate config without starting the service
  lendrules run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("store", health.PingCheck(a.store))

	srv, err := server.New(cfg.Server, server.Deps{
		Rules:       a.registry,
		Eligibility: a.service,
		Health:      checker,
		Metrics:     a.metrics,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Redactor:    a.redactor,
		Logger:      a.logger,
		Version:     Version,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Audit.Schedule != "" {
		auditor, err := a.auditor()
		if err != nil {
			return err
		}
		scheduler := audit.NewScheduler(auditor, cfg.Audit.Schedule, a.logger)
		if err := scheduler.Start(gctx, cfg.Audit.RunOnStart); err != nil {
			return cli.NewConfigError("audit.schedule", err.Error())
		}
		defer scheduler.Stop()
	}

	if cfg.Importer.Watch && cfg.Importer.Dir != "" {
		im := importer.New(a.registry, a.logger)
		g.Go(func() error {
			return im.Watch(gctx, cfg.Importer.Dir, importer.WithDebounce(cfg.Importer.Debounce))
		})
	}

	g.Go(func() error {
		return srv.Start(gctx)
	})

	a.logger.Info("lendrules started",
		"address", cfg.Server.ListenAddress,
		"store", cfg.Store.Backend,
		"version", Version,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}
	a.logger.Info("lendrules stopped")
	return nil
}
