package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"mercator-hq/lendrules/pkg/audit"
	"mercator-hq/lendrules/pkg/cli"
	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/eligibility"
	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/rule/ast"
	"mercator-hq/lendrules/pkg/store"
	"mercator-hq/lendrules/pkg/telemetry/logging"
	"mercator-hq/lendrules/pkg/telemetry/metrics"
	"mercator-hq/lendrules/pkg/telemetry/tracing"
)

// loadConfig initializes the process configuration. The default config
// file may be missing, in which case defaults and environment overrides
// apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	if err := config.Initialize(path); err != nil {
		return nil, cli.NewConfigError(path, err.Error())
	}
	return config.GetConfig(), nil
}

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	redactor *logging.Redactor
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	store    store.Store
	registry *registry.Registry
	service  *eligibility.Service
}

// newApp wires the store, registry and eligibility service from cfg.
func newApp(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	catalog, err := cfg.Rules.Catalog()
	if err != nil {
		return nil, cli.NewConfigError("rules.domains", err.Error())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, reg)

	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	st, err := store.Open(ctx, storeConfig(cfg.Store), logger)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		redactor: logging.NewRedactor(cfg.Telemetry.Logging.RedactFields),
		metrics:  collector,
		tracer:   tracer,
		store:    st,
	}

	a.registry, err = registry.New(st, a.rulesConfig(catalog),
		registry.WithLogger(logger),
		registry.WithMetrics(collector),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.service, err = eligibility.NewService(st,
		eligibility.WithConcurrency(cfg.Eligibility.Concurrency),
		eligibility.WithTimeout(cfg.Eligibility.Timeout),
		eligibility.WithLogger(logger),
		eligibility.WithMetrics(collector),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	if rules, err := st.FindAll(ctx); err == nil {
		collector.SetRulesStored(len(rules))
	}
	return a, nil
}

func (a *app) rulesConfig(catalog *ast.Catalog) registry.Config {
	return registry.Config{
		Catalog:    catalog,
		MaxDepth:   a.cfg.Rules.MaxDepth,
		MaxClauses: a.cfg.Rules.MaxClauses,
	}
}

func (a *app) auditor() (*audit.Auditor, error) {
	return audit.New(a.store, a.rulesConfig(a.registry.Catalog()),
		audit.WithLogger(a.logger),
		audit.WithMetrics(a.metrics),
	)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
	if err := a.tracer.Shutdown(context.Background()); err != nil {
		a.logger.Warn("flushing traces", "error", err)
	}
}

func storeConfig(c config.StoreConfig) store.Config {
	return store.Config{
		Backend:            c.Backend,
		Path:               c.Path,
		Driver:             c.Driver,
		DSN:                c.DSN,
		BusyTimeout:        c.BusyTimeout,
		CheckpointInterval: c.CheckpointInterval,
		MaxConns:           c.MaxConns,
		MinConns:           c.MinConns,
	}
}
