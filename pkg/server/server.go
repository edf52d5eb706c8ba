package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/eligibility"
	"mercator-hq/lendrules/pkg/ratelimit"
	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/evaluator"
	servertls "mercator-hq/lendrules/pkg/security/tls"
	"mercator-hq/lendrules/pkg/telemetry/health"
	"mercator-hq/lendrules/pkg/telemetry/logging"
	"mercator-hq/lendrules/pkg/telemetry/metrics"
)

// RuleService is the create and list side of the registry.
type RuleService interface {
	Submit(ctx context.Context, data []byte) (*registry.SubmitResult, error)
	Preview(ctx context.Context, data []byte) (*registry.Preview, error)
	List(ctx context.Context) ([]*rule.Rule, error)
}

// Evaluator answers eligibility queries.
type Evaluator interface {
	Evaluate(ctx context.Context, record evaluator.Record) (*eligibility.Result, error)
}

// Deps are the components the server routes to.
type Deps struct {
	Rules       RuleService
	Eligibility Evaluator
	// Health serves /health and /ready. Nil registers no checks.
	Health *health.Checker
	// Metrics serves MetricsPath and records request metrics. May be nil.
	Metrics     *metrics.Collector
	MetricsPath string
	// Redactor masks borrower attributes in logged records. May be nil.
	Redactor *logging.Redactor
	Logger   *slog.Logger
	Version  string
}

// Server is the lendrules HTTP server.
type Server struct {
	config  config.ServerConfig
	deps    Deps
	logger  *slog.Logger
	limiter *ratelimit.Keyed
	handler http.Handler

	mu           sync.RWMutex
	httpServer   *http.Server
	addr         string
	isRunning    bool
	shutdownOnce sync.Once
}

// New creates a server. Rules and Eligibility are required.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Rules == nil || deps.Eligibility == nil {
		return nil, errors.New("server: rule service and evaluator are required")
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logging.Default(deps.Logger),
		limiter: ratelimit.NewKeyed(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	if t := s.config.TLS; t.Enabled {
		reloader := servertls.NewCertificateReloader(t.CertFile, t.KeyFile, t.ReloadInterval, s.logger)
		tlsConfig, err := reloader.TLSConfig(t.MinVersion)
		if err == nil {
			err = reloader.Start(ctx)
		}
		if err != nil {
			_ = ln.Close()
			s.mu.Unlock()
			return fmt.Errorf("tls: %w", err)
		}
		ln = tls.NewListener(ln, tlsConfig)
	}
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.addr = ln.Addr().String()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting lendrules server", "address", s.addr, "version", s.deps.Version)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv, running := s.httpServer, s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("lendrules server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
