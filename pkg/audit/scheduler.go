package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner performs one audit pass.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler runs audit passes on a cron schedule.
type Scheduler struct {
	runner   Runner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	last    *Report
}

// NewScheduler creates a scheduler for schedule in standard five-field
// cron syntax, e.g. "0 3 * * *" for daily at 3 AM. An empty schedule
// disables scheduling.
func NewScheduler(runner Runner, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "audit.scheduler"),
	}
}

// Start schedules audit passes until ctx is cancelled or Stop is called.
// With runOnStart a pass also runs immediately in the background.
func (s *Scheduler) Start(ctx context.Context, runOnStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("audit schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return fmt.Errorf("audit scheduler already running")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule audit: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("audit scheduler started", "schedule", s.schedule)

	if runOnStart {
		go s.runOnce(ctx)
	}
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.logger.Info("starting scheduled audit")

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled audit failed", "error", err)
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if report.Clean() {
		s.logger.Debug("scheduled audit completed, no findings")
	} else {
		s.logger.Warn("scheduled audit completed with findings", "findings", len(report.Findings))
	}
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	// runOnce takes mu, so wait outside it.
	<-s.cron.Stop().Done()
	s.logger.Info("audit scheduler stopped")
}

// IsRunning reports whether passes are scheduled.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the report of the most recent successful pass.
func (s *Scheduler) LastReport() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// NextRun returns the next scheduled pass, or nil when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
