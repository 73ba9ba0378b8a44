package usecase

import (
	"context"
	"log/slog"
	"time"

	"JobWatch/internal/ports"
)

// Scheduler wires the cron driver with the runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs of every active source.
func NewScheduler(driver ports.Scheduler, runner *Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the runner with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if s.logger != nil {
			s.logger.Info("scheduled run", "trigger", trigger)
		}
		outcomes, err := s.runner.RunAllActive(ctx, RunOptions{})
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
		s.logger.Info("scheduled run finished", "sources", len(outcomes))
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
