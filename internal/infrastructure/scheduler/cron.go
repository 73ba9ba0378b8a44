package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"JobWatch/internal/ports"
	"JobWatch/pkg/logger"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

// CronScheduler triggers the job on a standard five-field cron expression.
type CronScheduler struct {
	expr     string
	location *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates the expression; a nil location means UTC.
func NewCronScheduler(expr string, location *time.Location) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("cron expression %q: %w", expr, err)
	}
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{expr: expr, location: location}, nil
}

// Start registers job and begins ticking until Stop or ctx cancellation.
// Overlapping triggers are skipped while a previous job still runs.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return ErrAlreadyStarted
	}

	cronLogger := cron.PrintfLogger(logger.New("scheduler"))
	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := runner.AddFunc(c.expr, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	runner.Start()
	c.cron = runner

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		if c.cron == runner {
			c.cron = nil
		}
		c.mu.Unlock()
		runner.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next trigger after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	schedule, err := cron.ParseStandard(c.expr)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(t.In(c.location))
}
