package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"CourtWatch/internal/ports"
)

// CronScheduler drives recurring jobs with robfig/cron.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// New builds a scheduler evaluating cron expressions in the given location.
func New(opts ...cron.Option) *CronScheduler {
	return &CronScheduler{cron: cron.New(opts...)}
}

// Add registers a job under a standard cron expression.
func (c *CronScheduler) Add(spec string, job func()) error {
	_, err := c.cron.AddFunc(spec, job)
	return err
}

// Start launches the cron loop in its own goroutine.
func (c *CronScheduler) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
