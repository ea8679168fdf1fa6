package usecase

import (
	"context"
	"log/slog"

	"CourtWatch/internal/ports"
)

// Scheduler binds the pipeline tick and the bulletin poll to their
// independent cron schedules on the provided driver.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	ingest   *Ingest
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, ingest *Ingest, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, ingest: ingest, logger: logger}
}

// Start registers both jobs and starts the driver. pipelineSpec and
// bulletinSpec are standard cron expressions.
func (s *Scheduler) Start(ctx context.Context, pipelineSpec, bulletinSpec string) error {
	if err := s.driver.Add(pipelineSpec, func() {
		s.pipeline.Tick(ctx)
	}); err != nil {
		return err
	}

	if err := s.driver.Add(bulletinSpec, func() {
		if err := s.ingest.Run(ctx); err != nil {
			// A failed poll is retried wholesale on the next schedule.
			s.logger.Error("bulletin poll failed", "error", err)
		}
	}); err != nil {
		return err
	}

	s.driver.Start()
	return nil
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.driver.Stop(ctx)
}
