package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/extract"
	"CourtWatch/internal/ports"
)

// ExtractionStageDeps wires the entity-extraction stage.
type ExtractionStageDeps struct {
	Queue       ports.QueueRepository
	Cases       ports.CaseRepository
	Extractor   *extract.Extractor
	BatchSize   int
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time
}

// ExtractionStage consumes EXTRACTION queue items, fills in the case's
// entity fields and enqueues the follow-up classification job.
type ExtractionStage struct {
	runner      *stageRunner
	queue       ports.QueueRepository
	cases       ports.CaseRepository
	extractor   *extract.Extractor
	maxAttempts int
	now         func() time.Time
}

// NewExtractionStage constructs the stage with defaults applied.
func NewExtractionStage(deps ExtractionStageDeps) *ExtractionStage {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 20
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 3
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &ExtractionStage{
		queue:       deps.Queue,
		cases:       deps.Cases,
		extractor:   deps.Extractor,
		maxAttempts: deps.MaxAttempts,
		now:         deps.Now,
	}
	s.runner = &stageRunner{
		stage:  domain.StageExtraction,
		queue:  deps.Queue,
		cases:  deps.Cases,
		batch:  deps.BatchSize,
		logger: deps.Logger,
		now:    deps.Now,
		handle: s.handle,
	}
	return s
}

// ProcessPending works through one batch of pending extraction jobs.
func (s *ExtractionStage) ProcessPending(ctx context.Context) error {
	return s.runner.ProcessPending(ctx)
}

func (s *ExtractionStage) handle(ctx context.Context, item domain.QueueItem, cs domain.Case) error {
	// Closed cases never re-enter the pipeline; completing the job keeps
	// the queue clean without touching the row.
	if cs.Classified {
		return nil
	}

	entities := s.extractor.Extract(cs.CombinedText())
	cs.Addresses = entities.Addresses
	cs.PostalCodes = entities.PostalCodes
	cs.Municipalities = entities.Municipalities
	cs.Parties = entities.Parties
	cs.Statutes = entities.Statutes
	cs.CourtFileNumber = entities.CourtFileNumber
	cs.UpdatedAt = s.now()

	if err := s.cases.SaveEntities(ctx, cs); err != nil {
		return fmt.Errorf("save entities: %w", err)
	}

	next := domain.QueueItem{
		ID:          uuid.NewString(),
		CaseID:      cs.ID,
		Stage:       domain.StageClassification,
		Status:      domain.QueuePending,
		Priority:    item.Priority,
		MaxAttempts: s.maxAttempts,
		ScheduledAt: s.now(),
	}
	if err := s.queue.Enqueue(ctx, next); err != nil {
		return fmt.Errorf("enqueue classification: %w", err)
	}

	return nil
}
