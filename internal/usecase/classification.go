package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CourtWatch/internal/classify"
	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// ClassificationStageDeps wires the classification stage.
type ClassificationStageDeps struct {
	Queue       ports.QueueRepository
	Cases       ports.CaseRepository
	Classifier  *classify.Classifier
	BatchSize   int
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time
}

// ClassificationStage consumes CLASSIFICATION queue items, assigns case
// types and risk, and conditionally enqueues alert generation.
type ClassificationStage struct {
	runner      *stageRunner
	queue       ports.QueueRepository
	cases       ports.CaseRepository
	classifier  *classify.Classifier
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewClassificationStage constructs the stage with defaults applied.
func NewClassificationStage(deps ClassificationStageDeps) *ClassificationStage {
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

	s := &ClassificationStage{
		queue:       deps.Queue,
		cases:       deps.Cases,
		classifier:  deps.Classifier,
		maxAttempts: deps.MaxAttempts,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	s.runner = &stageRunner{
		stage:  domain.StageClassification,
		queue:  deps.Queue,
		cases:  deps.Cases,
		batch:  deps.BatchSize,
		logger: deps.Logger,
		now:    deps.Now,
		handle: s.handle,
	}
	return s
}

// ProcessPending works through one batch of pending classification jobs.
func (s *ClassificationStage) ProcessPending(ctx context.Context) error {
	return s.runner.ProcessPending(ctx)
}

func (s *ClassificationStage) handle(ctx context.Context, item domain.QueueItem, cs domain.Case) error {
	if cs.Classified {
		return nil
	}

	result := s.classifier.Classify(cs)
	cs.CaseTypes = result.CaseTypes
	cs.RiskLevel = result.RiskLevel
	cs.Confidence = result.Confidence
	cs.Reasoning = result.Reasoning
	cs.Classified = true
	cs.UpdatedAt = s.now()

	if err := s.cases.SaveClassification(ctx, cs); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}

	if !classify.Alertable(result) {
		s.logger.Debug("case not alert-worthy",
			"case_id", cs.ID, "risk", result.RiskLevel, "types", len(result.CaseTypes))
		return nil
	}

	next := domain.QueueItem{
		ID:          uuid.NewString(),
		CaseID:      cs.ID,
		Stage:       domain.StageAlertGeneration,
		Status:      domain.QueuePending,
		Priority:    item.Priority + result.RiskLevel.Rank(),
		MaxAttempts: s.maxAttempts,
		ScheduledAt: s.now(),
	}
	if err := s.queue.Enqueue(ctx, next); err != nil {
		return fmt.Errorf("enqueue alert generation: %w", err)
	}

	return nil
}
