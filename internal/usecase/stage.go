package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// stageRunner implements the claim-then-process loop shared by all three
// pipeline stages. Processing errors become queue-item transitions and never
// propagate out of ProcessPending.
type stageRunner struct {
	stage  domain.Stage
	queue  ports.QueueRepository
	cases  ports.CaseRepository
	batch  int
	logger *slog.Logger
	now    func() time.Time
	handle func(ctx context.Context, item domain.QueueItem, cs domain.Case) error
}

// ProcessPending pulls one batch of due PENDING items and works through
// them. Items claimed by another worker between the read and the claim are
// skipped silently.
func (s *stageRunner) ProcessPending(ctx context.Context) error {
	items, err := s.queue.PendingBatch(ctx, s.stage, s.batch)
	if err != nil {
		return fmt.Errorf("load pending %s items: %w", s.stage, err)
	}

	for _, pending := range items {
		item, ok, err := s.queue.Claim(ctx, pending.ID)
		if err != nil {
			s.logger.Error("claim failed", "item_id", pending.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		cs, err := s.cases.ByID(ctx, item.CaseID)
		if err != nil {
			s.settleFailure(ctx, item, fmt.Errorf("load case: %w", err))
			continue
		}

		if err := s.handle(ctx, item, cs); err != nil {
			s.settleFailure(ctx, item, err)
			continue
		}

		if err := s.queue.MarkCompleted(ctx, item.ID); err != nil {
			s.logger.Error("mark completed failed", "item_id", item.ID, "error", err)
		}
	}

	return nil
}

// settleFailure reverts the item to PENDING with a future scheduled-at while
// attempts remain, otherwise parks it as terminal FAILED.
func (s *stageRunner) settleFailure(ctx context.Context, item domain.QueueItem, cause error) {
	if item.Exhausted() {
		if err := s.queue.MarkFailed(ctx, item.ID, cause.Error()); err != nil {
			s.logger.Error("mark failed failed", "item_id", item.ID, "error", err)
			return
		}
		s.logger.Error("queue item exhausted",
			"stage", s.stage, "item_id", item.ID, "case_id", item.CaseID,
			"attempts", item.Attempts, "error", cause)
		return
	}

	retryAt := s.now().Add(retryBackoff(item.Attempts))
	if err := s.queue.MarkForRetry(ctx, item.ID, cause.Error(), retryAt); err != nil {
		s.logger.Error("mark for retry failed", "item_id", item.ID, "error", err)
		return
	}
	s.logger.Warn("queue item scheduled for retry",
		"stage", s.stage, "item_id", item.ID, "attempts", item.Attempts,
		"retry_at", retryAt, "error", cause)
}

// retryBackoff doubles the delay with each attempt: 1m, 2m, 4m, ...
func retryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 8 {
		attempts = 8
	}
	return time.Minute << uint(attempts-1)
}
