package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// QueueRepository stores pipeline work items in processing_queue. The claim
// is a single conditional UPDATE so the at-most-one-IN_PROGRESS invariant
// holds even with multiple workers.
type QueueRepository struct {
	db *sql.DB
}

var _ ports.QueueRepository = (*QueueRepository)(nil)

var queueColumns = []string{
	"id", "case_id", "stage", "status", "priority", "attempts", "max_attempts",
	"scheduled_at", "started_at", "completed_at", "last_error",
}

// NewQueueRepository wires a sql.DB implementation.
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue inserts a new PENDING item.
func (r *QueueRepository) Enqueue(ctx context.Context, item domain.QueueItem) error {
	query := psql.Insert("processing_queue").
		Columns("id", "case_id", "stage", "status", "priority", "attempts",
			"max_attempts", "scheduled_at", "last_error").
		Values(item.ID, item.CaseID, string(item.Stage), string(domain.QueuePending),
			item.Priority, item.Attempts, item.MaxAttempts, item.ScheduledAt, item.LastError)

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("enqueue %s item for case %s: %w", item.Stage, item.CaseID, err)
	}
	return nil
}

// PendingBatch returns due PENDING items for the stage, highest priority
// first and oldest schedule first within a priority.
func (r *QueueRepository) PendingBatch(ctx context.Context, stage domain.Stage, limit int) ([]domain.QueueItem, error) {
	query := psql.Select(queueColumns...).
		From("processing_queue").
		Where(sq.Eq{"stage": string(stage), "status": string(domain.QueuePending)}).
		Where(sq.Expr("scheduled_at <= NOW()")).
		OrderBy("priority DESC", "scheduled_at ASC").
		Limit(uint64(limit))

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query pending %s items: %w", stage, err)
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// Claim transitions PENDING -> IN_PROGRESS and bumps attempts in one
// conditional update. ok is false when the item was no longer PENDING.
func (r *QueueRepository) Claim(ctx context.Context, id string) (domain.QueueItem, bool, error) {
	query := psql.Update("processing_queue").
		Set("status", string(domain.QueueInProgress)).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("started_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": string(domain.QueuePending)}).
		Suffix("RETURNING " + joinColumns(queueColumns))

	row := query.RunWith(r.db).QueryRowContext(ctx)
	item, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QueueItem{}, false, nil
	}
	if err != nil {
		return domain.QueueItem{}, false, fmt.Errorf("claim item %s: %w", id, err)
	}
	return item, true, nil
}

// MarkCompleted finishes an item successfully.
func (r *QueueRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.transition(ctx, id, func(b sq.UpdateBuilder) sq.UpdateBuilder {
		return b.Set("status", string(domain.QueueCompleted)).
			Set("completed_at", sq.Expr("NOW()"))
	})
}

// MarkForRetry reverts an item to PENDING with the error recorded and a
// future scheduled-at.
func (r *QueueRepository) MarkForRetry(ctx context.Context, id string, errMsg string, retryAt time.Time) error {
	return r.transition(ctx, id, func(b sq.UpdateBuilder) sq.UpdateBuilder {
		return b.Set("status", string(domain.QueuePending)).
			Set("last_error", errMsg).
			Set("scheduled_at", retryAt).
			Set("started_at", nil)
	})
}

// MarkFailed parks an item as terminal FAILED.
func (r *QueueRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.transition(ctx, id, func(b sq.UpdateBuilder) sq.UpdateBuilder {
		return b.Set("status", string(domain.QueueFailed)).
			Set("last_error", errMsg).
			Set("completed_at", sq.Expr("NOW()"))
	})
}

// PurgeFinished deletes COMPLETED and FAILED items finished before cutoff.
func (r *QueueRepository) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	query := psql.Delete("processing_queue").
		Where(sq.Eq{"status": []string{string(domain.QueueCompleted), string(domain.QueueFailed)}}).
		Where(sq.Lt{"COALESCE(completed_at, scheduled_at)": cutoff})

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge finished items: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStale resets IN_PROGRESS items started before cutoff back to
// PENDING so a crashed claim does not strand the case mid-pipeline.
func (r *QueueRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := psql.Update("processing_queue").
		Set("status", string(domain.QueuePending)).
		Set("started_at", nil).
		Set("last_error", "reclaimed: stale in-progress claim").
		Where(sq.Eq{"status": string(domain.QueueInProgress)}).
		Where(sq.Lt{"started_at": cutoff})

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

func (r *QueueRepository) transition(ctx context.Context, id string, mutate func(sq.UpdateBuilder) sq.UpdateBuilder) error {
	query := mutate(psql.Update("processing_queue")).Where(sq.Eq{"id": id})
	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("update item %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (domain.QueueItem, error) {
	var (
		item        domain.QueueItem
		stage       string
		status      string
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&item.ID, &item.CaseID, &stage, &status, &item.Priority,
		&item.Attempts, &item.MaxAttempts, &item.ScheduledAt,
		&startedAt, &completedAt, &item.LastError)
	if err != nil {
		return domain.QueueItem{}, err
	}

	item.Stage = domain.Stage(stage)
	item.Status = domain.QueueStatus(status)
	if startedAt.Valid {
		item.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		item.CompletedAt = &completedAt.Time
	}
	return item, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
