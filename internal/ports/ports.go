package ports

import (
	"context"
	"time"

	"CourtWatch/internal/domain"
)

// BulletinSource lists candidate filings from the external bulletin page.
type BulletinSource interface {
	Fetch(ctx context.Context) ([]domain.Filing, error)
}

// CaseRepository persists discovered filings and their derived fields.
type CaseRepository interface {
	// InsertIfAbsent creates the case keyed by its source URL. When a row
	// with the same URL already exists it is left untouched and inserted
	// comes back false.
	InsertIfAbsent(ctx context.Context, c domain.Case) (id string, inserted bool, err error)
	ByID(ctx context.Context, id string) (domain.Case, error)
	// SaveEntities stores the extraction-stage fields.
	SaveEntities(ctx context.Context, c domain.Case) error
	// SaveClassification stores the classification-stage fields and flips
	// the classified flag.
	SaveClassification(ctx context.Context, c domain.Case) error
}

// QueueRepository is the single shared mutable resource across stages.
// All mutation goes through Claim/Mark transitions, never blind updates.
type QueueRepository interface {
	Enqueue(ctx context.Context, item domain.QueueItem) error
	// PendingBatch returns due PENDING items for the stage ordered by
	// priority desc, then scheduled-at asc.
	PendingBatch(ctx context.Context, stage domain.Stage, limit int) ([]domain.QueueItem, error)
	// Claim transitions the item to IN_PROGRESS and increments attempts
	// only if it is still PENDING, returning the updated row. ok is false
	// when another worker got there first.
	Claim(ctx context.Context, id string) (item domain.QueueItem, ok bool, err error)
	MarkCompleted(ctx context.Context, id string) error
	// MarkForRetry reverts the item to PENDING, recording the error and a
	// new scheduled-at in the future.
	MarkForRetry(ctx context.Context, id string, errMsg string, retryAt time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	// PurgeFinished removes COMPLETED and FAILED items older than cutoff.
	PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error)
	// ReclaimStale resets IN_PROGRESS items started before cutoff back to
	// PENDING so crashed claims are not stuck forever.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertRepository stores generated alerts and serves matcher queries.
type AlertRepository interface {
	Create(ctx context.Context, a domain.Alert) (string, error)
	// ActiveHighPriority is the fallback feed for users without a profile:
	// ACTIVE alerts with priority HIGH, ordered priority desc then
	// discovered-at desc.
	ActiveHighPriority(ctx context.Context, limit int) ([]domain.Alert, error)
	// Search returns ACTIVE alerts matching the filter ordered by
	// opportunity score desc, priority desc, discovered-at desc.
	Search(ctx context.Context, f domain.AlertFilter, limit int) ([]domain.Alert, error)
}

// PreferenceRepository reads subscriber matching profiles.
type PreferenceRepository interface {
	// ByUser returns nil when the user has no profile.
	ByUser(ctx context.Context, userID string) (*domain.AlertPreference, error)
	// ActiveSubscribers lists every active user that has a profile.
	ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// UserAlertRepository counts delivered notifications for daily caps.
type UserAlertRepository interface {
	CountNotifiedSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Notifier hands ranked match results to the external delivery channel.
type Notifier interface {
	Deliver(ctx context.Context, matches []domain.MatchResult) error
}

// Scheduler drives recurring jobs from cron expressions.
type Scheduler interface {
	Add(spec string, job func()) error
	Start()
	Stop(ctx context.Context) error
}
