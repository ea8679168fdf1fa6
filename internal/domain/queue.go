package domain

import "time"

// Stage identifies which pipeline step a queue item belongs to.
type Stage string

const (
	StageExtraction      Stage = "EXTRACTION"
	StageClassification  Stage = "CLASSIFICATION"
	StageAlertGeneration Stage = "ALERT_GENERATION"
)

// QueueStatus tracks the lifecycle of one unit of pipeline work.
type QueueStatus string

const (
	QueuePending    QueueStatus = "PENDING"
	QueueInProgress QueueStatus = "IN_PROGRESS"
	QueueCompleted  QueueStatus = "COMPLETED"
	QueueFailed     QueueStatus = "FAILED"
)

// QueueItem binds exactly one case to one stage. At most one item per
// (case, stage) pair may be IN_PROGRESS at a time; claims go through a
// conditional update so the invariant holds under concurrent workers.
type QueueItem struct {
	ID          string
	CaseID      string
	Stage       Stage
	Status      QueueStatus
	Priority    int
	Attempts    int
	MaxAttempts int
	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   string
}

// Exhausted reports whether the item has no retries left.
func (q QueueItem) Exhausted() bool {
	return q.Attempts >= q.MaxAttempts
}
