package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

const defaultExtractionPriority = 5

// IngestDeps wires the bulletin poll use case.
type IngestDeps struct {
	Source      ports.BulletinSource
	Cases       ports.CaseRepository
	Queue       ports.QueueRepository
	Court       string
	Concurrency int
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Ingest runs one bulletin poll cycle: fetch the listing, then persist new
// filings as cases with a pending extraction job each.
type Ingest struct {
	source      ports.BulletinSource
	cases       ports.CaseRepository
	queue       ports.QueueRepository
	court       string
	concurrency int
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewIngest constructs the poll use case with sane defaults.
func NewIngest(deps IngestDeps) *Ingest {
	if deps.Concurrency <= 0 {
		deps.Concurrency = 5
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
	return &Ingest{
		source:      deps.Source,
		cases:       deps.Cases,
		queue:       deps.Queue,
		court:       deps.Court,
		concurrency: deps.Concurrency,
		maxAttempts: deps.MaxAttempts,
		logger:      deps.Logger,
		now:         deps.Now,
	}
}

// Run executes a full poll cycle. A fetch failure aborts the cycle without
// partial persistence; the next scheduled poll starts from scratch.
func (i *Ingest) Run(ctx context.Context) error {
	filings, err := i.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch bulletin: %w", err)
	}
	i.logger.Debug("bulletin fetched", "filings", len(filings))
	return i.Persist(ctx, filings)
}

// Persist upserts each filing with bounded parallelism. Existing cases are
// left untouched; only newly inserted ones get an extraction job.
func (i *Ingest) Persist(ctx context.Context, filings []domain.Filing) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for _, filing := range filings {
		filing := filing
		g.Go(func() error {
			return i.persistOne(ctx, filing)
		})
	}

	return g.Wait()
}

func (i *Ingest) persistOne(ctx context.Context, filing domain.Filing) error {
	now := i.now()
	id, inserted, err := i.cases.InsertIfAbsent(ctx, domain.Case{
		ID:          uuid.NewString(),
		SourceURL:   filing.URL,
		Court:       i.court,
		Title:       filing.Title,
		PublishedAt: now,
		RiskLevel:   domain.RiskLow,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("upsert case %s: %w", filing.URL, err)
	}
	if !inserted {
		return nil
	}

	item := domain.QueueItem{
		ID:          uuid.NewString(),
		CaseID:      id,
		Stage:       domain.StageExtraction,
		Status:      domain.QueuePending,
		Priority:    defaultExtractionPriority,
		MaxAttempts: i.maxAttempts,
		ScheduledAt: now,
	}
	if err := i.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("enqueue extraction for case %s: %w", id, err)
	}

	i.logger.Debug("new filing persisted", "case_id", id, "url", filing.URL)
	return nil
}
