package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtWatch/internal/classify"
	"CourtWatch/internal/domain"
	"CourtWatch/internal/extract"
)

func newTestPipeline(store *memStore, now func() time.Time) *Pipeline {
	extraction := NewExtractionStage(ExtractionStageDeps{
		Queue: store, Cases: store, Extractor: extract.New(), Now: now,
	})
	classification := NewClassificationStage(ClassificationStageDeps{
		Queue: store, Cases: store, Classifier: classify.New(), Now: now,
	})
	generation := NewAlertStage(AlertStageDeps{
		Queue: store, Cases: store, Alerts: store,
		MajorCities: []string{"Toronto", "Ottawa"}, Now: now,
	})
	return NewPipeline(PipelineDeps{
		Extraction:      extraction,
		Classification:  classification,
		AlertGeneration: generation,
		Queue:           store,
		Now:             now,
	})
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newMemStore(clock)

	ingest := NewIngest(IngestDeps{
		Cases: store, Queue: store,
		Court: "Ontario Superior Court of Justice", Now: clock,
	})

	filing := domain.Filing{
		Title: "Notice of Power of Sale under mortgage default - 123 Main Street, Toronto ON",
		URL:   "https://bulletins.example.ca/notices/2026-0412.pdf",
	}
	require.NoError(t, ingest.Persist(ctx, []domain.Filing{filing}))

	// One tick flows the case through all three stages in order.
	newTestPipeline(store, clock).Tick(ctx)

	require.Len(t, store.cases, 1)
	var cs domain.Case
	for _, c := range store.cases {
		cs = c
	}
	assert.True(t, cs.Classified)
	assert.Equal(t, []string{"123 Main Street"}, cs.Addresses)
	assert.Equal(t, []string{"Toronto"}, cs.Municipalities)
	assert.Contains(t, cs.CaseTypes, domain.CasePowerOfSale)
	assert.Equal(t, domain.RiskHigh, cs.RiskLevel)

	require.Len(t, store.alerts, 1)
	alert := store.alerts[0]
	assert.Equal(t, domain.AlertPowerOfSale, alert.Type)
	assert.Equal(t, domain.PriorityHigh, alert.Priority)
	assert.GreaterOrEqual(t, alert.OpportunityScore, 80)
	assert.LessOrEqual(t, alert.OpportunityScore, 100)
	assert.Equal(t, "123 Main Street", alert.Address)
	assert.Equal(t, "Toronto", alert.City)

	for _, stage := range []domain.Stage{domain.StageExtraction, domain.StageClassification, domain.StageAlertGeneration} {
		items := store.queueItems(stage)
		require.Len(t, items, 1, "stage %s", stage)
		assert.Equal(t, domain.QueueCompleted, items[0].Status, "stage %s", stage)
	}
}

func TestPersistDeduplicatesBySourceURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore(nil)
	ingest := NewIngest(IngestDeps{Cases: store, Queue: store})

	filings := []domain.Filing{
		{Title: "Notice of Sale", URL: "https://bulletins.example.ca/notices/1.pdf"},
		{Title: "Notice of Sale (repost)", URL: "https://bulletins.example.ca/notices/1.pdf"},
	}

	require.NoError(t, ingest.Persist(ctx, filings))
	require.NoError(t, ingest.Persist(ctx, filings))

	assert.Len(t, store.cases, 1, "same URL never creates a duplicate case")
	assert.Len(t, store.queueItems(domain.StageExtraction), 1)
}

func TestStageRetriesThenFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newMemStore(clock)
	store.errOnSaveEntities = errors.New("storage flaked")

	caseRow := domain.Case{ID: "c1", SourceURL: "https://x/1.pdf", Title: "Notice of Power of Sale"}
	_, _, err := store.InsertIfAbsent(ctx, caseRow)
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, domain.QueueItem{
		ID: "q1", CaseID: "c1", Stage: domain.StageExtraction,
		Status: domain.QueuePending, MaxAttempts: 2, ScheduledAt: now,
	}))

	stage := NewExtractionStage(ExtractionStageDeps{
		Queue: store, Cases: store, Extractor: extract.New(), Now: clock,
	})

	// First attempt: reverted to PENDING with a future retry.
	require.NoError(t, stage.ProcessPending(ctx))
	items := store.queueItems(domain.StageExtraction)
	require.Len(t, items, 1)
	assert.Equal(t, domain.QueuePending, items[0].Status)
	assert.Equal(t, 1, items[0].Attempts)
	assert.Equal(t, "storage flaked", items[0].LastError)
	assert.True(t, items[0].ScheduledAt.After(now), "retry is pushed into the future")

	// Second attempt (retry due): attempts exhausted, terminal FAILED.
	now = items[0].ScheduledAt.Add(time.Second)
	require.NoError(t, stage.ProcessPending(ctx))
	items = store.queueItems(domain.StageExtraction)
	require.Len(t, items, 1)
	assert.Equal(t, domain.QueueFailed, items[0].Status)
	assert.Equal(t, 2, items[0].Attempts)
}

func TestExtractionSkipsClassifiedCase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore(nil)
	closed := domain.Case{ID: "c1", SourceURL: "https://x/1.pdf", Classified: true}
	_, _, err := store.InsertIfAbsent(ctx, closed)
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, domain.QueueItem{
		ID: "q1", CaseID: "c1", Stage: domain.StageExtraction,
		Status: domain.QueuePending, MaxAttempts: 3, ScheduledAt: time.Now().Add(-time.Minute),
	}))

	stage := NewExtractionStage(ExtractionStageDeps{Queue: store, Cases: store, Extractor: extract.New()})
	require.NoError(t, stage.ProcessPending(ctx))

	items := store.queueItems(domain.StageExtraction)
	require.Len(t, items, 1)
	assert.Equal(t, domain.QueueCompleted, items[0].Status, "closed case completes as a no-op")
	assert.Empty(t, store.queueItems(domain.StageClassification))
}

func TestAlertStageNoAddressIsNoOpSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore(nil)
	cs := domain.Case{
		ID: "c1", SourceURL: "https://x/1.pdf", Classified: true,
		CaseTypes: []domain.CaseType{domain.CasePowerOfSale},
		RiskLevel: domain.RiskHigh,
	}
	_, _, err := store.InsertIfAbsent(ctx, cs)
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, domain.QueueItem{
		ID: "q1", CaseID: "c1", Stage: domain.StageAlertGeneration,
		Status: domain.QueuePending, MaxAttempts: 3, ScheduledAt: time.Now().Add(-time.Minute),
	}))

	stage := NewAlertStage(AlertStageDeps{Queue: store, Cases: store, Alerts: store})
	require.NoError(t, stage.ProcessPending(ctx))

	items := store.queueItems(domain.StageAlertGeneration)
	require.Len(t, items, 1)
	assert.Equal(t, domain.QueueCompleted, items[0].Status)
	assert.Empty(t, store.alerts, "no address means no alert, not a failure")
}

func TestCleanupPurgesAndReclaims(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newMemStore(clock)

	oldDone := now.Add(-100 * time.Hour)
	staleStart := now.Add(-2 * time.Hour)
	freshStart := now.Add(-time.Minute)

	store.queue["done"] = &domain.QueueItem{
		ID: "done", Stage: domain.StageExtraction,
		Status: domain.QueueCompleted, CompletedAt: &oldDone,
	}
	store.queue["stuck"] = &domain.QueueItem{
		ID: "stuck", Stage: domain.StageExtraction,
		Status: domain.QueueInProgress, StartedAt: &staleStart,
	}
	store.queue["working"] = &domain.QueueItem{
		ID: "working", Stage: domain.StageExtraction,
		Status: domain.QueueInProgress, StartedAt: &freshStart,
	}

	newTestPipeline(store, clock).Tick(ctx)

	assert.NotContains(t, store.queue, "done", "finished item past retention is purged")
	assert.Equal(t, domain.QueuePending, store.queue["stuck"].Status, "stale claim reclaimed")
	assert.Equal(t, domain.QueueInProgress, store.queue["working"].Status, "recent claim untouched")
}
