package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"CourtWatch/internal/ports"
)

// stageProcessor is the shared surface of the three pipeline stages.
type stageProcessor interface {
	ProcessPending(ctx context.Context) error
}

// PipelineDeps wires the orchestrator.
type PipelineDeps struct {
	Extraction      stageProcessor
	Classification  stageProcessor
	AlertGeneration stageProcessor
	Queue           ports.QueueRepository
	PurgeAfter      time.Duration
	StaleAfter      time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

// Pipeline drives the three stages in order on every tick and then cleans
// the queue. A tick that fires while the previous one is still running is
// skipped outright, never queued.
type Pipeline struct {
	extraction      stageProcessor
	classification  stageProcessor
	alertGeneration stageProcessor
	queue           ports.QueueRepository
	purgeAfter      time.Duration
	staleAfter      time.Duration
	logger          *slog.Logger
	now             func() time.Time
	running         atomic.Bool
}

// NewPipeline constructs the orchestrator with defaults applied.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.PurgeAfter <= 0 {
		deps.PurgeAfter = 72 * time.Hour
	}
	if deps.StaleAfter <= 0 {
		deps.StaleAfter = 30 * time.Minute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{
		extraction:      deps.Extraction,
		classification:  deps.Classification,
		alertGeneration: deps.AlertGeneration,
		queue:           deps.Queue,
		purgeAfter:      deps.PurgeAfter,
		staleAfter:      deps.StaleAfter,
		logger:          deps.Logger,
		now:             deps.Now,
	}
}

// Tick runs one full pipeline pass: extraction, classification, alert
// generation, cleanup. Stage errors are logged, not propagated; a broken
// batch never takes the orchestrator down.
func (p *Pipeline) Tick(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Debug("tick skipped, previous run still in progress")
		return
	}
	defer p.running.Store(false)

	started := p.now()

	for _, st := range []struct {
		name string
		proc stageProcessor
	}{
		{"extraction", p.extraction},
		{"classification", p.classification},
		{"alert_generation", p.alertGeneration},
	} {
		if err := st.proc.ProcessPending(ctx); err != nil {
			p.logger.Error("stage batch failed", "stage", st.name, "error", err)
		}
	}

	p.cleanup(ctx)
	p.logger.Debug("tick finished", "elapsed", p.now().Sub(started))
}

// cleanup purges finished items past retention and reclaims stale claims
// left behind by a crashed run.
func (p *Pipeline) cleanup(ctx context.Context) {
	now := p.now()

	purged, err := p.queue.PurgeFinished(ctx, now.Add(-p.purgeAfter))
	if err != nil {
		p.logger.Error("purge finished items failed", "error", err)
	} else if purged > 0 {
		p.logger.Info("purged finished queue items", "count", purged)
	}

	reclaimed, err := p.queue.ReclaimStale(ctx, now.Add(-p.staleAfter))
	if err != nil {
		p.logger.Error("reclaim stale items failed", "error", err)
	} else if reclaimed > 0 {
		p.logger.Warn("reclaimed stale in-progress items", "count", reclaimed)
	}
}
