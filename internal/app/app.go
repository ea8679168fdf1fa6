package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"CourtWatch/internal/classify"
	"CourtWatch/internal/config"
	"CourtWatch/internal/extract"
	"CourtWatch/internal/infrastructure/bulletin"
	"CourtWatch/internal/infrastructure/notify"
	"CourtWatch/internal/infrastructure/scheduler"
	"CourtWatch/internal/infrastructure/storage"
	"CourtWatch/internal/logging"
	"CourtWatch/internal/ports"
	"CourtWatch/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	scheduler *usecase.Scheduler
	matcher   *usecase.Matcher
	notifier  ports.Notifier
}

// New builds the full dependency graph. Every component is constructed once
// here and passed explicit handles; nothing hides behind package state.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	cases := storage.NewCaseRepository(db)
	queue := storage.NewQueueRepository(db)
	alerts := storage.NewAlertRepository(db)
	preferences := storage.NewPreferenceRepository(db)
	userAlerts := storage.NewUserAlertRepository(db)

	source := bulletin.NewFetcher(cfg.Bulletin.URL, cfg.Bulletin.FetchTimeout(), nil)

	ingest := usecase.NewIngest(usecase.IngestDeps{
		Source:      source,
		Cases:       cases,
		Queue:       queue,
		Court:       cfg.Bulletin.Court,
		Concurrency: cfg.Bulletin.PersistConcurrency,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Logger:      baseLogger.With("component", "ingest"),
	})

	extraction := usecase.NewExtractionStage(usecase.ExtractionStageDeps{
		Queue:       queue,
		Cases:       cases,
		Extractor:   extract.New(),
		BatchSize:   cfg.Queue.ExtractionBatch,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Logger:      baseLogger.With("component", "extraction"),
	})

	classification := usecase.NewClassificationStage(usecase.ClassificationStageDeps{
		Queue:       queue,
		Cases:       cases,
		Classifier:  classify.New(),
		BatchSize:   cfg.Queue.ClassificationBatch,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Logger:      baseLogger.With("component", "classification"),
	})

	generation := usecase.NewAlertStage(usecase.AlertStageDeps{
		Queue:       queue,
		Cases:       cases,
		Alerts:      alerts,
		MajorCities: cfg.Alerts.MajorCities,
		BatchSize:   cfg.Queue.AlertGenerationBatch,
		Logger:      baseLogger.With("component", "alert_generation"),
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extraction:      extraction,
		Classification:  classification,
		AlertGeneration: generation,
		Queue:           queue,
		PurgeAfter:      time.Duration(cfg.Queue.PurgeAfterHours) * time.Hour,
		StaleAfter:      time.Duration(cfg.Queue.StaleAfterMinutes) * time.Minute,
		Logger:          baseLogger.With("component", "pipeline"),
	})

	matcher := usecase.NewMatcher(usecase.MatcherDeps{
		Alerts:      alerts,
		Preferences: preferences,
		UserAlerts:  userAlerts,
		Location:    cfg.Scheduler.Location(),
		Logger:      baseLogger.With("component", "matcher"),
	})

	driver := scheduler.New(cron.WithLocation(cfg.Scheduler.Location()))
	sched := usecase.NewScheduler(driver, pipeline, ingest, baseLogger.With("component", "scheduler"))

	var notifier ports.Notifier
	if cfg.Notifications.Webhook.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notifications.Webhook.URL, cfg.Notifications.Webhook.Token)
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		scheduler: sched,
		matcher:   matcher,
		notifier:  notifier,
	}, nil
}

// Matcher exposes the alert matcher to external callers (e.g. the web layer
// process embedding this package).
func (a *Application) Matcher() *usecase.Matcher {
	return a.matcher
}

// Notifier exposes the delivery channel, nil when no webhook is configured.
// The pipeline itself never delivers; the embedding process owns that.
func (a *Application) Notifier() ports.Notifier {
	return a.notifier
}

// Run starts both schedules and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	err := a.scheduler.Start(ctx, a.cfg.Scheduler.PipelineCron, a.cfg.Scheduler.BulletinCron)
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("courtwatch started",
		"pipeline_cron", a.cfg.Scheduler.PipelineCron,
		"bulletin_cron", a.cfg.Scheduler.BulletinCron)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}
