package meteoflow

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avolkhov/meteoflow/internal/meteoflow/extractor"
	"github.com/avolkhov/meteoflow/internal/meteoflow/handler"
	"github.com/avolkhov/meteoflow/internal/meteoflow/loader"
	"github.com/avolkhov/meteoflow/internal/meteoflow/messaging"
	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/notifier"
	"github.com/avolkhov/meteoflow/internal/meteoflow/pipeline"
	"github.com/avolkhov/meteoflow/internal/meteoflow/runner"
	"github.com/avolkhov/meteoflow/internal/meteoflow/scheduler"
	"github.com/avolkhov/meteoflow/internal/meteoflow/staging"
	"github.com/avolkhov/meteoflow/internal/meteoflow/store"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// Server is the long-running service: the schedule loop plus the HTTP API.
type Server struct {
	cfg          Config
	logger       log.Logger
	store        store.IStore
	artifacts    staging.Store
	orchestrator *pipeline.Orchestrator
	events       *messaging.Publisher
	engine       *gin.Engine
	schedule     scheduler.Schedule

	// trigger carries manual run requests from the HTTP handler into the
	// schedule loop. Capacity one: a pending manual run absorbs duplicates.
	trigger chan struct{}
}

// NewLogger builds the process logger from config and installs it as the
// package default.
func NewLogger(cfg Config) log.Logger {
	opts := log.NewOptions()
	opts.Level = cfg.LogLevel
	opts.Format = cfg.LogFormat
	log.Init(opts)
	return log.Default()
}

// NewTrackingStore opens the run-tracking store: SQLite by default, the
// in-process store when EnableMemoryStore is set.
func NewTrackingStore(cfg Config, logger log.Logger) (store.IStore, error) {
	if cfg.EnableMemoryStore {
		logger.Infow("Using in-memory tracking store")
		return store.NewMemory(), nil
	}
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.PipelineRunM{}, &model.LoadReceiptM{}); err != nil {
		return nil, err
	}
	return store.NewStore(db), nil
}

// NewArtifactStore opens the staging store. Memory-store mode keeps staging
// in process too, so a dry run touches no external service.
func NewArtifactStore(cfg Config, logger log.Logger) (staging.Store, error) {
	if cfg.EnableMemoryStore {
		return staging.NewMemory(), nil
	}
	return staging.NewMinIO(&staging.MinIOOptions{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.StagingBucket,
		UseSSL:    cfg.MinIOUseSSL,
	}, logger)
}

// NewRecordWriter opens the analytical-store writer. Memory-store mode
// substitutes a writer that only logs, keeping dry runs self-contained.
func NewRecordWriter(cfg Config, logger log.Logger) (loader.RecordWriter, error) {
	if cfg.EnableMemoryStore {
		return &discardWriter{logger: logger}, nil
	}
	return loader.NewClickHouse(&loader.ClickHouseOptions{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	}, logger)
}

// discardWriter accepts every artifact without persisting it.
type discardWriter struct {
	logger log.Logger
}

func (w *discardWriter) Write(_ context.Context, artifact *model.Artifact) error {
	w.logger.Infow("Discarding artifact (memory mode)",
		"kind", artifact.Kind, "city", artifact.City, "records", artifact.RecordCount())
	return nil
}

// NewSender builds the notification sender. An unset token disables
// notifications; the returned nil interface keeps the notifier quiet.
func NewSender(cfg Config, logger log.Logger) (notifier.Sender, error) {
	tg, err := notifier.NewTelegram(cfg.TelegramToken, logger)
	if err != nil {
		return nil, err
	}
	if tg == nil {
		return nil, nil
	}
	return tg, nil
}

// NewNotifier builds the run reporter.
func NewNotifier(sender notifier.Sender, logger log.Logger) *notifier.Notifier {
	return notifier.New(sender, logger)
}

// NewEventPublisher builds the Kafka run-event publisher. No brokers
// configured means a nil, disabled publisher.
func NewEventPublisher(cfg Config, logger log.Logger) *messaging.Publisher {
	return messaging.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}

// NewOrchestrator assembles the pipeline around its collaborators.
func NewOrchestrator(
	cfg Config,
	istore store.IStore,
	artifacts staging.Store,
	writer loader.RecordWriter,
	reporter *notifier.Notifier,
	events *messaging.Publisher,
	logger log.Logger,
) *pipeline.Orchestrator {
	cities := cfg.Cities
	if cfg.CitiesFile != "" {
		loaded, err := LoadCities(cfg.CitiesFile)
		if err != nil {
			logger.Errorw("Failed to load cities file, using defaults",
				"path", cfg.CitiesFile, "error", err)
		} else {
			cities = loaded
		}
	}

	policy := runner.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}

	fetcher := extractor.NewClient("", "Europe/Moscow", logger)
	committer := loader.New(istore.Receipt(), artifacts, writer, logger)

	return pipeline.New(pipeline.Config{
		Name:    cfg.PipelineName,
		Cities:  cities,
		Workers: cfg.Workers,
		Policy:  policy,
	}, fetcher, artifacts, committer, reporter, istore, events, logger)
}

// NewServer wires the HTTP surface and schedule loop around the
// orchestrator.
func NewServer(
	cfg Config,
	logger log.Logger,
	istore store.IStore,
	artifacts staging.Store,
	orchestrator *pipeline.Orchestrator,
	events *messaging.Publisher,
) (*Server, error) {
	srv := &Server{
		cfg:          cfg,
		logger:       logger,
		store:        istore,
		artifacts:    artifacts,
		orchestrator: orchestrator,
		events:       events,
		trigger:      make(chan struct{}, 1),
		schedule:     buildSchedule(cfg),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.New(istore, srv.requestRun, logger).InstallRoutes(engine)
	srv.engine = engine

	return srv, nil
}

func buildSchedule(cfg Config) scheduler.Schedule {
	if cfg.DailyAt != "" {
		if t, err := time.Parse("15:04", cfg.DailyAt); err == nil {
			return scheduler.At(t.Hour(), t.Minute())
		}
	}
	interval := cfg.ScheduleInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return scheduler.Every(interval)
}

// requestRun is the handler-side trigger: non-blocking, coalescing.
func (s *Server) requestRun() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run serves HTTP and drives the schedule loop until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	if ms, ok := s.artifacts.(*staging.MinIOStore); ok {
		if err := ms.EnsureBucket(ctx); err != nil {
			return err
		}
	}

	httpServer := &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.engine}
	httpErr := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening", "addr", s.cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	loopErr := s.scheduleLoop(ctx, httpErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("HTTP shutdown incomplete", "error", err)
	}
	if err := s.events.Close(); err != nil {
		s.logger.Warnw("Event publisher close failed", "error", err)
	}
	_ = s.logger.Sync()
	return loopErr
}

// RunOnce performs a single pipeline run without serving HTTP.
func (s *Server) RunOnce(ctx context.Context) error {
	if ms, ok := s.artifacts.(*staging.MinIOStore); ok {
		if err := ms.EnsureBucket(ctx); err != nil {
			return err
		}
	}
	defer func() {
		if err := s.events.Close(); err != nil {
			s.logger.Warnw("Event publisher close failed", "error", err)
		}
		_ = s.logger.Sync()
	}()

	run, err := s.orchestrator.Execute(ctx)
	if err != nil {
		return err
	}
	s.logger.Infow("Pipeline run completed", "runID", run.RunID, "status", run.Status)
	return nil
}

// scheduleLoop fires runs on schedule and on manual trigger. One run at a
// time; a tick that lands while a run is active waits for the next Next.
func (s *Server) scheduleLoop(ctx context.Context, httpErr <-chan error) error {
	next := s.schedule.Next(time.Now())
	s.logger.Infow("Schedule armed", "next", next)

	for {
		if next.IsZero() {
			// Schedule exhausted; keep serving HTTP and manual triggers.
			select {
			case <-ctx.Done():
				return nil
			case err := <-httpErr:
				return err
			case <-s.trigger:
				s.runOnce(ctx)
			}
			continue
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case err := <-httpErr:
			timer.Stop()
			return err
		case <-s.trigger:
			timer.Stop()
			s.runOnce(ctx)
		case <-timer.C:
			s.runOnce(ctx)
		}
		next = s.schedule.Next(time.Now())
	}
}

func (s *Server) runOnce(ctx context.Context) {
	run, err := s.orchestrator.Execute(ctx)
	if err != nil {
		s.logger.Errorw("Pipeline run failed", "error", err)
		return
	}
	s.logger.Infow("Pipeline run completed", "runID", run.RunID, "status", run.Status)
}
