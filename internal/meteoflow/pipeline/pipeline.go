// Package pipeline owns the ETL run: the task contracts for extract,
// validate, stage, load and notify, the deterministic idempotency keys that
// tie them together, and the aggregation of per-batch outcomes into the
// run's terminal status. Task retries and concurrency are delegated to the
// runner collaborator.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/avolkhov/meteoflow/internal/meteoflow/extractor"
	"github.com/avolkhov/meteoflow/internal/meteoflow/messaging"
	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/notifier"
	"github.com/avolkhov/meteoflow/internal/meteoflow/runner"
	"github.com/avolkhov/meteoflow/internal/meteoflow/staging"
	"github.com/avolkhov/meteoflow/internal/meteoflow/store"
	"github.com/avolkhov/meteoflow/internal/meteoflow/validation"
	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/known"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// Committer is the load-coordination surface the orchestrator depends on.
type Committer interface {
	Commit(ctx context.Context, runID string, key staging.ArtifactKey) (*model.LoadReceiptM, error)
}

// Reporter is the terminal-notification surface.
type Reporter interface {
	Notify(ctx context.Context, summary *notifier.Summary)
}

// Config parameterizes the orchestrator.
type Config struct {
	Name    string
	Cities  []extractor.City
	Workers int
	Policy  runner.RetryPolicy
	// TargetDay selects the forecast day to process; zero means tomorrow.
	TargetDay time.Time
}

// Orchestrator builds and drives pipeline runs.
type Orchestrator struct {
	cfg       Config
	fetcher   extractor.Fetcher
	hourly    *validation.Validator
	daily     *validation.Validator
	artifacts staging.Store
	committer Committer
	reporter  Reporter
	store     store.IStore
	events    *messaging.Publisher
	logger    log.Logger
}

// New creates an Orchestrator.
func New(
	cfg Config,
	fetcher extractor.Fetcher,
	artifacts staging.Store,
	committer Committer,
	reporter Reporter,
	istore store.IStore,
	events *messaging.Publisher,
	logger log.Logger,
) *Orchestrator {
	if cfg.Name == "" {
		cfg.Name = known.DefaultPipelineName
	}
	if cfg.Workers <= 0 {
		cfg.Workers = known.DefaultMaxWorkers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		hourly:    validation.New(validation.HourlySchema(), logger),
		daily:     validation.New(validation.DailySchema(), logger),
		artifacts: artifacts,
		committer: committer,
		reporter:  reporter,
		store:     istore,
		events:    events,
		logger:    logger,
	}
}

// stagedBatch is one artifact flowing through the stage and load tasks.
type stagedBatch struct {
	Key     staging.ArtifactKey
	Kind    string
	City    string
	Data    []byte
	Records int
	Staged  bool
}

// Run carries the mutable state of one pipeline execution. Every stage
// method receives it explicitly; there is no run state outside this struct.
type Run struct {
	ID        string
	Pipeline  string
	StartedAt time.Time
	TargetDay time.Time

	record *model.PipelineRunM

	mu             sync.Mutex
	forecasts      []*extractor.Forecast
	failedCities   []string
	batches        []*stagedBatch
	daily          []model.DailySummary
	validRecords   int64
	rejected       int64
	stagingFailed  int64
	loadOutcomes   []runner.Outcome
	terminalStatus string
	terminalNote   string
}

// Execute performs one full pipeline run and returns its persisted record.
// The returned error reflects a run that ended Failed; PartiallyFailed runs
// return nil because the pipeline did its job for the batches that could be
// done.
func (o *Orchestrator) Execute(ctx context.Context) (*model.PipelineRunM, error) {
	day := o.cfg.TargetDay
	if day.IsZero() {
		day = time.Now().AddDate(0, 0, 1)
	}

	run := &Run{
		ID:        uuid.NewString(),
		Pipeline:  o.cfg.Name,
		StartedAt: time.Now(),
		TargetDay: day,
	}
	run.record = &model.PipelineRunM{
		RunID:     run.ID,
		Pipeline:  run.Pipeline,
		Status:    known.RunPending,
		StartedAt: run.StartedAt,
	}

	if err := o.store.Run().Create(ctx, run.record); err != nil {
		return nil, fmt.Errorf("persist run %s: %w", run.ID, err)
	}

	sm := NewStateMachine(o, run)
	o.logger.Infow("Pipeline run starting",
		"runID", run.ID, "pipeline", run.Pipeline, "cities", len(o.cfg.Cities),
		"targetDay", day.Format("2006-01-02"))

	sequence := []string{
		known.RunEventStart,
		known.RunEventExtracted,
		known.RunEventValidated,
		known.RunEventStaged,
		known.RunEventLoaded,
	}
	for _, event := range sequence {
		if err := sm.Event(ctx, event); err != nil {
			run.terminalStatus = known.RunFailed
			run.terminalNote = err.Error()
			_ = sm.Event(ctx, known.RunEventFail)
			o.closeRun(ctx, run, sm.Current())
			_ = o.notify(ctx, run)
			return run.record, err
		}
	}

	switch run.terminalStatus {
	case known.RunSucceeded:
		_ = sm.Event(ctx, known.RunEventSucceed)
	case known.RunPartiallyFailed:
		_ = sm.Event(ctx, known.RunEventDegrade)
	default:
		_ = sm.Event(ctx, known.RunEventFail)
	}
	o.closeRun(ctx, run, sm.Current())

	if run.terminalStatus == known.RunFailed {
		return run.record, errno.ErrStoreWrite.WithMessage("run %s failed: %s", run.ID, run.terminalNote)
	}
	return run.record, nil
}

// closeRun stamps the terminal state onto the persisted record.
func (o *Orchestrator) closeRun(ctx context.Context, run *Run, status string) {
	run.record.Status = status
	run.record.Message = run.terminalNote
	run.record.EndedAt = time.Now()
	run.record.ValidRecords = run.validRecords
	run.record.RejectedRecords = run.rejected
	run.record.CommittedBatches = committedCount(run.loadOutcomes)
	run.record.FailedBatches = run.stagingFailed + failedCount(run.loadOutcomes)
	if err := o.store.Run().Update(ctx, run.record); err != nil {
		o.logger.Errorw("Failed to persist terminal run state", "runID", run.ID, "error", err)
	}
	o.logger.Infow("Pipeline run finished",
		"runID", run.ID, "status", status,
		"validRecords", run.record.ValidRecords,
		"rejectedRecords", run.record.RejectedRecords,
		"committedBatches", run.record.CommittedBatches,
		"failedBatches", run.record.FailedBatches)
}

// extract fetches forecasts for every configured city concurrently. Per-city
// failures are isolated; the run aborts only when no city yields data.
func (o *Orchestrator) extract(ctx context.Context, run *Run) error {
	if len(o.cfg.Cities) == 0 {
		return errno.ErrInvalidArgument.WithMessage("no cities configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, city := range o.cfg.Cities {
		city := city
		g.Go(func() error {
			forecast, err := o.fetcher.Fetch(gctx, city)
			if err != nil {
				o.logger.Errorw("City extraction failed", "runID", run.ID, "city", city.Name, "error", err)
				run.mu.Lock()
				run.failedCities = append(run.failedCities, city.Name)
				run.mu.Unlock()
				return nil // isolated: siblings continue
			}

			o.stageRawPayload(gctx, run, forecast)

			run.mu.Lock()
			run.forecasts = append(run.forecasts, forecast)
			run.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(run.forecasts) == 0 {
		return errno.ErrStagingFailed.WithMessage("extraction failed for all %d cities", len(o.cfg.Cities))
	}
	return nil
}

// stageRawPayload archives the untouched API response, best effort.
func (o *Orchestrator) stageRawPayload(ctx context.Context, run *Run, forecast *extractor.Forecast) {
	data, err := json.Marshal(forecast)
	if err != nil {
		return
	}
	object := staging.RawObject(known.RawPrefix, run.Pipeline, forecast.City, run.StartedAt)
	if err := o.artifacts.Put(ctx, object, data); err != nil {
		o.logger.Warnw("Raw payload staging failed", "runID", run.ID, "object", object, "error", err)
	}
}

// validate partitions every city's records and serializes the surviving
// batches into artifacts with deterministic keys. Batch indexes are assigned
// in forecast order: hourly then daily per city.
func (o *Orchestrator) validate(ctx context.Context, run *Run) error {
	batchIndex := 0
	for _, forecast := range run.forecasts {
		hourlyRecords, hourlyRejected := o.hourly.HourlyBatch(forecast.HourlyRawRecords(run.TargetDay))
		run.rejected += int64(len(hourlyRejected))
		for _, recErr := range hourlyRejected {
			o.logger.Warnw("Hourly record rejected", "runID", run.ID, "city", forecast.City, "error", recErr.Error())
		}

		if len(hourlyRecords) > 0 {
			run.validRecords += int64(len(hourlyRecords))
			if err := o.appendBatch(run, &batchIndex, known.ArtifactKindHourly, forecast.City, &model.Artifact{
				Pipeline: run.Pipeline,
				Kind:     known.ArtifactKindHourly,
				City:     forecast.City,
				Hourly:   hourlyRecords,
			}); err != nil {
				return err
			}
		}

		dailyRaw, err := forecast.DailyRawRecord(run.TargetDay)
		if err != nil {
			o.logger.Warnw("No daily data for target day", "runID", run.ID, "city", forecast.City, "error", err)
			run.rejected++
			continue
		}
		summaries, dailyRejected := o.daily.DailyBatch([]model.RawRecord{dailyRaw})
		run.rejected += int64(len(dailyRejected))
		if len(summaries) == 0 {
			continue
		}
		run.validRecords += int64(len(summaries))
		run.daily = append(run.daily, summaries...)
		if err := o.appendBatch(run, &batchIndex, known.ArtifactKindDaily, forecast.City, &model.Artifact{
			Pipeline: run.Pipeline,
			Kind:     known.ArtifactKindDaily,
			City:     forecast.City,
			Daily:    summaries,
		}); err != nil {
			return err
		}
	}

	if len(run.batches) == 0 {
		return errno.ErrValidation.WithMessage("no batch survived validation (%d records rejected)", run.rejected)
	}
	return nil
}

func (o *Orchestrator) appendBatch(run *Run, batchIndex *int, kind, city string, artifact *model.Artifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return errno.ErrInvalidArgument.WithMessage("serialize %s artifact for %s", kind, city).Wrap(err)
	}
	run.batches = append(run.batches, &stagedBatch{
		Key: staging.ArtifactKey{
			Pipeline:   run.Pipeline,
			RunTS:      run.StartedAt,
			BatchIndex: *batchIndex,
		},
		Kind:    kind,
		City:    city,
		Data:    data,
		Records: artifact.RecordCount(),
	})
	*batchIndex++
	return nil
}

// stage uploads every batch artifact through the runner pool. A batch whose
// staging exhausts the retry budget is excluded from loading and counted
// against the run.
func (o *Orchestrator) stage(ctx context.Context, run *Run) error {
	pool := runner.NewPool(o.cfg.Workers, o.logger)
	for _, batch := range run.batches {
		batch := batch
		pool.Submit(ctx, runner.Task{
			Name:   known.TaskStage,
			Key:    batch.Key.Object(),
			Policy: o.cfg.Policy,
			Run: func(taskCtx context.Context) error {
				return o.artifacts.Put(taskCtx, batch.Key.Object(), batch.Data)
			},
		})
	}

	staged := make(map[string]bool)
	for _, outcome := range pool.Drain() {
		if outcome.Status == runner.StatusSucceeded {
			staged[outcome.Key] = true
			continue
		}
		run.stagingFailed++
		o.logger.Errorw("Batch staging failed",
			"runID", run.ID, "artifact", outcome.Key,
			"status", outcome.Status, "attempts", outcome.Attempts, "error", outcome.Err)
	}
	for _, batch := range run.batches {
		batch.Staged = staged[batch.Key.Object()]
	}

	if len(staged) == 0 {
		return errno.ErrStagingFailed.WithMessage("all %d batches failed to stage", len(run.batches))
	}
	return nil
}

// load commits every staged batch, one task per artifact key so the runner's
// single-in-flight-per-key guarantee protects the receipt protocol.
func (o *Orchestrator) load(ctx context.Context, run *Run) error {
	pool := runner.NewPool(o.cfg.Workers, o.logger)
	for _, batch := range run.batches {
		if !batch.Staged {
			continue
		}
		key := batch.Key
		pool.Submit(ctx, runner.Task{
			Name:   known.TaskLoad,
			Key:    key.Object(),
			Policy: o.cfg.Policy,
			Run: func(taskCtx context.Context) error {
				_, err := o.committer.Commit(taskCtx, run.ID, key)
				return err
			},
		})
	}

	run.loadOutcomes = pool.Drain()
	run.terminalStatus, run.terminalNote = o.aggregate(run)
	return nil
}

// aggregate folds per-batch outcomes into the run's terminal status:
// Succeeded when every batch of every city committed, Failed when nothing
// committed, PartiallyFailed in between. Rejected records alone never
// degrade a run.
func (o *Orchestrator) aggregate(run *Run) (string, string) {
	committed := committedCount(run.loadOutcomes)
	failed := run.stagingFailed + failedCount(run.loadOutcomes)

	switch {
	case committed == 0:
		return known.RunFailed, fmt.Sprintf("no batch committed (%d failed)", failed)
	case failed > 0:
		return known.RunPartiallyFailed, fmt.Sprintf("%d batches committed, %d failed", committed, failed)
	case len(run.failedCities) > 0:
		return known.RunPartiallyFailed, fmt.Sprintf("extraction failed for %v", run.failedCities)
	default:
		return known.RunSucceeded, ""
	}
}

// notify emits the single terminal notification for the run.
func (o *Orchestrator) notify(ctx context.Context, run *Run) error {
	if o.reporter == nil {
		return nil
	}
	o.reporter.Notify(ctx, &notifier.Summary{
		RunID:            run.ID,
		Pipeline:         run.Pipeline,
		Status:           run.terminalStatus,
		Started:          run.StartedAt,
		Ended:            time.Now(),
		ValidRecords:     run.validRecords,
		RejectedRecords:  run.rejected,
		CommittedBatches: committedCount(run.loadOutcomes),
		FailedBatches:    run.stagingFailed + failedCount(run.loadOutcomes),
		Daily:            run.daily,
	})
	return nil
}

func committedCount(outcomes []runner.Outcome) int64 {
	var n int64
	for _, outcome := range outcomes {
		if outcome.Status == runner.StatusSucceeded {
			n++
		}
	}
	return n
}

func failedCount(outcomes []runner.Outcome) int64 {
	var n int64
	for _, outcome := range outcomes {
		if outcome.Status != runner.StatusSucceeded {
			n++
		}
	}
	return n
}
