package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/avolkhov/meteoflow/internal/meteoflow/messaging"
	"github.com/avolkhov/meteoflow/internal/pkg/known"
	fsmutil "github.com/avolkhov/meteoflow/internal/pkg/util/fsm"
)

// StateMachine represents the finite state machine driving one pipeline run.
type StateMachine struct {
	Orchestrator *Orchestrator
	Run          *Run
	FSM          *fsm.FSM
}

// NewStateMachine configures the run FSM with the stage transitions and their
// entry callbacks. Entering a processing state executes that stage against
// the run; every transition is observed for persistence and event publishing.
func NewStateMachine(orchestrator *Orchestrator, run *Run) *StateMachine {
	sm := &StateMachine{
		Orchestrator: orchestrator,
		Run:          run,
	}

	sm.FSM = fsm.NewFSM(
		known.RunPending,
		fsm.Events{
			{Name: known.RunEventStart, Src: []string{known.RunPending}, Dst: known.RunExtracting},
			{Name: known.RunEventExtracted, Src: []string{known.RunExtracting}, Dst: known.RunValidating},
			{Name: known.RunEventValidated, Src: []string{known.RunValidating}, Dst: known.RunStaging},
			{Name: known.RunEventStaged, Src: []string{known.RunStaging}, Dst: known.RunLoading},
			{Name: known.RunEventLoaded, Src: []string{known.RunLoading}, Dst: known.RunNotifying},
			{Name: known.RunEventSucceed, Src: []string{known.RunNotifying}, Dst: known.RunSucceeded},
			{Name: known.RunEventDegrade, Src: []string{known.RunNotifying}, Dst: known.RunPartiallyFailed},
			{
				Name: known.RunEventFail,
				Src: []string{
					known.RunPending, known.RunExtracting, known.RunValidating,
					known.RunStaging, known.RunLoading, known.RunNotifying,
				},
				Dst: known.RunFailed,
			},
		},
		fsm.Callbacks{
			// State entry callbacks
			"enter_" + known.RunExtracting: fsmutil.WrapStage(sm.stage(orchestrator.extract)),
			"enter_" + known.RunValidating: fsmutil.WrapStage(sm.stage(orchestrator.validate)),
			"enter_" + known.RunStaging:    fsmutil.WrapStage(sm.stage(orchestrator.stage)),
			"enter_" + known.RunLoading:    fsmutil.WrapStage(sm.stage(orchestrator.load)),
			"enter_" + known.RunNotifying:  fsmutil.WrapStage(sm.stage(orchestrator.notify)),
			"enter_state":                  fsmutil.WrapObserver(sm.observe),
		},
	)

	return sm
}

// stage binds an orchestrator stage method to the FSM callback signature.
func (sm *StateMachine) stage(fn func(ctx context.Context, run *Run) error) fsmutil.StageHandler {
	return func(ctx context.Context, e *fsm.Event) error {
		return fn(ctx, sm.Run)
	}
}

// observe persists the state transition and publishes it to the run-event
// stream. Both are best effort; a run never fails because bookkeeping did.
func (sm *StateMachine) observe(ctx context.Context, e *fsm.Event) {
	run := sm.Run
	o := sm.Orchestrator

	run.record.Status = e.Dst
	run.record.ValidRecords = run.validRecords
	run.record.RejectedRecords = run.rejected
	run.record.CommittedBatches = committedCount(run.loadOutcomes)
	run.record.FailedBatches = run.stagingFailed + failedCount(run.loadOutcomes)
	if err := o.store.Run().Update(ctx, run.record); err != nil {
		o.logger.Warnw("Failed to persist run transition",
			"runID", run.ID, "state", e.Dst, "error", err)
	}

	if err := o.events.Publish(ctx, &messaging.RunEvent{
		EventID:          uuid.NewString(),
		RunID:            run.ID,
		Pipeline:         run.Pipeline,
		Stage:            e.Dst,
		Status:           e.Dst,
		Message:          run.terminalNote,
		Timestamp:        time.Now(),
		ValidRecords:     run.validRecords,
		RejectedRecords:  run.rejected,
		CommittedBatches: run.record.CommittedBatches,
		FailedBatches:    run.record.FailedBatches,
	}); err != nil {
		o.logger.Warnw("Failed to publish run event",
			"runID", run.ID, "stage", e.Dst, "error", err)
	}

	o.logger.Infow("Run transitioned", "runID", run.ID, "from", e.Src, "to", e.Dst)
}

// Event triggers an event in the FSM.
func (sm *StateMachine) Event(ctx context.Context, event string) error {
	return sm.FSM.Event(ctx, event)
}

// Current returns the current state of the FSM.
func (sm *StateMachine) Current() string {
	return sm.FSM.Current()
}

// Can checks if an event can be triggered in the current state.
func (sm *StateMachine) Can(event string) bool {
	return sm.FSM.Can(event)
}
