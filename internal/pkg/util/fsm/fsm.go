// Package fsm adapts run-stage handlers to looplab/fsm callbacks.
package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// StageHandler is a run-stage entry handler. A returned error is attached to
// the event, which makes the surrounding Event call fail and lets the
// orchestrator route the run to its failure transition.
type StageHandler func(ctx context.Context, e *fsm.Event) error

// WrapStage converts a StageHandler into a looplab callback.
func WrapStage(handler StageHandler) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := handler(ctx, e); err != nil {
			e.Err = err
		}
	}
}

// WrapObserver converts an error-free observer (logging, metrics) into a
// looplab callback.
func WrapObserver(handler func(ctx context.Context, e *fsm.Event)) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		handler(ctx, e)
	}
}
