// Package runner executes pipeline tasks with bounded concurrency and an
// explicit retry policy. It stands in for the external workflow-execution
// collaborator: the orchestrator registers tasks with it and reads back
// per-task outcomes; nothing retries implicitly anywhere else.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// RetryPolicy is the bounded retry-with-backoff contract passed in at task
// registration.
type RetryPolicy struct {
	MaxAttempts   int           `json:"max_attempts"`
	BaseDelay     time.Duration `json:"base_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
}

// DefaultRetryPolicy mirrors the production task configuration: three
// attempts, ten seconds base delay, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     10 * time.Second,
		MaxDelay:      2 * time.Minute,
		BackoffFactor: 2.0,
	}
}

// Delay returns the wait before the given retry (attempt is 1-based: the
// delay after the attempt-th failure).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.BackoffFactor)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Status classifies a task outcome.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the retry budget was exhausted on retryable errors.
	StatusFailed Status = "failed"
	// StatusFatal means the task hit a non-retryable error and was escalated
	// without further attempts.
	StatusFatal Status = "fatal"
	// StatusCanceled means the run's context ended before the task finished.
	StatusCanceled Status = "canceled"
)

// Task is one unit of work keyed for idempotency. The runner guarantees at
// most one in-flight execution per submitted Task value; submitting the same
// key twice in one pool is a caller bug.
type Task struct {
	Name   string
	Key    string
	Policy RetryPolicy
	Run    func(ctx context.Context) error
}

// Outcome is the terminal result of one task.
type Outcome struct {
	Name     string
	Key      string
	Status   Status
	Attempts int
	Err      error
}

// Pool runs tasks on a bounded worker set and collects outcomes.
type Pool struct {
	wp     *workerpool.WorkerPool
	logger log.Logger

	mu       sync.Mutex
	outcomes []Outcome
}

// NewPool creates a Pool with the given worker bound.
func NewPool(workers int, logger log.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		wp:     workerpool.New(workers),
		logger: logger,
	}
}

// Submit schedules a task. Execution starts as soon as a worker frees up.
func (p *Pool) Submit(ctx context.Context, task Task) {
	p.wp.Submit(func() {
		outcome := p.execute(ctx, task)
		p.mu.Lock()
		p.outcomes = append(p.outcomes, outcome)
		p.mu.Unlock()
	})
}

// Drain waits for all submitted tasks and returns their outcomes. The pool
// cannot be reused afterwards.
func (p *Pool) Drain() []Outcome {
	p.wp.StopWait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcomes
}

func (p *Pool) execute(ctx context.Context, task Task) Outcome {
	policy := task.Policy
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Outcome{Name: task.Name, Key: task.Key, Status: StatusCanceled, Attempts: attempt - 1, Err: ctx.Err()}
		}

		lastErr = task.Run(ctx)
		if lastErr == nil {
			return Outcome{Name: task.Name, Key: task.Key, Status: StatusSucceeded, Attempts: attempt}
		}

		if !errno.IsRetryable(lastErr) {
			p.logger.Errorw("Task failed with non-retryable error, escalating",
				"task", task.Name, "key", task.Key, "attempt", attempt, "error", lastErr)
			return Outcome{Name: task.Name, Key: task.Key, Status: StatusFatal, Attempts: attempt, Err: lastErr}
		}

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		p.logger.Warnw("Task attempt failed, backing off",
			"task", task.Name, "key", task.Key, "attempt", attempt,
			"delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return Outcome{Name: task.Name, Key: task.Key, Status: StatusCanceled, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	p.logger.Errorw("Task exhausted retry budget",
		"task", task.Name, "key", task.Key, "attempts", policy.MaxAttempts, "error", lastErr)
	return Outcome{Name: task.Name, Key: task.Key, Status: StatusFailed, Attempts: policy.MaxAttempts, Err: lastErr}
}
