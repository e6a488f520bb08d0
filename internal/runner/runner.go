package runner

import (
	"context"
	"time"
)

// Runner ties the session registry and step executor together. Callers must
// route RunStep and CloseSession for one run through that run's serialized
// lane; the Runner itself does not queue.
type Runner struct {
	registry *Registry
	executor *Executor
	metrics  Metrics
}

// New creates a Runner.
func New(headless bool, navTimeout time.Duration, artifactsDir string) *Runner {
	r := &Runner{
		executor: NewExecutor(artifactsDir),
	}
	r.registry = NewRegistry(headless, navTimeout, &r.metrics)
	return r
}

// RunStep acquires the run's session (creating it at startURL if needed) and
// executes one instruction. A dead session is evicted on failure so the next
// attempt starts fresh from the plan's starting URL.
func (r *Runner) RunStep(ctx context.Context, runID int64, startURL, instruction string) (*StepResult, error) {
	sess, err := r.registry.Acquire(ctx, runID, startURL)
	if err != nil {
		r.metrics.StepsFailed.Add(1)
		return nil, err
	}

	res, err := r.executor.Execute(sess, startURL, instruction)
	if err != nil {
		if IsSessionDead(err) {
			r.registry.Evict(runID)
		}
		r.metrics.StepsFailed.Add(1)
		return nil, err
	}

	r.metrics.StepsExecuted.Add(1)
	return res, nil
}

// CloseSession tears down the run's browser, if any. Idempotent.
func (r *Runner) CloseSession(runID int64) {
	r.registry.Close(runID)
}

// Shutdown closes every live session.
func (r *Runner) Shutdown() {
	r.registry.Shutdown()
}

// Stats snapshots the runner counters for health reporting.
func (r *Runner) Stats() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsActive:  int64(r.registry.Active()),
		SessionsCreated: r.metrics.SessionsCreated.Load(),
		SessionsClosed:  r.metrics.SessionsClosed.Load(),
		StepsExecuted:   r.metrics.StepsExecuted.Load(),
		StepsFailed:     r.metrics.StepsFailed.Load(),
	}
}
