package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/domain"
	"github.com/xiaot623/novaflow/internal/runner"
)

// ErrRunNotFound marks a run id with no stored run.
var ErrRunNotFound = errors.New("run not found")

type stepOutcome struct {
	status         domain.RunStatus
	executedStepID *string
}

// AdvanceRun executes at most one pending ui step of a run. Each call is
// exactly one attempt: a failure leaves the run in ERROR with the same step
// still pending, and the next call retries it. Concurrent calls for one run
// are serialized on its lane in arrival order.
func (s *Service) AdvanceRun(ctx context.Context, runID int64) (*domain.AdvanceResponse, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	plan, err := domain.ParsePlan(run.PlanJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan for run %d: %w", runID, err)
	}
	startURL, err := s.resolveStartingURL(plan)
	if err != nil {
		return nil, err
	}

	// Fast path: every ui step already ran. DONE without touching a session.
	logs, err := s.store.GetRunLogs(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run logs: %w", err)
	}
	candidate := nextUIStep(plan, executedStepIDs(logs))
	if candidate == nil {
		if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusDone); err != nil {
			log.Printf("ERROR: failed to mark run %d done: %v", runID, err)
		}
		return &domain.AdvanceResponse{RunID: runID, Status: domain.RunStatusDone}, nil
	}

	// An observer sees RUNNING even while the step waits behind another
	// advance on the same lane.
	if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusRunning); err != nil {
		log.Printf("ERROR: failed to mark run %d running: %v", runID, err)
	}

	attemptID := "att_" + uuid.New().String()[:8]

	laneCtx, cancel := context.WithTimeout(ctx, s.config.ExecTimeout)
	defer cancel()
	value, err := s.lanes.Do(laneCtx, runID, func(jobCtx context.Context) (any, error) {
		return s.executeNextStep(jobCtx, runID, plan, startURL, attemptID)
	})
	if err != nil {
		// Lane-level failure: the wait deadline expired, the lane closed
		// under us, or the job panicked. An abandoned job still runs to
		// completion on the worker and records its own outcome; this report
		// covers the caller's view of the attempt, naming the step the
		// pre-check selected.
		s.recordStepFailure(context.Background(), runID, attemptID, candidate, plan.StepIndex(candidate.ID), err)
		return &domain.AdvanceResponse{RunID: runID, Status: domain.RunStatusError, ExecutedStepID: &candidate.ID}, nil
	}

	outcome, ok := value.(*stepOutcome)
	if !ok {
		return nil, fmt.Errorf("unexpected lane result type %T", value)
	}
	return &domain.AdvanceResponse{RunID: runID, Status: outcome.status, ExecutedStepID: outcome.executedStepID}, nil
}

// executeNextStep runs on the run's lane. Selection happens here, under the
// same serialization as execution, so a concurrent duplicate advance sees
// this step's completion marker before picking its own.
func (s *Service) executeNextStep(ctx context.Context, runID int64, plan *domain.Plan, startURL, attemptID string) (*stepOutcome, error) {
	logs, err := s.store.GetRunLogs(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run logs: %w", err)
	}
	executed := executedStepIDs(logs)
	step := nextUIStep(plan, executed)
	if step == nil {
		if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusDone); err != nil {
			log.Printf("ERROR: failed to mark run %d done: %v", runID, err)
		}
		return &stepOutcome{status: domain.RunStatusDone}, nil
	}

	instruction := step.Instruction
	if instruction == "" {
		instruction = "CLICK_TEXT: Example"
	}

	stepIndex := plan.StepIndex(step.ID)
	if err := s.appendLog(ctx, runID, domain.LogLevelInfo, domain.LogMsgStepExecuting, map[string]any{
		"attempt_id":   attemptID,
		"step_index":   stepIndex,
		"step_id":      step.ID,
		"starting_url": startURL,
		"instruction":  instruction,
	}); err != nil {
		log.Printf("ERROR: failed to log step start for run %d: %v", runID, err)
	}

	result, runErr := s.runner.RunStep(ctx, runID, startURL, instruction)
	if runErr != nil {
		s.recordStepFailure(ctx, runID, attemptID, step, stepIndex, runErr)
		return &stepOutcome{status: domain.RunStatusError, executedStepID: &step.ID}, nil
	}

	// The completion marker. Without it the step would be re-selected, so a
	// write failure makes this attempt a failure even though the browser
	// action succeeded.
	if err := s.appendLog(ctx, runID, domain.LogLevelInfo, domain.LogMsgStepExecuted, map[string]any{
		"attempt_id": attemptID,
		"step_index": stepIndex,
		"step_id":    step.ID,
		"result":     result,
	}); err != nil {
		s.recordStepFailure(ctx, runID, attemptID, step, stepIndex, fmt.Errorf("failed to record completion: %w", err))
		return &stepOutcome{status: domain.RunStatusError, executedStepID: &step.ID}, nil
	}

	executed[step.ID] = true
	status := domain.RunStatusPlanned
	if nextUIStep(plan, executed) == nil {
		status = domain.RunStatusDone
	}
	if err := s.store.UpdateRunStatus(ctx, runID, status); err != nil {
		log.Printf("ERROR: failed to update run %d status: %v", runID, err)
	}
	return &stepOutcome{status: status, executedStepID: &step.ID}, nil
}

// recordStepFailure appends the diagnostic log entry and marks the run ERROR.
// ERROR is not terminal; the same step is selected again on the next advance.
func (s *Service) recordStepFailure(ctx context.Context, runID int64, attemptID string, step *domain.Step, stepIndex int, cause error) {
	payload := map[string]any{
		"attempt_id": attemptID,
		"error":      cause.Error(),
		"error_kind": runner.Classify(cause),
	}
	if step != nil {
		payload["step_id"] = step.ID
		payload["step_index"] = stepIndex
		payload["instruction"] = step.Instruction
	}
	if err := s.appendLog(ctx, runID, domain.LogLevelError, domain.LogMsgStepFailed, payload); err != nil {
		log.Printf("ERROR: failed to log step failure for run %d: %v", runID, err)
	}
	if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusError); err != nil {
		log.Printf("ERROR: failed to mark run %d errored: %v", runID, err)
	}
	log.Printf("ERROR: run %d step failed: %v", runID, cause)
}

// resolveStartingURL picks the URL a new session navigates to, by mode: demo
// pins every run to the configured demo site; plan and any_public trust the
// plan's own starting_url, which policy admitted at creation time.
func (s *Service) resolveStartingURL(plan *domain.Plan) (string, error) {
	if s.config.StartingURLMode == config.URLModeDemo {
		return s.config.DemoStartingURL, nil
	}
	u := domain.SanitizeHTTPURL(plan.StartingURL)
	if u == "" {
		return "", fmt.Errorf("plan starting_url %q is not an absolute http(s) url", plan.StartingURL)
	}
	return u, nil
}

// appendLog writes one run log entry. The store stamps the timestamp.
func (s *Service) appendLog(ctx context.Context, runID int64, level domain.LogLevel, message string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode log payload: %w", err)
	}
	return s.store.AppendRunLog(ctx, &domain.RunLog{
		RunID:   runID,
		Level:   level,
		Message: message,
		Data:    data,
	})
}
