package service

import (
	"encoding/json"

	"github.com/xiaot623/novaflow/internal/domain"
)

// executedStepIDs derives the set of completed step ids from a run's log by
// collecting data.step_id from every "UI step executed" entry. The log is the
// single source of truth; no cursor is stored anywhere, so progress survives
// restarts and repeated advance calls.
func executedStepIDs(logs []domain.RunLog) map[string]bool {
	executed := make(map[string]bool)
	for _, entry := range logs {
		if entry.Message != domain.LogMsgStepExecuted {
			continue
		}
		var data domain.StepExecutedData
		if err := json.Unmarshal(entry.Data, &data); err != nil {
			// Malformed rows are skipped, never fatal.
			continue
		}
		if data.StepID != "" {
			executed[data.StepID] = true
		}
	}
	return executed
}

// nextUIStep returns the first ui step in plan order not yet executed, or nil
// when every ui step is accounted for. Non-ui steps are inert: never
// selected, never marked executed.
func nextUIStep(plan *domain.Plan, executed map[string]bool) *domain.Step {
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.Type != domain.StepTypeUI {
			continue
		}
		if !executed[step.ID] {
			return step
		}
	}
	return nil
}
