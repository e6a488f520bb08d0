package domain

import (
	"encoding/json"
	"fmt"
)

// Plan is the machine-readable output of the planner: a starting URL and an
// ordered list of small, explicit steps.
type Plan struct {
	StartingURL string `json:"starting_url"`
	Steps       []Step `json:"steps"`
}

// Step is a single plan step. Only ui steps are executable; other types are
// carried in the plan but never selected by the execution tracker.
type Step struct {
	ID               string   `json:"id"`
	Type             StepType `json:"type"`
	Instruction      string   `json:"instruction"`
	RequiresApproval bool     `json:"requires_approval"`
	Evidence         string   `json:"evidence,omitempty"`
}

// ParsePlan decodes and structurally validates a plan document. Step ids must
// be present and unique; everything else is policy's business.
func ParsePlan(planJSON string) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	seen := make(map[string]bool, len(plan.Steps))
	for i, step := range plan.Steps {
		if step.ID == "" {
			return nil, fmt.Errorf("plan step %d has no id", i)
		}
		if seen[step.ID] {
			return nil, fmt.Errorf("plan step id %q is duplicated", step.ID)
		}
		seen[step.ID] = true
	}
	return &plan, nil
}

// UISteps returns the executable steps in plan order.
func (p *Plan) UISteps() []Step {
	var steps []Step
	for _, s := range p.Steps {
		if s.Type == StepTypeUI {
			steps = append(steps, s)
		}
	}
	return steps
}

// StepIndex returns the position of a step id within the plan, or -1.
func (p *Plan) StepIndex(stepID string) int {
	for i, s := range p.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}
