package domain

import (
	"encoding/json"
	"time"
)

// Run represents a planned task execution.
type Run struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	Status    RunStatus `json:"status"`
	PlanJSON  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunLog is one append-only run log entry. The log is the single source of
// truth for run progress: entries are never updated or deleted.
type RunLog struct {
	ID      int64           `json:"-"`
	RunID   int64           `json:"-"`
	Ts      int64           `json:"ts"` // Unix microseconds
	Level   LogLevel        `json:"level"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StepExecutedData is the data payload of a LogMsgStepExecuted entry.
// Only StepID matters for progress derivation; the rest is diagnostics.
type StepExecutedData struct {
	StepID string `json:"step_id"`
}
