// Package domain defines the core domain models for the runner service.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusPlanned RunStatus = "PLANNED"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusDone    RunStatus = "DONE"
	RunStatusError   RunStatus = "ERROR"
)

// StepType represents the type of a plan step.
type StepType string

const (
	StepTypeUI    StepType = "ui"
	StepTypeWrite StepType = "write"
)

// LogLevel represents the level of a run log entry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelError LogLevel = "ERROR"
)

// Run log messages. LogMsgStepExecuted is the completion marker the
// execution tracker scans for; its data carries the executed step_id.
const (
	LogMsgRunCreated    = "Run created"
	LogMsgStepExecuting = "Executing UI step"
	LogMsgStepExecuted  = "UI step executed"
	LogMsgStepFailed    = "UI step failed"
	LogMsgSessionClosed = "UI session closed"
)
