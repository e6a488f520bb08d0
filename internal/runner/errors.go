package runner

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel failures for step execution.
var (
	ErrElementNotFound    = errors.New("element not found or timed out")
	ErrAssertionFailed    = errors.New("assertion failed")
	ErrUnsupportedAction  = errors.New("unsupported action")
	ErrSessionUnavailable = errors.New("browser session unavailable")
	ErrDeadlineExceeded   = errors.New("execution deadline exceeded")
	ErrLaneClosed         = errors.New("execution lane closed")
)

// Failure kinds, stable strings for log payloads and API responses.
const (
	KindElementNotFound    = "element_not_found_or_timeout"
	KindAssertionFailed    = "assertion_failed"
	KindUnsupportedAction  = "unsupported_action"
	KindSessionUnavailable = "session_unavailable"
	KindDeadlineExceeded   = "deadline_exceeded"
	KindLaneClosed         = "lane_closed"
	KindInternal           = "internal"
)

// StepError wraps an execution failure with the action that caused it.
type StepError struct {
	Action Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step action %s failed: %v", e.Action.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Classify maps an execution error onto its failure kind string. A bare
// context deadline from a browser wait counts as the locator never matching.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAssertionFailed):
		return KindAssertionFailed
	case errors.Is(err, ErrUnsupportedAction):
		return KindUnsupportedAction
	case errors.Is(err, ErrSessionUnavailable):
		return KindSessionUnavailable
	case errors.Is(err, ErrLaneClosed):
		return KindLaneClosed
	case errors.Is(err, ErrDeadlineExceeded):
		return KindDeadlineExceeded
	case errors.Is(err, ErrElementNotFound), errors.Is(err, context.DeadlineExceeded):
		return KindElementNotFound
	default:
		return KindInternal
	}
}

// IsSessionDead reports whether the failure means the browser for this run is
// gone; the caller should evict the session so the next attempt recreates it.
func IsSessionDead(err error) bool {
	return errors.Is(err, ErrSessionUnavailable)
}
