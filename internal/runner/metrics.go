package runner

import "sync/atomic"

// Metrics tracks runner activity. Counters are atomics so execution paths can
// bump them without locking.
type Metrics struct {
	SessionsCreated atomic.Int64
	SessionsClosed  atomic.Int64
	StepsExecuted   atomic.Int64
	StepsFailed     atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters for health output.
type MetricsSnapshot struct {
	SessionsActive  int64 `json:"sessions_active"`
	SessionsCreated int64 `json:"sessions_created"`
	SessionsClosed  int64 `json:"sessions_closed"`
	StepsExecuted   int64 `json:"steps_executed"`
	StepsFailed     int64 `json:"steps_failed"`
}
