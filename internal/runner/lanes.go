package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// TaskFunc is one unit of serialized work.
type TaskFunc func(ctx context.Context) (any, error)

type taskResult struct {
	value any
	err   error
}

type laneTask struct {
	fn     TaskFunc
	result chan taskResult
}

type lane struct {
	tasks chan laneTask
	quit  chan struct{}
}

// Lanes serializes work per key. Each key gets one worker goroutine, created
// lazily, that runs tasks strictly in arrival order; different keys run
// independently. This is what keeps a run's browser session single-threaded.
type Lanes struct {
	mu    sync.Mutex
	lanes map[int64]*lane
}

// NewLanes creates an empty lane set.
func NewLanes() *Lanes {
	return &Lanes{lanes: make(map[int64]*lane)}
}

func (s *Lanes) lane(key int64) *lane {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lanes[key]
	if !ok {
		l = &lane{
			tasks: make(chan laneTask, 8),
			quit:  make(chan struct{}),
		}
		s.lanes[key] = l
		go l.work()
	}
	return l
}

func (l *lane) work() {
	for {
		// Check quit first so a closed lane never starts a queued task.
		select {
		case <-l.quit:
			return
		default:
		}
		select {
		case <-l.quit:
			return
		case t := <-l.tasks:
			value, err := runTask(t.fn)
			t.result <- taskResult{value: value, err: err}
		}
	}
}

// runTask executes fn with panic recovery so one bad step cannot kill the
// lane. The context is background on purpose: an abandoning caller must not
// cancel an in-flight browser operation.
func runTask(fn TaskFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(context.Background())
}

// Do runs fn on key's lane and waits for the result. The ctx deadline bounds
// only the waiting: on expiry the task is abandoned (it still runs to
// completion on the worker) and ErrDeadlineExceeded is returned. A closed
// lane yields ErrLaneClosed; a later Do recreates the lane.
func (s *Lanes) Do(ctx context.Context, key int64, fn TaskFunc) (any, error) {
	l := s.lane(key)
	t := laneTask{fn: fn, result: make(chan taskResult, 1)}

	select {
	case l.tasks <- t:
	case <-l.quit:
		return nil, ErrLaneClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: gave up queueing: %v", ErrDeadlineExceeded, ctx.Err())
	}

	select {
	case r := <-t.result:
		return r.value, r.err
	case <-l.quit:
		// The worker may have finished our task in the same instant.
		select {
		case r := <-t.result:
			return r.value, r.err
		default:
			return nil, ErrLaneClosed
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: abandoned while waiting: %v", ErrDeadlineExceeded, ctx.Err())
	}
}

// CloseLane stops key's worker after its current task and drops the lane.
// Tasks still queued never run; their callers see ErrLaneClosed.
func (s *Lanes) CloseLane(key int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lanes[key]; ok {
		close(l.quit)
		delete(s.lanes, key)
	}
}

// Shutdown stops every worker.
func (s *Lanes) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, l := range s.lanes {
		close(l.quit)
		delete(s.lanes, key)
	}
}

// Active returns the number of live lanes.
func (s *Lanes) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}
