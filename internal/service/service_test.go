package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xiaot623/novaflow/internal/adapter/llm"
	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/runner"
	"github.com/xiaot623/novaflow/policy"
	"github.com/xiaot623/novaflow/tests/helpers"
)

const testDemoURL = "https://the-internet.herokuapp.com/"

// fakeStepRunner is a scripted StepRunner. Replies are consumed in call
// order; once the script is exhausted every call succeeds immediately.
type fakeStepRunner struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []fakeCall
	closed  []int64
	running int
	overlap bool
}

type fakeCall struct {
	runID       int64
	startURL    string
	instruction string
}

type fakeReply struct {
	err   error
	delay time.Duration
}

func (f *fakeStepRunner) RunStep(_ context.Context, runID int64, startURL, instruction string) (*runner.StepResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{runID: runID, startURL: startURL, instruction: instruction})
	var reply fakeReply
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	if f.running > 0 {
		f.overlap = true
	}
	f.running++
	f.mu.Unlock()

	if reply.delay > 0 {
		time.Sleep(reply.delay)
	}

	f.mu.Lock()
	f.running--
	f.mu.Unlock()

	if reply.err != nil {
		return nil, reply.err
	}
	return &runner.StepResult{
		OK:          true,
		Runner:      "fake",
		RunID:       runID,
		StartingURL: startURL,
		Instruction: instruction,
		Parsed:      runner.ParseInstruction(instruction),
		FinalURL:    startURL,
		Title:       "fake page",
	}, nil
}

func (f *fakeStepRunner) CloseSession(runID int64) {
	f.mu.Lock()
	f.closed = append(f.closed, runID)
	f.mu.Unlock()
}

func (f *fakeStepRunner) Shutdown() {}

func (f *fakeStepRunner) Stats() runner.MetricsSnapshot { return runner.MetricsSnapshot{} }

func (f *fakeStepRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStepRunner) call(i int) fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeStepRunner) closedRuns() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.closed...)
}

func newTestService(t *testing.T, fake *fakeStepRunner) *Service {
	t.Helper()
	return newTestServiceMode(t, fake, config.URLModeDemo, nil)
}

func newTestServiceMode(t *testing.T, fake *fakeStepRunner, urlMode string, allowedHosts []string) *Service {
	t.Helper()
	st := helpers.NewTestSQLiteStore(t)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, urlMode, allowedHosts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	cfg := &config.Config{
		Mode:                 config.ModeMock,
		StartingURLMode:      urlMode,
		AllowedStartingHosts: allowedHosts,
		DemoStartingURL:      testDemoURL,
		ExecTimeout:          5 * time.Second,
		CloseTimeout:         2 * time.Second,
	}

	svc := New(st, llm.NewMockClient(testDemoURL), engine, fake, cfg)
	t.Cleanup(svc.Shutdown)
	return svc
}
