// Package service implements the application logic: task planning, run
// orchestration, and brand kit indexing.
package service

import (
	"context"

	"github.com/xiaot623/novaflow/internal/adapter/llm"
	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/repository"
	"github.com/xiaot623/novaflow/internal/runner"
	"github.com/xiaot623/novaflow/policy"
)

// StepRunner is the browser-facing surface the orchestrator needs. Satisfied
// by *runner.Runner; tests substitute a scripted fake.
type StepRunner interface {
	RunStep(ctx context.Context, runID int64, startURL, instruction string) (*runner.StepResult, error)
	CloseSession(runID int64)
	Shutdown()
	Stats() runner.MetricsSnapshot
}

type Service struct {
	store        store.Store
	provider     llm.Provider
	policyEngine *policy.Engine
	runner       StepRunner
	lanes        *runner.Lanes
	config       *config.Config
}

func New(store store.Store, provider llm.Provider, policyEngine *policy.Engine, stepRunner StepRunner, cfg *config.Config) *Service {
	return &Service{
		store:        store,
		provider:     provider,
		policyEngine: policyEngine,
		runner:       stepRunner,
		lanes:        runner.NewLanes(),
		config:       cfg,
	}
}

// Shutdown stops all lanes and browser sessions.
func (s *Service) Shutdown() {
	s.lanes.Shutdown()
	s.runner.Shutdown()
}

// RunnerStats exposes runner counters for health reporting.
func (s *Service) RunnerStats() runner.MetricsSnapshot {
	return s.runner.Stats()
}
