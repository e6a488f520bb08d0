package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/novaflow/internal/domain"
)

// GetRunDetail returns the full view of one run: the row, its decoded plan
// and the ordered log.
func (s *Service) GetRunDetail(ctx context.Context, runID int64) (*domain.RunDetail, error) {
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
	logs, err := s.store.GetRunLogs(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run logs: %w", err)
	}
	if logs == nil {
		logs = []domain.RunLog{}
	}
	return &domain.RunDetail{Run: run, Plan: plan, Logs: logs}, nil
}
