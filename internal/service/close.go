package service

import (
	"context"
	"fmt"
	"log"

	"github.com/xiaot623/novaflow/internal/domain"
)

// CloseRunSession tears down the run's browser through its lane, so the
// teardown lands after any in-flight step, then drops the lane. Closing a run
// with no session or lane is a no-op success.
func (s *Service) CloseRunSession(ctx context.Context, runID int64) (*domain.CloseSessionResponse, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	laneCtx, cancel := context.WithTimeout(ctx, s.config.CloseTimeout)
	defer cancel()
	_, laneErr := s.lanes.Do(laneCtx, runID, func(context.Context) (any, error) {
		s.runner.CloseSession(runID)
		return nil, nil
	})
	if laneErr != nil {
		// Lane busy or already gone: close directly. Teardown is best-effort
		// and always safe, even against a worker mid-operation.
		log.Printf("WARN: direct session teardown for run %d: %v", runID, laneErr)
		s.runner.CloseSession(runID)
	}
	s.lanes.CloseLane(runID)

	if err := s.appendLog(ctx, runID, domain.LogLevelInfo, domain.LogMsgSessionClosed, map[string]any{}); err != nil {
		log.Printf("ERROR: failed to log session close for run %d: %v", runID, err)
	}
	return &domain.CloseSessionResponse{OK: true, RunID: runID}, nil
}
