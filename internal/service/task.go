package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xiaot623/novaflow/internal/domain"
	"github.com/xiaot623/novaflow/internal/planner"
	"github.com/xiaot623/novaflow/internal/rag"
)

const (
	defaultTopK      = 4
	taskEmbeddingDim = 1024
)

// PlanRejectedError reports a plan the policy engine refused to admit. The
// run is never created; nothing is stored.
type PlanRejectedError struct {
	Violations []string
}

func (e *PlanRejectedError) Error() string {
	return "plan blocked by policy: " + strings.Join(e.Violations, "; ")
}

// CreateTask plans a task: retrieve brand kit context, ask the provider for a
// plan, admit it through policy, and store the run as PLANNED.
func (s *Service) CreateTask(ctx context.Context, req *domain.TaskRequest) (*domain.TaskResponse, error) {
	task := strings.TrimSpace(req.Task)
	if task == "" {
		return nil, fmt.Errorf("task is required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVec, err := s.provider.EmbedText(ctx, task, taskEmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("failed to embed task: %w", err)
	}
	docs, err := s.store.ListBrandDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list brand docs: %w", err)
	}
	chunks := make([]domain.ContextChunk, 0, topK)
	for _, hit := range rag.TopK(queryVec, docs, topK) {
		chunks = append(chunks, domain.ContextChunk{
			DocID:   hit.Doc.ID,
			Title:   hit.Doc.Title,
			Content: hit.Doc.Content,
			Score:   hit.Score,
		})
	}

	raw, err := s.provider.Complete(ctx, planner.System, planner.BuildUserPrompt(task, chunks))
	if err != nil {
		return nil, fmt.Errorf("planner completion failed: %w", err)
	}
	plan, err := planner.ParsePlanText(raw)
	if err != nil {
		return nil, err
	}

	decision, err := s.policyEngine.EvaluatePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate plan policy: %w", err)
	}
	if decision.Blocked() {
		return nil, &PlanRejectedError{Violations: decision.Violations}
	}

	planJSON, err := planner.EncodePlan(plan)
	if err != nil {
		return nil, err
	}
	run := &domain.Run{
		Task:     task,
		Status:   domain.RunStatusPlanned,
		PlanJSON: planJSON,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if err := s.appendLog(ctx, run.ID, domain.LogLevelInfo, domain.LogMsgRunCreated, map[string]any{
		"ctx":  chunks,
		"plan": plan,
	}); err != nil {
		log.Printf("ERROR: failed to log run creation for run %d: %v", run.ID, err)
	}

	return &domain.TaskResponse{RunID: run.ID, Plan: plan, Ctx: chunks}, nil
}
