package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/domain"
)

func TestCreateTaskStoresPlannedRun(t *testing.T) {
	svc := newTestService(t, &fakeStepRunner{})
	ctx := context.Background()

	resp, err := svc.CreateTask(ctx, &domain.TaskRequest{Task: "Run the form authentication demo"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if resp.RunID <= 0 {
		t.Fatalf("run id = %d", resp.RunID)
	}
	if resp.Plan == nil || len(resp.Plan.Steps) != 6 {
		t.Fatalf("plan = %+v, want the 6-step login plan", resp.Plan)
	}
	if resp.Plan.StartingURL != testDemoURL {
		t.Errorf("starting url = %q, want demo URL", resp.Plan.StartingURL)
	}

	run, err := svc.store.GetRun(ctx, resp.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: run=%v err=%v", run, err)
	}
	if run.Status != domain.RunStatusPlanned {
		t.Errorf("status = %s, want PLANNED", run.Status)
	}
	if run.Task != "Run the form authentication demo" {
		t.Errorf("task = %q", run.Task)
	}

	stored, err := domain.ParsePlan(run.PlanJSON)
	if err != nil {
		t.Fatalf("stored plan does not parse: %v", err)
	}
	if len(stored.Steps) != len(resp.Plan.Steps) {
		t.Errorf("stored %d steps, response had %d", len(stored.Steps), len(resp.Plan.Steps))
	}

	logs, err := svc.store.GetRunLogs(ctx, resp.RunID)
	if err != nil {
		t.Fatalf("GetRunLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Message != domain.LogMsgRunCreated {
		t.Fatalf("logs = %+v, want a single creation entry", logs)
	}
}

func TestCreateTaskTrimsAndRejectsEmptyTask(t *testing.T) {
	svc := newTestService(t, &fakeStepRunner{})

	if _, err := svc.CreateTask(context.Background(), &domain.TaskRequest{Task: "   "}); err == nil {
		t.Fatalf("expected error for blank task")
	} else if !strings.Contains(err.Error(), "task is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateTaskRetrievesContext(t *testing.T) {
	svc := newTestService(t, &fakeStepRunner{})
	ctx := context.Background()

	if _, err := svc.IndexBrandDocs(ctx, &domain.IndexDocsRequest{Docs: []domain.IndexDocInput{
		{Title: "Voice", Content: "Friendly, concise, confident."},
		{Title: "Palette", Content: "Primary color is deep teal."},
		{Title: "Logo", Content: "Never stretch the mark."},
	}}); err != nil {
		t.Fatalf("IndexBrandDocs: %v", err)
	}

	resp, err := svc.CreateTask(ctx, &domain.TaskRequest{Task: "Check the landing page styling", TopK: 2})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if len(resp.Ctx) != 2 {
		t.Fatalf("ctx chunks = %d, want top_k=2", len(resp.Ctx))
	}
	for _, c := range resp.Ctx {
		if c.DocID == 0 || c.Title == "" || c.Content == "" {
			t.Errorf("incomplete chunk %+v", c)
		}
		if c.Score < -1.0001 || c.Score > 1.0001 {
			t.Errorf("cosine score out of range: %v", c.Score)
		}
	}
	if resp.Ctx[0].Score < resp.Ctx[1].Score {
		t.Errorf("chunks not ranked best first: %v then %v", resp.Ctx[0].Score, resp.Ctx[1].Score)
	}
}

func TestCreateTaskPolicyBlocksPrivateHost(t *testing.T) {
	svc := newTestServiceMode(t, &fakeStepRunner{}, config.URLModeAnyPublic, nil)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, &domain.TaskRequest{Task: "Open http://localhost:3000/ and check the dashboard"})
	var rejected *PlanRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want PlanRejectedError", err)
	}
	found := false
	for _, v := range rejected.Violations {
		if strings.Contains(v, "loopback or private") {
			found = true
		}
	}
	if !found {
		t.Errorf("violations = %v, want a private-host violation", rejected.Violations)
	}

	// A blocked plan is never stored.
	run, err := svc.store.GetRun(ctx, 1)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run != nil {
		t.Fatalf("blocked plan stored a run: %+v", run)
	}
}

func TestCreateTaskPlanModeHonorsAllowlist(t *testing.T) {
	svc := newTestServiceMode(t, &fakeStepRunner{}, config.URLModePlan, []string{"the-internet.herokuapp.com"})
	ctx := context.Background()

	// The mock pins unknown tasks to the demo URL, whose host is allowlisted.
	if _, err := svc.CreateTask(ctx, &domain.TaskRequest{Task: "Take a screenshot of the landing page"}); err != nil {
		t.Fatalf("allowlisted host rejected: %v", err)
	}

	_, err := svc.CreateTask(ctx, &domain.TaskRequest{Task: "Visit https://evil.example.com/ and poke around"})
	var rejected *PlanRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want PlanRejectedError for off-allowlist host", err)
	}
}
