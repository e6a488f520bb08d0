package planner

import (
	"strings"
	"testing"

	"github.com/xiaot623/novaflow/internal/domain"
)

const validPlan = `{"starting_url":"https://example.com/","steps":[{"id":"S1","type":"ui","instruction":"SCREENSHOT: landing","requires_approval":false,"evidence":"e"}]}`

func TestParsePlanTextDirect(t *testing.T) {
	plan, err := ParsePlanText(validPlan)
	if err != nil {
		t.Fatalf("ParsePlanText failed: %v", err)
	}
	if plan.StartingURL != "https://example.com/" || len(plan.Steps) != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Steps[0].ID != "S1" || plan.Steps[0].Type != domain.StepTypeUI {
		t.Fatalf("unexpected step: %+v", plan.Steps[0])
	}
}

func TestParsePlanTextFenced(t *testing.T) {
	for _, raw := range []string{
		"```json\n" + validPlan + "\n```",
		"```\n" + validPlan + "\n```",
		"  ```JSON\n" + validPlan + "\n```  ",
	} {
		plan, err := ParsePlanText(raw)
		if err != nil {
			t.Fatalf("ParsePlanText(%q) failed: %v", raw[:12], err)
		}
		if len(plan.Steps) != 1 {
			t.Fatalf("unexpected plan: %+v", plan)
		}
	}
}

func TestParsePlanTextEmbeddedObject(t *testing.T) {
	raw := "Here is the plan you asked for:\n" + validPlan + "\nLet me know!"
	plan, err := ParsePlanText(raw)
	if err != nil {
		t.Fatalf("ParsePlanText failed: %v", err)
	}
	if plan.StartingURL != "https://example.com/" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestParsePlanTextInvalid(t *testing.T) {
	if _, err := ParsePlanText("the model refused"); err == nil {
		t.Fatalf("expected error for non-JSON output")
	}
	// Duplicate step ids fail structural validation.
	dup := `{"starting_url":"https://example.com/","steps":[{"id":"S1","type":"ui","instruction":"WAIT_MS: 1"},{"id":"S1","type":"ui","instruction":"WAIT_MS: 2"}]}`
	if _, err := ParsePlanText(dup); err == nil {
		t.Fatalf("expected error for duplicate step ids")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	long := strings.Repeat("x", 900)
	prompt := BuildUserPrompt("log in", []domain.ContextChunk{
		{Title: "Voice", Content: "Friendly."},
		{Title: "Long", Content: long},
	})
	if !strings.Contains(prompt, "TASK:\nlog in") {
		t.Fatalf("prompt missing task: %q", prompt)
	}
	if !strings.Contains(prompt, "[Voice] Friendly.") {
		t.Fatalf("prompt missing context chunk: %q", prompt)
	}
	if strings.Contains(prompt, long) {
		t.Fatalf("long content should be truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 700)) {
		t.Fatalf("truncated content missing")
	}
}

func TestBuildUserPromptNoContext(t *testing.T) {
	prompt := BuildUserPrompt("do something", nil)
	if !strings.Contains(prompt, "No context.") {
		t.Fatalf("expected placeholder for empty context: %q", prompt)
	}
}
