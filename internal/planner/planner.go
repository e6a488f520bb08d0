// Package planner builds planner prompts and recovers plan JSON from model
// output.
package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xiaot623/novaflow/internal/domain"
)

// System is the planner system prompt. The schema mirrors domain.Plan.
const System = `You are the NovaFlow planner.
Return ONLY valid JSON. No markdown, no commentary.

Schema:
{
  "starting_url": "https://...",
  "steps": [
    {
      "id": "S1",
      "type": "ui" | "write",
      "instruction": "string",
      "requires_approval": true|false,
      "evidence": "string"
    }
  ]
}

Rules:
- Keep steps deterministic and short.
- Put any browser action as type="ui".
- Make the first UI step safe and reversible.
- Always return EXACTLY 4 UI steps when the user asks for a 4-step UI plan.
`

// contentLimit caps how much of each context chunk reaches the prompt.
const contentLimit = 700

// BuildUserPrompt assembles the user prompt from the task and the retrieved
// brand kit chunks.
func BuildUserPrompt(task string, chunks []domain.ContextChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		content := c.Content
		if len(content) > contentLimit {
			content = content[:contentLimit]
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", c.Title, content))
	}
	ctxText := strings.Join(parts, "\n\n")
	if ctxText == "" {
		ctxText = "No context."
	}
	return fmt.Sprintf("TASK:\n%s\n\nBRAND KIT CONTEXT:\n%s\n\nReturn ONLY JSON.", task, ctxText)
}

var (
	fenceOpen  = regexp.MustCompile("^\\s*```(?:json|JSON)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```\\s*$")
)

// stripCodeFences removes markdown code-fence wrappers so planner output
// survives a model that ignores the JSON-only instruction.
func stripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractJSONObject slices from the first '{' to the last '}'.
func extractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

// ParsePlanText recovers a plan from raw model output: direct decode first,
// then with fences stripped, then the extracted {...} substring.
func ParsePlanText(raw string) (*domain.Plan, error) {
	candidates := []string{
		strings.TrimSpace(raw),
	}
	cleaned := stripCodeFences(raw)
	candidates = append(candidates, cleaned, extractJSONObject(cleaned))

	var lastErr error
	for _, c := range candidates {
		if c == "" {
			continue
		}
		plan, err := domain.ParsePlan(c)
		if err == nil {
			return plan, nil
		}
		lastErr = err
	}

	preview := strings.ReplaceAll(raw, "\n", "\\n")
	if len(preview) > 500 {
		preview = preview[:500]
	}
	return nil, fmt.Errorf("planner returned invalid JSON (raw preview: %s): %w", preview, lastErr)
}

// EncodePlan renders a plan back to compact JSON for storage.
func EncodePlan(plan *domain.Plan) (string, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}
	return string(data), nil
}
