package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"regexp"
	"strings"

	"github.com/xiaot623/novaflow/internal/domain"
)

// MockClient is a deterministic provider that needs no network or API key.
// It returns canned plans and hash-seeded embeddings, which keeps the demo
// and the test suite reproducible.
type MockClient struct {
	demoURL string
}

// NewMockClient creates a mock provider. demoURL is the starting URL used
// when the task text does not name one.
func NewMockClient(demoURL string) *MockClient {
	return &MockClient{demoURL: demoURL}
}

// EmbedText returns a unit vector seeded from the text, so the same text
// always embeds to the same vector and similar texts do not.
func (c *MockClient) EmbedText(_ context.Context, text string, dim int) ([]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d::%s", dim, text)))
	seed := binary.BigEndian.Uint64(sum[:8])
	rng := rand.New(rand.NewSource(int64(seed)))

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

var (
	taskPattern = regexp.MustCompile(`(?is)TASK:\s*(.*?)\s*\n\s*\nBRAND KIT CONTEXT:`)
	urlPattern  = regexp.MustCompile(`https?://[^\s"')\]]+`)
)

// Complete ignores the model entirely and returns a canned plan JSON for the
// task found in the user prompt.
func (c *MockClient) Complete(_ context.Context, _ string, user string) (string, error) {
	task := user
	if m := taskPattern.FindStringSubmatch(user); m != nil {
		task = m[1]
	}
	raw, err := json.Marshal(c.planFor(task))
	if err != nil {
		return "", fmt.Errorf("failed to encode mock plan: %w", err)
	}
	return string(raw), nil
}

func (c *MockClient) planFor(task string) domain.Plan {
	lower := strings.ToLower(task)
	if strings.Contains(lower, "form authentication") || strings.Contains(lower, "tomsmith") || strings.Contains(lower, "supersecretpassword") {
		return domain.Plan{
			StartingURL: c.demoURL,
			Steps: []domain.Step{
				{ID: "S1", Type: domain.StepTypeUI, Instruction: "CLICK_TEXT: Form Authentication", Evidence: "Navigated to Form Authentication page"},
				{ID: "S2", Type: domain.StepTypeUI, Instruction: "TYPE_ID: username=tomsmith", Evidence: "Entered username"},
				{ID: "S3", Type: domain.StepTypeUI, Instruction: "TYPE_ID: password=SuperSecretPassword!", Evidence: "Entered password"},
				{ID: "S4", Type: domain.StepTypeUI, Instruction: `CLICK_CSS: button[type="submit"]`, Evidence: "Submitted login form"},
				{ID: "S5", Type: domain.StepTypeUI, Instruction: "WAIT_TEXT: You logged into a secure area!", Evidence: "Verified successful login"},
				{ID: "S6", Type: domain.StepTypeUI, Instruction: "SCREENSHOT: after_login", Evidence: "Captured post-login screen"},
			},
		}
	}

	start := c.demoURL
	if u := urlPattern.FindString(task); u != "" {
		start = u
	}
	return c.genericPlan(start)
}

// genericPlan is the fallback for tasks the mock does not recognize: confirm
// the landing URL, take a screenshot, wait, and take another.
func (c *MockClient) genericPlan(start string) domain.Plan {
	host := hostOf(start)
	if host == "" {
		host = hostOf(c.demoURL)
	}
	if host == "" {
		host = start
	}
	return domain.Plan{
		StartingURL: start,
		Steps: []domain.Step{
			{ID: "S1", Type: domain.StepTypeUI, Instruction: "WAIT_URL_CONTAINS: " + host, Evidence: "Page loaded (URL contains expected host)"},
			{ID: "S2", Type: domain.StepTypeUI, Instruction: "SCREENSHOT: landing", Evidence: "Captured landing page screenshot"},
			{ID: "S3", Type: domain.StepTypeUI, Instruction: "WAIT_MS: 500", Evidence: "Brief wait for stability"},
			{ID: "S4", Type: domain.StepTypeUI, Instruction: "SCREENSHOT: landing_2", Evidence: "Captured a second screenshot for evidence"},
		},
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
