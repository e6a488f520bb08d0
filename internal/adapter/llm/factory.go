package llm

import (
	"log"

	"github.com/xiaot623/novaflow/internal/config"
)

// NewProvider creates a provider based on the configured mode. Mock mode
// needs no credentials and is the default for local runs.
func NewProvider(cfg *config.Config) (Provider, error) {
	if cfg.Mode == config.ModeMock {
		log.Println("NOVAFLOW_MODE=mock detected, using mock LLM provider")
		return NewMockClient(cfg.DemoStartingURL), nil
	}
	return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.PlannerModel, cfg.EmbeddingModel)
}
