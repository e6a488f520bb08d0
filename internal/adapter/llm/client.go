package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient talks to an OpenAI-compatible endpoint via langchaingo.
type OpenAIClient struct {
	llm *openai.LLM
}

// NewOpenAIClient creates a provider for an OpenAI-compatible endpoint.
// baseURL may be empty for the default endpoint.
func NewOpenAIClient(token, baseURL, model, embeddingModel string) (*OpenAIClient, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
		openai.WithEmbeddingModel(embeddingModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &OpenAIClient{llm: client}, nil
}

// EmbedText embeds one text with the configured embedding model.
func (c *OpenAIClient) EmbedText(ctx context.Context, text string, dim int) ([]float32, error) {
	vecs, err := c.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return vecs[0], nil
}

// Complete runs one system+user completion.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.2),
		llms.WithTopP(0.9),
		llms.WithMaxTokens(1500),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response had no choices")
	}
	return resp.Choices[0].Content, nil
}
