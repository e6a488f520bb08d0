// Package llm provides the model provider abstraction for planning and
// embeddings.
package llm

import "context"

// Provider defines the interface for model provider operations.
type Provider interface {
	// EmbedText embeds one text. dim is honored by the mock provider; remote
	// models return their native dimension.
	EmbedText(ctx context.Context, text string, dim int) ([]float32, error)

	// Complete runs one system+user completion and returns the raw text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Ensure both implementations satisfy the Provider interface.
var (
	_ Provider = (*OpenAIClient)(nil)
	_ Provider = (*MockClient)(nil)
)
