package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedder embeds text through an OpenAI-compatible endpoint. Image
// embeddings are not available on this provider; deployments using it index
// text vectors only.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
}

// NewOpenAIEmbedder builds an OpenAIEmbedder for the given embedding model.
// Credentials come from the environment, which keeps them out of config files.
func NewOpenAIEmbedder(model string) (*OpenAIEmbedder, error) {
	opts := []openai.Option{}
	if model != "" {
		opts = append(opts, openai.WithEmbeddingModel(model))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("init openai embedder: %w", err)
	}
	return &OpenAIEmbedder{embedder: embedder}, nil
}

// EmbedText embeds a single query string.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// EmbedImage always fails with ErrImageUnsupported.
func (e *OpenAIEmbedder) EmbedImage(_ context.Context, _ []byte) ([]float32, error) {
	return nil, ErrImageUnsupported
}
