package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultEmbeddingModel is used when NewEmbedder gets an empty model name.
const DefaultEmbeddingModel = "text-embedding-004"

// Embedder implements model.Embedder with Gemini embedding models.
type Embedder struct {
	apiKey    string
	modelName string
}

// NewEmbedder creates an Embedder.
func NewEmbedder(apiKey, modelName string) *Embedder {
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	return &Embedder{apiKey: apiKey, modelName: modelName}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	res, err := client.EmbeddingModel(e.modelName).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if res.Embedding == nil {
		return nil, errors.New("no embedding returned")
	}
	return res.Embedding.Values, nil
}
