package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultEmbeddingModel is used when NewEmbedder gets an empty model name.
const DefaultEmbeddingModel = "text-embedding-3-small"

// Embedder implements model.Embedder with the OpenAI embeddings endpoint.
type Embedder struct {
	client    sdk.Client
	modelName string
	hasKey    bool
}

// NewEmbedder creates an Embedder. Extra request options (for example
// option.WithBaseURL) are passed to the SDK client.
func NewEmbedder(apiKey, modelName string, opts ...option.RequestOption) *Embedder {
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Embedder{
		client:    sdk.NewClient(opts...),
		modelName: modelName,
		hasKey:    apiKey != "",
	}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.hasKey {
		return nil, errors.New("OpenAI API key is required")
	}

	resp, err := e.client.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(e.modelName),
		Input: sdk.EmbeddingNewParamsInputUnion{OfString: sdk.String(text)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
