package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedding implements EmbeddingModel backed by the OpenAI API.
type OpenAIEmbedding struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *slog.Logger
}

// NewOpenAIEmbedding creates a new OpenAI embedding client.
// The API key falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIEmbedding(apiKey string, modelName string) *OpenAIEmbedding {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var model openai.EmbeddingModel
	if modelName == "" {
		model = openai.SmallEmbedding3
	} else {
		model = openai.EmbeddingModel(modelName)
	}

	return &OpenAIEmbedding{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// GetTextEmbedding generates an embedding for a document text.
func (o *OpenAIEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return o.getEmbedding(ctx, text, "text")
}

// GetQueryEmbedding generates an embedding for a query.
func (o *OpenAIEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return o.getEmbedding(ctx, query, "query")
}

func (o *OpenAIEmbedding) getEmbedding(ctx context.Context, input string, typeLabel string) ([]float64, error) {
	resp, err := o.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: []string{input},
			Model: o.model,
		},
	)
	if err != nil {
		o.logger.Error("GetEmbedding failed", "type", typeLabel, "error", err)
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}

	embedding32 := resp.Data[0].Embedding
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}

	return embedding64, nil
}

// Info returns information about the model.
func (o *OpenAIEmbedding) Info() EmbeddingInfo {
	switch o.model {
	case openai.SmallEmbedding3:
		return EmbeddingInfo{Provider: "openai", ModelName: string(o.model), Dimensions: 1536, MaxTokens: 8191}
	case openai.LargeEmbedding3:
		return EmbeddingInfo{Provider: "openai", ModelName: string(o.model), Dimensions: 3072, MaxTokens: 8191}
	case openai.AdaEmbeddingV2:
		return EmbeddingInfo{Provider: "openai", ModelName: string(o.model), Dimensions: 1536, MaxTokens: 8191}
	default:
		return DefaultEmbeddingInfo("openai", string(o.model))
	}
}

// Ensure OpenAIEmbedding implements the interfaces.
var _ EmbeddingModel = (*OpenAIEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*OpenAIEmbedding)(nil)
