package embedding

import "context"

// EmbeddingModel is the interface for dense embedding providers.
type EmbeddingModel interface {
	// GetTextEmbedding generates an embedding for a document text.
	GetTextEmbedding(ctx context.Context, text string) ([]float64, error)
	// GetQueryEmbedding generates an embedding for a query.
	GetQueryEmbedding(ctx context.Context, query string) ([]float64, error)
}

// ProgressCallback reports batch embedding progress.
type ProgressCallback func(processed, total int)

// EmbeddingModelWithBatch extends EmbeddingModel with batch processing.
type EmbeddingModelWithBatch interface {
	EmbeddingModel
	// GetTextEmbeddingsBatch generates embeddings for multiple texts.
	GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error)
}

// EmbeddingModelWithInfo extends EmbeddingModel with model information.
type EmbeddingModelWithInfo interface {
	EmbeddingModel
	// Info returns information about the model.
	Info() EmbeddingInfo
}

// BatchEmbed embeds texts through the model's native batch API when it has
// one, one at a time otherwise.
func BatchEmbed(ctx context.Context, model EmbeddingModel, texts []string, callback ProgressCallback) ([][]float64, error) {
	if batcher, ok := model.(EmbeddingModelWithBatch); ok {
		return batcher.GetTextEmbeddingsBatch(ctx, texts, callback)
	}

	results := make([][]float64, len(texts))
	for i, text := range texts {
		emb, err := model.GetTextEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = emb
		if callback != nil {
			callback(i+1, len(texts))
		}
	}
	return results, nil
}
