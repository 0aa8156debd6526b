package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/autorag/autorag/embedding"
	"github.com/autorag/autorag/rag/store"
	"github.com/autorag/autorag/schema"
)

// VectorRetriever retrieves chunks by dense cosine similarity against the
// vector store. It backs the semantic search mode and serves as the degrade
// target for the other modes.
type VectorRetriever struct {
	model  embedding.EmbeddingModel
	store  store.VectorStore
	topK   int
	logger *slog.Logger
}

// VectorOption configures a VectorRetriever.
type VectorOption func(*VectorRetriever)

// WithVectorTopK sets the number of results to return.
func WithVectorTopK(topK int) VectorOption {
	return func(v *VectorRetriever) {
		if topK > 0 {
			v.topK = topK
		}
	}
}

// NewVectorRetriever creates a dense similarity retriever.
func NewVectorRetriever(model embedding.EmbeddingModel, vs store.VectorStore, opts ...VectorOption) *VectorRetriever {
	v := &VectorRetriever{
		model:  model,
		store:  vs,
		topK:   DefaultTopK,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Retrieve embeds the query and returns the nearest chunks, at most topK,
// ordered by descending similarity. An empty index yields an empty slice.
func (v *VectorRetriever) Retrieve(ctx context.Context, query string) ([]schema.ScoredChunk, error) {
	queryEmbedding, err := v.model.GetQueryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := v.store.Query(ctx, queryEmbedding, v.topK)
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}

	v.logger.Info("semantic retrieval complete", "query_len", len(query), "results", len(chunks))
	return chunks, nil
}

// Ensure VectorRetriever implements Retriever.
var _ Retriever = (*VectorRetriever)(nil)
