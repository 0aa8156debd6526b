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

// DefaultSampleSize bounds how many chunks the hybrid mode pulls from the
// index to fit its lexical ranker. Indexes smaller than this are used whole.
const DefaultSampleSize = 1000

// HybridRetriever fuses dense similarity with BM25 lexical relevance at equal
// weight. The BM25 ranker is refit on a fresh index sample every call, so
// lexical statistics always reflect the current index contents. Any failure
// on the hybrid path degrades to plain semantic retrieval rather than failing
// the query.
type HybridRetriever struct {
	model      embedding.EmbeddingModel
	store      store.VectorStore
	fallback   *VectorRetriever
	topK       int
	sampleSize int
	logger     *slog.Logger
}

// HybridOption configures a HybridRetriever.
type HybridOption func(*HybridRetriever)

// WithHybridTopK sets the number of results to return.
func WithHybridTopK(topK int) HybridOption {
	return func(h *HybridRetriever) {
		if topK > 0 {
			h.topK = topK
		}
	}
}

// WithHybridSampleSize sets the lexical fitting sample bound.
func WithHybridSampleSize(n int) HybridOption {
	return func(h *HybridRetriever) {
		if n > 0 {
			h.sampleSize = n
		}
	}
}

// NewHybridRetriever creates a dense+lexical fusion retriever.
func NewHybridRetriever(model embedding.EmbeddingModel, vs store.VectorStore, opts ...HybridOption) *HybridRetriever {
	h := &HybridRetriever{
		model:      model,
		store:      vs,
		fallback:   NewVectorRetriever(model, vs),
		topK:       DefaultTopK,
		sampleSize: DefaultSampleSize,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Retrieve runs hybrid retrieval: sample the index, score the sample both
// densely and lexically, min-max normalize each list, and fuse at 0.5/0.5.
func (h *HybridRetriever) Retrieve(ctx context.Context, query string) ([]schema.ScoredChunk, error) {
	count := h.store.Count()
	if count == 0 {
		return nil, nil
	}

	chunks, err := h.retrieveHybrid(ctx, query, count)
	if err != nil {
		h.logger.Warn("hybrid retrieval failed, degrading to semantic", "error", err)
		return h.fallback.Retrieve(ctx, query)
	}

	return chunks, nil
}

func (h *HybridRetriever) retrieveHybrid(ctx context.Context, query string, count int) ([]schema.ScoredChunk, error) {
	queryEmbedding, err := h.model.GetQueryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sampleSize := h.sampleSize
	if count < sampleSize {
		sampleSize = count
	}

	// One store query yields both the fitting sample and the dense scores.
	sample, err := h.store.Query(ctx, queryEmbedding, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample index: %w", err)
	}
	if len(sample) == 0 {
		return nil, nil
	}

	texts := make([]string, len(sample))
	for i, sc := range sample {
		texts[i] = sc.Chunk.Text
	}

	bm25 := embedding.NewBM25()
	bm25.Fit(texts)

	denseScores := make([]float64, len(sample))
	lexicalScores := make([]float64, len(sample))
	for i, sc := range sample {
		denseScores[i] = sc.Score
		lexicalScores[i] = bm25.Score(query, sc.Chunk.Text)
	}

	embedding.NormalizeScores(denseScores)
	embedding.NormalizeScores(lexicalScores)

	fused := make([]schema.ScoredChunk, len(sample))
	for i, sc := range sample {
		fused[i] = schema.ScoredChunk{
			Chunk: sc.Chunk,
			Score: 0.5*denseScores[i] + 0.5*lexicalScores[i],
		}
	}

	schema.SortScoredChunks(fused)
	if len(fused) > h.topK {
		fused = fused[:h.topK]
	}

	h.logger.Info("hybrid retrieval complete",
		"query_len", len(query), "sample", len(sample), "vocabulary", bm25.VocabularySize(), "results", len(fused))
	return fused, nil
}

// Ensure HybridRetriever implements Retriever.
var _ Retriever = (*HybridRetriever)(nil)
