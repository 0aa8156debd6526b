package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/autorag/autorag/embedding"
	"github.com/autorag/autorag/llm"
	"github.com/autorag/autorag/rag/store"
	"github.com/autorag/autorag/schema"
)

// DefaultFetchK is how many candidates the reranking mode over-fetches
// before reordering down to the final top-k.
const DefaultFetchK = 10

// rrfK is the standard reciprocal rank fusion constant.
const rrfK = 60

// RerankRetriever over-fetches dense candidates and reorders them. With a
// cross-encoder it rescores query/passage pairs jointly; without one it
// expands the query through the LLM and fuses the per-variant result lists
// with reciprocal rank fusion. With neither available it degrades to plain
// semantic retrieval.
type RerankRetriever struct {
	dense    *VectorRetriever
	fallback *VectorRetriever
	encoder  CrossEncoder
	llm      llm.LLM
	topK     int
	logger   *slog.Logger
}

// RerankOption configures a RerankRetriever.
type RerankOption func(*RerankRetriever)

// WithCrossEncoder sets the joint scoring model.
func WithCrossEncoder(encoder CrossEncoder) RerankOption {
	return func(r *RerankRetriever) {
		r.encoder = encoder
	}
}

// WithExpansionLLM sets the model used for query expansion when no
// cross-encoder is available.
func WithExpansionLLM(model llm.LLM) RerankOption {
	return func(r *RerankRetriever) {
		r.llm = model
	}
}

// WithRerankTopK sets the number of results to return after reordering.
func WithRerankTopK(topK int) RerankOption {
	return func(r *RerankRetriever) {
		if topK > 0 {
			r.topK = topK
		}
	}
}

// NewRerankRetriever creates a reranking retriever.
func NewRerankRetriever(model embedding.EmbeddingModel, vs store.VectorStore, opts ...RerankOption) *RerankRetriever {
	r := &RerankRetriever{
		dense:    NewVectorRetriever(model, vs, WithVectorTopK(DefaultFetchK)),
		fallback: NewVectorRetriever(model, vs),
		topK:     DefaultTopK,
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Retrieve over-fetches candidates and reorders them, degrading to the plain
// semantic result on any reranking failure.
func (r *RerankRetriever) Retrieve(ctx context.Context, query string) ([]schema.ScoredChunk, error) {
	candidates, err := r.dense.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if r.encoder != nil {
		reranked, err := r.rerankWithEncoder(ctx, query, candidates)
		if err == nil {
			return reranked, nil
		}
		r.logger.Warn("cross-encoder reranking failed", "error", err)
	}

	if r.llm != nil {
		expanded, err := r.rerankWithExpansion(ctx, query, candidates)
		if err == nil {
			return expanded, nil
		}
		r.logger.Warn("query expansion reranking failed, degrading to semantic", "error", err)
	}

	return r.fallback.Retrieve(ctx, query)
}

// rerankWithEncoder rescores the candidates jointly against the query and
// keeps the top-k. The sort is stable, so encoder score ties preserve the
// dense similarity order.
func (r *RerankRetriever) rerankWithEncoder(ctx context.Context, query string, candidates []schema.ScoredChunk) ([]schema.ScoredChunk, error) {
	passages := make([]string, len(candidates))
	for i, sc := range candidates {
		passages[i] = sc.Chunk.Text
	}

	scores, err := r.encoder.Score(ctx, query, passages)
	if err != nil {
		return nil, err
	}

	reranked := make([]schema.ScoredChunk, len(candidates))
	for i, sc := range candidates {
		reranked[i] = schema.ScoredChunk{Chunk: sc.Chunk, Score: scores[i]}
	}

	schema.SortScoredChunks(reranked)
	if len(reranked) > r.topK {
		reranked = reranked[:r.topK]
	}

	r.logger.Info("cross-encoder reranking complete", "candidates", len(candidates), "results", len(reranked))
	return reranked, nil
}

// rerankWithExpansion asks the LLM for query paraphrases, retrieves for each
// variant, and fuses the ranked lists with reciprocal rank fusion.
func (r *RerankRetriever) rerankWithExpansion(ctx context.Context, query string, candidates []schema.ScoredChunk) ([]schema.ScoredChunk, error) {
	variants, err := r.expandQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	lists := [][]schema.ScoredChunk{candidates}
	for _, variant := range variants {
		chunks, err := r.dense.Retrieve(ctx, variant)
		if err != nil {
			return nil, fmt.Errorf("retrieval for expanded query failed: %w", err)
		}
		lists = append(lists, chunks)
	}

	fused := fuseReciprocalRank(lists)
	if len(fused) > r.topK {
		fused = fused[:r.topK]
	}

	r.logger.Info("expansion reranking complete", "variants", len(variants), "results", len(fused))
	return fused, nil
}

const expansionPromptTemplate = `Rewrite the following question in 2 different ways, keeping the same meaning. Return one rewrite per line with no numbering.

Question: %s

Rewrites:`

func (r *RerankRetriever) expandQuery(ctx context.Context, query string) ([]string, error) {
	response, err := r.llm.Complete(ctx, fmt.Sprintf(expansionPromptTemplate, query))
	if err != nil {
		return nil, fmt.Errorf("query expansion failed: %w", err)
	}

	var variants []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "0123456789.-) "))
		if line == "" || strings.EqualFold(line, query) {
			continue
		}
		variants = append(variants, line)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("query expansion produced no variants")
	}
	if len(variants) > 3 {
		variants = variants[:3]
	}

	return variants, nil
}

// fuseReciprocalRank merges ranked lists with RRF, deduplicating chunks by
// content hash. Output is sorted by descending fused score; ties keep the
// order in which chunks first appeared.
func fuseReciprocalRank(lists [][]schema.ScoredChunk) []schema.ScoredChunk {
	scores := make(map[string]float64)
	chunks := make(map[string]schema.Chunk)
	var order []string

	for _, list := range lists {
		for rank, sc := range list {
			key := sc.Chunk.Hash()
			if _, seen := chunks[key]; !seen {
				chunks[key] = sc.Chunk
				order = append(order, key)
			}
			scores[key] += 1.0 / float64(rrfK+rank+1)
		}
	}

	fused := make([]schema.ScoredChunk, 0, len(order))
	for _, key := range order {
		fused = append(fused, schema.ScoredChunk{Chunk: chunks[key], Score: scores[key]})
	}

	schema.SortScoredChunks(fused)
	return fused
}

// Ensure RerankRetriever implements Retriever.
var _ Retriever = (*RerankRetriever)(nil)
