package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autorag/autorag/embedding"
	"github.com/autorag/autorag/llm"
	"github.com/autorag/autorag/schema"
)

// memoryStore is an in-memory vector store for retriever tests.
type memoryStore struct {
	chunks []schema.Chunk
	err    error
}

func (m *memoryStore) Add(ctx context.Context, chunks []schema.Chunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memoryStore) Query(ctx context.Context, queryEmbedding []float64, topK int) ([]schema.ScoredChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.chunks) == 0 || topK <= 0 {
		return nil, nil
	}

	scored := make([]schema.ScoredChunk, len(m.chunks))
	for i, chunk := range m.chunks {
		score, err := embedding.CosineSimilarity(queryEmbedding, chunk.Embedding)
		if err != nil {
			return nil, err
		}
		scored[i] = schema.ScoredChunk{Chunk: chunk, Score: score}
	}
	schema.SortScoredChunks(scored)

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

func (m *memoryStore) Count() int {
	return len(m.chunks)
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.chunks = nil
	return nil
}

func chunkWithVector(text string, vector []float64) schema.Chunk {
	c := schema.NewChunk(text, nil)
	c.Embedding = vector
	return c
}

func seededStore() *memoryStore {
	return &memoryStore{chunks: []schema.Chunk{
		chunkWithVector("the sky is blue today", []float64{1, 0, 0}),
		chunkWithVector("grass is green in spring", []float64{0.8, 0.6, 0}),
		chunkWithVector("the ocean is deep", []float64{0, 1, 0}),
		chunkWithVector("mountains are tall", []float64{0, 0, 1}),
	}}
}

// scoringEncoder ranks passages by a canned score map.
type scoringEncoder struct {
	scores map[string]float64
	err    error
}

func (e *scoringEncoder) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]float64, len(passages))
	for i, p := range passages {
		out[i] = e.scores[p]
	}
	return out, nil
}

// TestVectorRetriever tests dense retrieval.
func TestVectorRetriever(t *testing.T) {
	model := embedding.NewMockEmbedding([]float64{1, 0, 0})

	t.Run("returns at most topK ordered by similarity", func(t *testing.T) {
		r := NewVectorRetriever(model, seededStore())
		chunks, err := r.Retrieve(context.Background(), "what color is the sky")
		require.NoError(t, err)
		require.Len(t, chunks, DefaultTopK)
		assert.Equal(t, "the sky is blue today", chunks[0].Chunk.Text)
		for i := 1; i < len(chunks); i++ {
			assert.GreaterOrEqual(t, chunks[i-1].Score, chunks[i].Score)
		}
	})

	t.Run("deterministic for a fixed index and query", func(t *testing.T) {
		r := NewVectorRetriever(model, seededStore())
		first, err := r.Retrieve(context.Background(), "sky")
		require.NoError(t, err)
		second, err := r.Retrieve(context.Background(), "sky")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty index yields empty result", func(t *testing.T) {
		r := NewVectorRetriever(model, &memoryStore{})
		chunks, err := r.Retrieve(context.Background(), "anything")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("embedding failure surfaces", func(t *testing.T) {
		broken := &embedding.MockEmbedding{Err: fmt.Errorf("boom")}
		r := NewVectorRetriever(broken, seededStore())
		_, err := r.Retrieve(context.Background(), "anything")
		assert.Error(t, err)
	})
}

// TestHybridRetriever tests dense plus lexical fusion.
func TestHybridRetriever(t *testing.T) {
	model := embedding.NewMockEmbedding([]float64{1, 0, 0})

	t.Run("empty index yields empty result without error", func(t *testing.T) {
		r := NewHybridRetriever(model, &memoryStore{})
		chunks, err := r.Retrieve(context.Background(), "anything")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("lexical overlap lifts matching chunks", func(t *testing.T) {
		r := NewHybridRetriever(model, seededStore())
		chunks, err := r.Retrieve(context.Background(), "sky blue")
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		assert.Equal(t, "the sky is blue today", chunks[0].Chunk.Text)
		assert.LessOrEqual(t, len(chunks), DefaultTopK)
	})

	t.Run("degrades to semantic when the sample query fails", func(t *testing.T) {
		st := seededStore()
		r := NewHybridRetriever(model, st)
		st.err = fmt.Errorf("sample failed")
		r.fallback = NewVectorRetriever(model, seededStore())

		chunks, err := r.Retrieve(context.Background(), "sky")
		require.NoError(t, err)
		assert.Len(t, chunks, DefaultTopK)
	})
}

// TestRerankRetriever tests the reranking mode.
func TestRerankRetriever(t *testing.T) {
	model := embedding.NewMockEmbedding([]float64{1, 0, 0})

	t.Run("cross-encoder reorders candidates", func(t *testing.T) {
		encoder := &scoringEncoder{scores: map[string]float64{
			"the ocean is deep":        0.9,
			"the sky is blue today":    0.5,
			"grass is green in spring": 0.1,
		}}
		r := NewRerankRetriever(model, seededStore(), WithCrossEncoder(encoder))
		chunks, err := r.Retrieve(context.Background(), "how deep is the ocean")
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		assert.Equal(t, "the ocean is deep", chunks[0].Chunk.Text)
		assert.LessOrEqual(t, len(chunks), DefaultTopK)
	})

	t.Run("falls back to query expansion without an encoder", func(t *testing.T) {
		expander := &llm.MockLLM{Response: "what shade is the sky\nwhich color does the sky have"}
		r := NewRerankRetriever(model, seededStore(), WithExpansionLLM(expander))
		chunks, err := r.Retrieve(context.Background(), "what color is the sky")
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		assert.LessOrEqual(t, len(chunks), DefaultTopK)
		assert.NotEmpty(t, expander.Prompts)
	})

	t.Run("degrades to semantic when both paths fail", func(t *testing.T) {
		encoder := &scoringEncoder{err: fmt.Errorf("encoder down")}
		expander := &llm.MockLLM{Err: fmt.Errorf("llm down")}
		r := NewRerankRetriever(model, seededStore(), WithCrossEncoder(encoder), WithExpansionLLM(expander))
		chunks, err := r.Retrieve(context.Background(), "sky")
		require.NoError(t, err)
		assert.Len(t, chunks, DefaultTopK)
	})

	t.Run("empty index yields empty result", func(t *testing.T) {
		r := NewRerankRetriever(model, &memoryStore{})
		chunks, err := r.Retrieve(context.Background(), "anything")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

// TestFuseReciprocalRank tests rank fusion.
func TestFuseReciprocalRank(t *testing.T) {
	a := schema.NewChunk("alpha", nil)
	b := schema.NewChunk("beta", nil)
	c := schema.NewChunk("gamma", nil)

	t.Run("chunks on both lists rank first", func(t *testing.T) {
		fused := fuseReciprocalRank([][]schema.ScoredChunk{
			{{Chunk: a, Score: 1}, {Chunk: b, Score: 0.5}},
			{{Chunk: b, Score: 1}, {Chunk: c, Score: 0.5}},
		})
		require.Len(t, fused, 3)
		assert.Equal(t, "beta", fused[0].Chunk.Text)
	})

	t.Run("duplicate content is merged by hash", func(t *testing.T) {
		dup := schema.NewChunk("alpha", nil)
		fused := fuseReciprocalRank([][]schema.ScoredChunk{
			{{Chunk: a, Score: 1}},
			{{Chunk: dup, Score: 1}},
		})
		assert.Len(t, fused, 1)
	})
}

// TestSelect tests the search mode selector.
func TestSelect(t *testing.T) {
	deps := Deps{
		Model: embedding.NewMockEmbedding([]float64{1, 0, 0}),
		Store: seededStore(),
	}

	t.Run("semantic", func(t *testing.T) {
		assert.IsType(t, &VectorRetriever{}, Select(SearchSemantic, deps))
	})

	t.Run("hybrid", func(t *testing.T) {
		assert.IsType(t, &HybridRetriever{}, Select(SearchHybrid, deps))
	})

	t.Run("reranking", func(t *testing.T) {
		assert.IsType(t, &RerankRetriever{}, Select(SearchReranking, deps))
	})

	t.Run("unknown mode falls back to semantic", func(t *testing.T) {
		assert.IsType(t, &VectorRetriever{}, Select(SearchMode("fancy"), deps))
	})
}
