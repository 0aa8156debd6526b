package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autorag/autorag/rag/store"
	"github.com/autorag/autorag/schema"
)

const testFingerprint = "huggingface/sentence-transformers/all-MiniLM-L6-v2/3"

func testChunk(text string, vector []float64) schema.Chunk {
	c := schema.NewChunk(text, map[string]string{schema.MetadataKeySource: "test.txt"})
	c.Embedding = vector
	return c
}

// TestStoreLifecycle tests creating, persisting, and reloading the index.
func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("open before create reports index not found", func(t *testing.T) {
		_, err := Open(t.TempDir(), "docs", testFingerprint)
		assert.ErrorIs(t, err, store.ErrIndexNotFound)
	})

	t.Run("create then open with matching fingerprint", func(t *testing.T) {
		dir := t.TempDir()

		created, err := Create(dir, "docs", testFingerprint, 3)
		require.NoError(t, err)
		require.NoError(t, created.Add(ctx, []schema.Chunk{
			testChunk("the sky is blue", []float64{1, 0, 0}),
			testChunk("grass is green", []float64{0, 1, 0}),
		}))
		assert.Equal(t, 2, created.Count())

		opened, err := Open(dir, "docs", testFingerprint)
		require.NoError(t, err)
		assert.Equal(t, 2, opened.Count())
		assert.Equal(t, testFingerprint, opened.Manifest().Fingerprint)
	})

	t.Run("open with changed fingerprint reports provider mismatch", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Create(dir, "docs", testFingerprint, 3)
		require.NoError(t, err)

		_, err = Open(dir, "docs", "openai/text-embedding-ada-002/1536")
		assert.ErrorIs(t, err, store.ErrProviderMismatch)
	})

	t.Run("search results survive a persist and reload", func(t *testing.T) {
		dir := t.TempDir()
		created, err := Create(dir, "docs", testFingerprint, 3)
		require.NoError(t, err)
		require.NoError(t, created.Add(ctx, []schema.Chunk{
			testChunk("the sky is blue", []float64{1, 0, 0}),
			testChunk("grass is green", []float64{0, 1, 0}),
			testChunk("the ocean is deep", []float64{0, 0, 1}),
		}))

		query := []float64{0.9, 0.1, 0}
		before, err := created.Query(ctx, query, 3)
		require.NoError(t, err)

		opened, err := Open(dir, "docs", testFingerprint)
		require.NoError(t, err)
		after, err := opened.Query(ctx, query, 3)
		require.NoError(t, err)

		require.Equal(t, len(before), len(after))
		for i := range before {
			assert.Equal(t, before[i].Chunk.Text, after[i].Chunk.Text)
			assert.InDelta(t, before[i].Score, after[i].Score, 1e-6)
		}
	})
}

// TestStoreQuery tests query edge cases.
func TestStoreQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store yields empty result", func(t *testing.T) {
		s, err := Create(t.TempDir(), "docs", testFingerprint, 3)
		require.NoError(t, err)

		chunks, err := s.Query(ctx, []float64{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("topK is clamped to the store size", func(t *testing.T) {
		s, err := Create(t.TempDir(), "docs", testFingerprint, 3)
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, []schema.Chunk{testChunk("only one", []float64{1, 0, 0})}))

		chunks, err := s.Query(ctx, []float64{1, 0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, chunks, 1)
	})

	t.Run("results come back ordered with metadata", func(t *testing.T) {
		s, err := Create(t.TempDir(), "docs", testFingerprint, 3)
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, []schema.Chunk{
			testChunk("near", []float64{1, 0, 0}),
			testChunk("far", []float64{0, 1, 0}),
		}))

		chunks, err := s.Query(ctx, []float64{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "near", chunks[0].Chunk.Text)
		assert.Equal(t, "test.txt", chunks[0].Chunk.Source())
		assert.Greater(t, chunks[0].Score, chunks[1].Score)
	})

	t.Run("chunks without embeddings are rejected", func(t *testing.T) {
		s, err := Create(t.TempDir(), "docs", testFingerprint, 3)
		require.NoError(t, err)
		err = s.Add(ctx, []schema.Chunk{schema.NewChunk("no vector", nil)})
		assert.Error(t, err)
	})
}

// TestStoreClear tests clearing the collection.
func TestStoreClear(t *testing.T) {
	ctx := context.Background()

	s, err := Create(t.TempDir(), "docs", testFingerprint, 3)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, []schema.Chunk{testChunk("something", []float64{1, 0, 0})}))
	require.Equal(t, 1, s.Count())

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Count())

	// The store stays usable after a clear.
	require.NoError(t, s.Add(ctx, []schema.Chunk{testChunk("again", []float64{0, 1, 0})}))
	assert.Equal(t, 1, s.Count())
}
