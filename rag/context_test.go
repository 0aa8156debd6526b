package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/autorag/autorag/schema"
)

func scored(texts ...string) []schema.ScoredChunk {
	chunks := make([]schema.ScoredChunk, len(texts))
	for i, text := range texts {
		chunks[i] = schema.ScoredChunk{Chunk: schema.NewChunk(text, nil), Score: 1}
	}
	return chunks
}

// TestLimitsForModel tests the context budget lookup table.
func TestLimitsForModel(t *testing.T) {
	t.Run("gpt-4 gets the large window", func(t *testing.T) {
		limits := limitsForModel("gpt-4")
		assert.Equal(t, 2000, limits.perChunk)
		assert.Equal(t, 6000, limits.total)
	})

	t.Run("gpt-3.5 family", func(t *testing.T) {
		assert.Equal(t, contextLimits{perChunk: 1500, total: 4000}, limitsForModel("gpt-3.5-turbo"))
		assert.Equal(t, contextLimits{perChunk: 1500, total: 4000}, limitsForModel("gpt-35-turbo"))
	})

	t.Run("mistral family", func(t *testing.T) {
		assert.Equal(t, contextLimits{perChunk: 1800, total: 5400}, limitsForModel("mistralai/Mixtral-8x7B-Instruct-v0.1"))
	})

	t.Run("unknown models get the conservative default", func(t *testing.T) {
		assert.Equal(t, contextLimits{perChunk: 1000, total: 2400}, limitsForModel("google/flan-t5-base"))
	})
}

// TestContextBuilder tests context assembly.
func TestContextBuilder(t *testing.T) {
	t.Run("zero chunks yield the placeholder", func(t *testing.T) {
		builder := NewContextBuilder("gpt-4")
		assert.Equal(t, NoDocumentsPlaceholder, builder.Build(nil))
	})

	t.Run("chunks join with blank lines", func(t *testing.T) {
		long := strings.Repeat("x", 300)
		out := NewContextBuilder("gpt-4").Build(scored("first "+long, "second "+long))
		assert.Contains(t, out, "first")
		assert.Contains(t, out, "\n\nsecond")
	})

	t.Run("per-chunk truncation applies", func(t *testing.T) {
		out := NewContextBuilder("default").Build(scored(strings.Repeat("a", 1500)))
		assert.LessOrEqual(t, len(out), 1000+len(lowContextCaution))
	})

	t.Run("total limit appends ellipsis", func(t *testing.T) {
		chunks := scored(
			strings.Repeat("a", 1000),
			strings.Repeat("b", 1000),
			strings.Repeat("c", 1000),
		)
		out := NewContextBuilder("default").Build(chunks)
		assert.True(t, strings.HasSuffix(out, "..."))
		assert.Equal(t, 2400+3, len(out))
	})

	t.Run("short context gets the caution", func(t *testing.T) {
		out := NewContextBuilder("gpt-4").Build(scored("tiny"))
		assert.True(t, strings.HasPrefix(out, "tiny"))
		assert.Contains(t, out, "please say so rather than guessing")
	})

	t.Run("long context gets no caution", func(t *testing.T) {
		out := NewContextBuilder("gpt-4").Build(scored(strings.Repeat("sentence ", 50)))
		assert.NotContains(t, out, "very limited")
	})

	t.Run("truncation never splits a multi-byte rune", func(t *testing.T) {
		out := NewContextBuilder("default").Build(scored(strings.Repeat("ü", 1500)))
		assert.True(t, utf8.ValidString(out))
	})
}

// TestTruncateRunes tests rune-boundary truncation.
func TestTruncateRunes(t *testing.T) {
	t.Run("short strings pass through", func(t *testing.T) {
		assert.Equal(t, "abc", truncateRunes("abc", 10))
	})

	t.Run("ascii cuts at the limit", func(t *testing.T) {
		assert.Equal(t, "abcde", truncateRunes("abcdefgh", 5))
	})

	t.Run("a cut inside a rune backs up to its start", func(t *testing.T) {
		s := strings.Repeat("é", 10) // 2 bytes per rune
		out := truncateRunes(s, 5)
		assert.Equal(t, "éé", out)
		assert.True(t, utf8.ValidString(out))
	})

	t.Run("four-byte runes stay whole", func(t *testing.T) {
		s := strings.Repeat("\U0001F600", 4)
		for limit := 0; limit <= len(s); limit++ {
			out := truncateRunes(s, limit)
			assert.True(t, utf8.ValidString(out))
			assert.LessOrEqual(t, len(out), limit)
		}
	})
}
