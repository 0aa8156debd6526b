package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// FallbackDimensions is the vector size of the degenerate fallback model,
// matching the MiniLM sentence-embedding family it stands in for.
const FallbackDimensions = 384

// FallbackEmbedding is the degenerate last-resort embedding provider. It
// hashes word tokens into a fixed-dimension vector, so the same text always
// maps to the same vector and related texts share token buckets. Answer
// quality is poor, but ingestion and retrieval keep working when no real
// provider is reachable.
type FallbackEmbedding struct {
	dimensions int
}

// NewFallbackEmbedding creates a fallback embedding model.
func NewFallbackEmbedding() *FallbackEmbedding {
	return &FallbackEmbedding{dimensions: FallbackDimensions}
}

// GetTextEmbedding generates a deterministic embedding for a text.
func (f *FallbackEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return f.embed(text), nil
}

// GetQueryEmbedding generates a deterministic embedding for a query.
func (f *FallbackEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return f.embed(query), nil
}

func (f *FallbackEmbedding) embed(text string) []float64 {
	vec := make([]float64, f.dimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		bucket := int(binary.BigEndian.Uint32(sum[:4])) % f.dimensions
		if bucket < 0 {
			bucket += f.dimensions
		}
		sign := 1.0
		if sum[4]&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}

// Info returns information about the model.
func (f *FallbackEmbedding) Info() EmbeddingInfo {
	return EmbeddingInfo{
		Provider:   "fallback",
		ModelName:  "token-hash",
		Dimensions: f.dimensions,
		MaxTokens:  0,
	}
}

// Ensure FallbackEmbedding implements the interfaces.
var _ EmbeddingModel = (*FallbackEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*FallbackEmbedding)(nil)
