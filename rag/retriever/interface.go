// Package retriever implements the retrieval strategies behind the query
// pipeline's search modes.
package retriever

import (
	"context"

	"github.com/autorag/autorag/schema"
)

// SearchMode selects a retrieval strategy.
type SearchMode string

const (
	// SearchSemantic is plain dense vector similarity.
	SearchSemantic SearchMode = "semantic"
	// SearchHybrid fuses dense similarity with BM25 lexical scores.
	SearchHybrid SearchMode = "hybrid"
	// SearchReranking over-fetches dense candidates and reorders them with a
	// cross-encoder, or with LLM query expansion when no encoder is available.
	SearchReranking SearchMode = "reranking"
)

// DefaultTopK is the number of chunks handed to the synthesizer.
const DefaultTopK = 3

// Retriever fetches the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]schema.ScoredChunk, error)
}
