package retriever

import (
	"log/slog"
	"os"

	"github.com/autorag/autorag/embedding"
	"github.com/autorag/autorag/llm"
	"github.com/autorag/autorag/rag/store"
)

// Deps holds the collaborators a retrieval mode may need. Model and Store are
// required; Encoder and LLM are optional and only used by the reranking mode.
type Deps struct {
	Model   embedding.EmbeddingModel
	Store   store.VectorStore
	Encoder CrossEncoder
	LLM     llm.LLM
}

// Select builds the retriever for a search mode. Unknown modes fall back to
// semantic so a bad search option degrades rather than failing the query.
func Select(mode SearchMode, deps Deps) Retriever {
	switch mode {
	case SearchSemantic:
		return NewVectorRetriever(deps.Model, deps.Store)

	case SearchHybrid:
		return NewHybridRetriever(deps.Model, deps.Store)

	case SearchReranking:
		opts := []RerankOption{}
		if deps.Encoder != nil {
			opts = append(opts, WithCrossEncoder(deps.Encoder))
		}
		if deps.LLM != nil {
			opts = append(opts, WithExpansionLLM(deps.LLM))
		}
		return NewRerankRetriever(deps.Model, deps.Store, opts...)

	default:
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		logger.Warn("unknown search mode, using semantic", "mode", string(mode))
		return NewVectorRetriever(deps.Model, deps.Store)
	}
}
