package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/autorag/autorag/embedding"
	"github.com/autorag/autorag/llm"
	"github.com/autorag/autorag/rag/retriever"
	"github.com/autorag/autorag/rag/store"
)

// SourceSnippetChars bounds how much of each source chunk is returned to the
// caller. Source snippets are raw chunk text; sanitization applies only to
// generated answers.
const SourceSnippetChars = 500

// Pipeline binds an embedding model, a vector store, and a generation
// backend into a query path. Pipelines are immutable once built; the service
// swaps in a new one when the index or configuration changes.
type Pipeline struct {
	model   embedding.EmbeddingModelWithInfo
	store   store.VectorStore
	llm     llm.LLMWithMetadata
	encoder retriever.CrossEncoder
	logger  *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineCrossEncoder sets the reranking cross-encoder.
func WithPipelineCrossEncoder(encoder retriever.CrossEncoder) PipelineOption {
	return func(p *Pipeline) {
		p.encoder = encoder
	}
}

// NewPipeline creates a query pipeline.
func NewPipeline(model embedding.EmbeddingModelWithInfo, vs store.VectorStore, generator llm.LLMWithMetadata, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		model:  model,
		store:  vs,
		llm:    generator,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Answer is the result of one query.
type Answer struct {
	// Text is the sanitized answer.
	Text string `json:"answer"`
	// Sources holds the leading text of each chunk the answer drew on.
	// Populated only when requested.
	Sources []string `json:"sources,omitempty"`
	// Model identifies the generation backend that produced the answer.
	Model string `json:"model"`
	// UsedFallback reports that the configured backend was substituted by
	// its local fallback.
	UsedFallback bool `json:"used_fallback,omitempty"`
}

// Query retrieves under the given search mode, synthesizes, and sanitizes.
// Retrieval-mode failures degrade inside the retriever; generation failures
// resolve to a fixed apology. The returned error covers only structural
// problems such as an unusable embedding backend.
func (p *Pipeline) Query(ctx context.Context, question string, mode retriever.SearchMode, includeSources bool) (Answer, error) {
	r := retriever.Select(mode, retriever.Deps{
		Model:   p.model,
		Store:   p.store,
		Encoder: p.encoder,
		LLM:     p.llm,
	})

	chunks, err := r.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}

	meta := p.llm.Metadata()
	synthesizer := NewSynthesizer(p.llm, meta.ModelName)
	text := synthesizer.Synthesize(ctx, question, chunks)

	answer := Answer{
		Text:         text,
		Model:        meta.ModelName,
		UsedFallback: meta.UsedFallback,
	}

	if includeSources {
		answer.Sources = make([]string, len(chunks))
		for i, sc := range chunks {
			answer.Sources[i] = truncateRunes(sc.Chunk.Text, SourceSnippetChars)
		}
	}

	p.logger.Info("query complete",
		"mode", string(mode), "chunks", len(chunks), "model", meta.ModelName, "used_fallback", meta.UsedFallback)
	return answer, nil
}

// Store exposes the pipeline's vector store for ingestion.
func (p *Pipeline) Store() store.VectorStore {
	return p.store
}
