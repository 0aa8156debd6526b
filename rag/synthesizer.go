package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/autorag/autorag/llm"
	"github.com/autorag/autorag/schema"
)

// qaPromptTemplate is the question answering prompt. It ends with the answer
// delimiter that the sanitizer uses to trim leaked prompt text.
const qaPromptTemplate = `You are an AI assistant for question-answering tasks. Use the following pieces of retrieved context to answer the user's question.
If you don't know the answer or if the answer is not contained in the provided context, just say that you don't know.

Use only the information provided in the context to answer the question. Do not use prior knowledge.

Question: %s

Context: %s

Answer:`

// Synthesizer turns retrieved chunks into a sanitized answer.
type Synthesizer struct {
	model   llm.LLM
	builder *ContextBuilder
	logger  *slog.Logger
}

// NewSynthesizer creates a synthesizer. modelName sizes the context window
// budgets.
func NewSynthesizer(model llm.LLM, modelName string) *Synthesizer {
	return &Synthesizer{
		model:   model,
		builder: NewContextBuilder(modelName),
		logger:  slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// Synthesize assembles the context, calls the model, and sanitizes the
// output. Generation and sanitization failures both resolve to a fixed
// apology string rather than an error; the query path never surfaces raw
// model failures.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []schema.ScoredChunk) string {
	prompt := fmt.Sprintf(qaPromptTemplate, question, s.builder.Build(chunks))

	raw, err := s.model.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		return ApologyGeneration
	}

	answer, err := Sanitize(raw)
	if err != nil {
		s.logger.Warn("answer rejected by sanitizer", "error", err)
	}

	return answer
}
