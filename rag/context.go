package rag

import (
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/autorag/autorag/schema"
)

// NoDocumentsPlaceholder is sent to the model instead of an empty context so
// it receives an explicit "no context" signal.
const NoDocumentsPlaceholder = "No relevant documents found in the knowledge base."

// lowContextCaution is appended when the assembled context is very short, to
// steer the model away from inventing an answer.
const lowContextCaution = "\n\nNote: The context available is very limited. If you don't know the answer based on this context, please say so rather than guessing."

// minContextChars is the threshold below which the caution is appended.
const minContextChars = 200

// contextLimits bounds how much retrieved text reaches the prompt.
type contextLimits struct {
	perChunk int
	total    int
}

// limitsForModel returns the character budgets for a model family. Higher
// capacity models get a larger window; anything unrecognized gets the
// conservative default.
func limitsForModel(modelName string) contextLimits {
	name := strings.ToLower(modelName)

	switch {
	case strings.Contains(name, "gpt-4"):
		return contextLimits{perChunk: 2000, total: 6000}
	case strings.Contains(name, "gpt-3.5") || strings.Contains(name, "gpt-35"):
		return contextLimits{perChunk: 1500, total: 4000}
	case strings.Contains(name, "mistral") || strings.Contains(name, "mixtral"):
		return contextLimits{perChunk: 1800, total: 5400}
	default:
		return contextLimits{perChunk: 1000, total: 2400}
	}
}

// ContextBuilder assembles retrieved chunks into the prompt context string,
// applying per-chunk and total character budgets for the target model.
type ContextBuilder struct {
	limits contextLimits
	logger *slog.Logger
}

// NewContextBuilder creates a builder sized for the given model.
func NewContextBuilder(modelName string) *ContextBuilder {
	return &ContextBuilder{
		limits: limitsForModel(modelName),
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// Build concatenates truncated chunk texts with blank-line separators. Zero
// chunks yield the no-documents placeholder; a very short result gets the
// low-context caution appended.
func (b *ContextBuilder) Build(chunks []schema.ScoredChunk) string {
	if len(chunks) == 0 {
		return NoDocumentsPlaceholder
	}

	parts := make([]string, len(chunks))
	for i, sc := range chunks {
		parts[i] = truncateRunes(sc.Chunk.Text, b.limits.perChunk)
	}

	assembled := strings.Join(parts, "\n\n")
	if len(assembled) > b.limits.total {
		assembled = truncateRunes(assembled, b.limits.total) + "..."
	}

	if len(assembled) < minContextChars {
		assembled += lowContextCaution
	}

	b.logger.Info("context assembled", "chunks", len(chunks), "chars", len(assembled))
	return assembled
}

// truncateRunes cuts s to at most limit bytes without splitting a multi-byte
// rune; the cut backs up to the nearest rune boundary.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
