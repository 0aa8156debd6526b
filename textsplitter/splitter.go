package textsplitter

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// SentenceSplitter splits text into overlapping windows of bounded character
// size, preferring sentence boundaries. Sentences longer than the chunk size
// are split at word boundaries.
type SentenceSplitter struct {
	chunkSize    int
	chunkOverlap int
	tokenizer    *sentences.DefaultSentenceTokenizer
	counter      TokenCounter
	// maxTokens optionally bounds chunks by model tokens as well as chars.
	maxTokens int
}

// SplitterOption configures a SentenceSplitter.
type SplitterOption func(*SentenceSplitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) SplitterOption {
	return func(s *SentenceSplitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks in characters.
func WithChunkOverlap(overlap int) SplitterOption {
	return func(s *SentenceSplitter) {
		s.chunkOverlap = overlap
	}
}

// WithMaxTokens additionally bounds each chunk by model token count.
func WithMaxTokens(maxTokens int) SplitterOption {
	return func(s *SentenceSplitter) {
		s.maxTokens = maxTokens
	}
}

// NewSentenceSplitter creates a splitter with the given options.
func NewSentenceSplitter(opts ...SplitterOption) (*SentenceSplitter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence tokenizer: %w", err)
	}

	counter, err := DefaultTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	s := &SentenceSplitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		tokenizer:    tokenizer,
		counter:      counter,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", s.chunkOverlap, s.chunkSize)
	}

	return s, nil
}

// SplitText splits text into overlapping chunks.
func (s *SentenceSplitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize && s.withinTokenBudget(text) {
		return []string{text}
	}

	pieces := s.sentencePieces(text)

	var chunks []string
	var current []string
	currentLen := 0
	fresh := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, " "))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Carry trailing pieces into the next window for overlap.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			pieceLen := len(current[i]) + 1
			if carriedLen+pieceLen > s.chunkOverlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += pieceLen
		}
		current = carried
		currentLen = carriedLen
		fresh = false
	}

	for _, piece := range pieces {
		pieceLen := len(piece) + 1
		if currentLen+pieceLen > s.chunkSize && currentLen > 0 {
			flush()
		}
		current = append(current, piece)
		currentLen += pieceLen
		fresh = true

		if s.maxTokens > 0 && s.counter.CountTokens(strings.Join(current, " ")) > s.maxTokens {
			flush()
		}
	}
	// The overlap carry alone does not make a new chunk.
	if fresh {
		flush()
	}

	return chunks
}

// sentencePieces segments text into sentences, further splitting any sentence
// longer than the chunk size at word boundaries.
func (s *SentenceSplitter) sentencePieces(text string) []string {
	var pieces []string
	for _, sent := range s.tokenizer.Tokenize(text) {
		t := strings.TrimSpace(sent.Text)
		if t == "" {
			continue
		}
		if len(t) <= s.chunkSize {
			pieces = append(pieces, t)
			continue
		}
		pieces = append(pieces, splitWords(t, s.chunkSize)...)
	}
	return pieces
}

func (s *SentenceSplitter) withinTokenBudget(text string) bool {
	if s.maxTokens <= 0 {
		return true
	}
	return s.counter.CountTokens(text) <= s.maxTokens
}

// splitWords breaks an over-long sentence into word-boundary pieces of at
// most maxLen characters. A single word longer than maxLen is hard-cut.
func splitWords(text string, maxLen int) []string {
	var pieces []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		for len(word) > maxLen {
			pieces = append(pieces, word[:maxLen])
			word = word[maxLen:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > maxLen {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	return pieces
}
