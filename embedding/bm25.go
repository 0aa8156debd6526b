package embedding

import (
	"math"
	"regexp"
	"strings"
)

// BM25 is a sparse lexical ranker over a fitted corpus. It backs the hybrid
// retrieval mode; the corpus is refit from a fresh sample on each call, so no
// locking is needed beyond construction.
type BM25 struct {
	// k1 controls term frequency saturation (typically 1.2-2.0).
	k1 float64
	// b controls document length normalization (typically 0.75).
	b float64
	// vocabulary maps terms to their indices.
	vocabulary map[string]int
	// idf stores inverse document frequency per term.
	idf map[string]float64
	// avgDocLength is the average document length in the corpus.
	avgDocLength float64
	// numDocs is the corpus size.
	numDocs int
	// tokenizer splits text into terms.
	tokenizer func(string) []string
	// stopwords is the set of terms to ignore.
	stopwords map[string]bool
}

// BM25Option configures a BM25 ranker.
type BM25Option func(*BM25)

// WithBM25K1 sets the k1 parameter.
func WithBM25K1(k1 float64) BM25Option {
	return func(b *BM25) {
		b.k1 = k1
	}
}

// WithBM25B sets the b parameter.
func WithBM25B(bParam float64) BM25Option {
	return func(b *BM25) {
		b.b = bParam
	}
}

// WithBM25Tokenizer sets a custom tokenizer.
func WithBM25Tokenizer(tokenizer func(string) []string) BM25Option {
	return func(b *BM25) {
		b.tokenizer = tokenizer
	}
}

// NewBM25 creates a new BM25 ranker.
func NewBM25(opts ...BM25Option) *BM25 {
	b := &BM25{
		k1:         1.5,
		b:          0.75,
		vocabulary: make(map[string]int),
		idf:        make(map[string]float64),
		tokenizer:  defaultBM25Tokenizer,
		stopwords:  defaultBM25Stopwords(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Fit trains the ranker on a corpus of documents.
func (b *BM25) Fit(documents []string) {
	b.numDocs = len(documents)
	b.vocabulary = make(map[string]int)
	b.idf = make(map[string]float64)

	docFreq := make(map[string]int)
	var totalLength int
	vocabIndex := 0

	for _, doc := range documents {
		tokens := b.tokenize(doc)
		totalLength += len(tokens)

		seen := make(map[string]bool)
		for _, token := range tokens {
			if !seen[token] {
				seen[token] = true
				docFreq[token]++
			}
			if _, exists := b.vocabulary[token]; !exists {
				b.vocabulary[token] = vocabIndex
				vocabIndex++
			}
		}
	}

	if b.numDocs > 0 {
		b.avgDocLength = float64(totalLength) / float64(b.numDocs)
	}

	// IDF with smoothing to avoid negative values.
	for term, df := range docFreq {
		b.idf[term] = math.Log((float64(b.numDocs)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}
}

// Score calculates the BM25 relevance of a document for a query.
func (b *BM25) Score(query, document string) float64 {
	return b.Transform(query).DotProduct(b.TransformDocument(document))
}

// Transform converts a query to an IDF-weighted sparse embedding, using
// binary term presence as is standard for BM25 queries.
func (b *BM25) Transform(query string) *SparseEmbedding {
	tokens := b.tokenize(query)

	seen := make(map[string]bool)
	var indices []int
	var values []float64

	for _, token := range tokens {
		if seen[token] {
			continue
		}
		seen[token] = true

		idx, exists := b.vocabulary[token]
		if !exists {
			continue
		}

		if idf := b.idf[token]; idf > 0 {
			indices = append(indices, idx)
			values = append(values, idf)
		}
	}

	return &SparseEmbedding{
		Indices:   indices,
		Values:    values,
		Dimension: len(b.vocabulary),
	}
}

// TransformDocument converts a document to a sparse BM25 embedding.
func (b *BM25) TransformDocument(text string) *SparseEmbedding {
	tokens := b.tokenize(text)
	docLength := len(tokens)

	tf := make(map[string]int)
	for _, token := range tokens {
		tf[token]++
	}

	var indices []int
	var values []float64

	for term, freq := range tf {
		idx, exists := b.vocabulary[term]
		if !exists {
			continue
		}

		idf := b.idf[term]
		if idf == 0 {
			continue
		}

		tfNorm := float64(freq) * (b.k1 + 1)
		tfDenom := float64(freq) + b.k1*(1-b.b+b.b*(float64(docLength)/b.avgDocLength))
		score := idf * (tfNorm / tfDenom)

		if score > 0 {
			indices = append(indices, idx)
			values = append(values, score)
		}
	}

	return &SparseEmbedding{
		Indices:   indices,
		Values:    values,
		Dimension: len(b.vocabulary),
	}
}

// VocabularySize returns the fitted vocabulary size.
func (b *BM25) VocabularySize() int {
	return len(b.vocabulary)
}

func (b *BM25) tokenize(text string) []string {
	tokens := b.tokenizer(text)

	var filtered []string
	for _, token := range tokens {
		if !b.stopwords[token] {
			filtered = append(filtered, token)
		}
	}

	return filtered
}

var bm25Punct = regexp.MustCompile(`[^\w\s]`)

// defaultBM25Tokenizer lowercases, strips punctuation, and splits on
// whitespace.
func defaultBM25Tokenizer(text string) []string {
	text = bm25Punct.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(text)
}

// defaultBM25Stopwords returns common English stopwords.
func defaultBM25Stopwords() map[string]bool {
	words := []string{
		"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
		"be", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "must", "shall", "can", "need",
		"this", "that", "these", "those", "i", "you", "he", "she", "it",
		"we", "they", "what", "which", "who", "whom", "when", "where", "why",
		"how", "all", "each", "every", "both", "few", "more", "most", "other",
		"some", "such", "no", "nor", "not", "only", "own", "same", "so",
		"than", "too", "very", "just", "also", "now",
	}

	stopwords := make(map[string]bool, len(words))
	for _, w := range words {
		stopwords[w] = true
	}
	return stopwords
}
