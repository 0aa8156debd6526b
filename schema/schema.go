package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Well-known metadata keys set by the ingestion boundary.
const (
	MetadataKeySource   = "source"
	MetadataKeyMimeType = "mime_type"
)

// Document is the unit handed to the core by ingestion: raw text plus
// source metadata. The core never parses file formats itself.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewDocument creates a Document with a generated ID.
func NewDocument(text string, metadata map[string]string) Document {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return Document{
		ID:       uuid.New().String(),
		Text:     text,
		Metadata: metadata,
	}
}

// Chunk is a bounded-size slice of a source document's text plus metadata.
// Chunks are immutable once created; they are produced by the splitter during
// ingestion and destroyed only by a full index rebuild.
type Chunk struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"embedding,omitempty"`
}

// NewChunk creates a Chunk with a generated ID.
func NewChunk(text string, metadata map[string]string) Chunk {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return Chunk{
		ID:       uuid.New().String(),
		Text:     text,
		Metadata: metadata,
	}
}

// Hash returns a content hash of the chunk, used for deduplication when
// merging results from multiple retrieval passes.
func (c Chunk) Hash() string {
	h := sha256.New()
	h.Write([]byte(c.Text))

	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k + "=" + c.Metadata[k]))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Source returns the source identifier from metadata, or "" if unset.
func (c Chunk) Source() string {
	return c.Metadata[MetadataKeySource]
}

// ScoredChunk is a chunk paired with a retrieval relevance score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// SortScoredChunks sorts chunks by descending score. The sort is stable so
// that score ties preserve the original (insertion) order.
func SortScoredChunks(chunks []ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}

// FilterByMimeType keeps only documents whose MIME metadata matches one of
// the given types. An empty type list keeps everything.
func FilterByMimeType(docs []Document, mimeTypes ...string) []Document {
	if len(mimeTypes) == 0 {
		return docs
	}
	kept := make([]Document, 0, len(docs))
	for _, doc := range docs {
		mt := doc.Metadata[MetadataKeyMimeType]
		for _, want := range mimeTypes {
			if strings.EqualFold(mt, want) {
				kept = append(kept, doc)
				break
			}
		}
	}
	return kept
}
