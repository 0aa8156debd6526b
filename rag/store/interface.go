// Package store defines the vector index contract and its persisted layout.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autorag/autorag/schema"
)

// ErrIndexNotFound means no vector index has been persisted yet. Callers
// treat this as "no documents ingested", not a fatal error.
var ErrIndexNotFound = errors.New("vector index not found")

// ErrProviderMismatch means the embedding provider changed since the index
// was built. The index must be fully rebuilt; mixing vectors from different
// providers is never allowed.
var ErrProviderMismatch = errors.New("embedding provider mismatch")

// VectorStore is the contract for the persistent chunk index.
type VectorStore interface {
	// Add inserts chunks with externally computed embeddings.
	Add(ctx context.Context, chunks []schema.Chunk) error
	// Query returns the top-k chunks nearest to the query embedding,
	// ordered by descending similarity. An empty index yields an empty
	// slice, not an error.
	Query(ctx context.Context, queryEmbedding []float64, topK int) ([]schema.ScoredChunk, error)
	// Count returns the number of stored chunks.
	Count() int
	// Clear removes all chunks, keeping the store usable.
	Clear(ctx context.Context) error
}

// ManifestFileName is the side file persisted beside the index data. Index
// data and manifest are written and read as a pair; a load succeeds only if
// both exist.
const ManifestFileName = "manifest.json"

// Manifest records how the persisted index was built.
type Manifest struct {
	// Fingerprint identifies the embedding provider/model/dimensions that
	// produced every vector in the index.
	Fingerprint string `json:"fingerprint"`
	// Dimensions is the embedding vector size.
	Dimensions int `json:"dimensions"`
	// CreatedAt is when the index was first created.
	CreatedAt time.Time `json:"created_at"`
}

// WriteManifest persists the manifest beside the index directory.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from the index directory. A missing file
// maps to ErrIndexNotFound.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, ErrIndexNotFound
		}
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
