// Package chromem implements the vector store on chromem-go with a
// persisted manifest side file for provider-drift detection.
package chromem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/autorag/autorag/rag/store"
	"github.com/autorag/autorag/schema"
)

// dataSubdir holds the chromem database under the index directory, beside
// the manifest.
const dataSubdir = "chromem"

// Store is a persistent vector store backed by chromem-go. Embeddings are
// computed externally and passed in explicitly; the collection has no
// embedding function of its own.
type Store struct {
	dir        string
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	manifest   store.Manifest
}

// Open loads an existing index from dir. Both the chromem data and the
// manifest side file must exist, otherwise ErrIndexNotFound; a manifest
// fingerprint differing from the given one is ErrProviderMismatch.
func Open(dir, collectionName, fingerprint string) (*Store, error) {
	manifest, err := store.ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	dataDir := filepath.Join(dir, dataSubdir)
	if _, err := os.Stat(dataDir); err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrIndexNotFound
		}
		return nil, fmt.Errorf("failed to stat index data: %w", err)
	}

	if manifest.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: index built with %q, current provider is %q",
			store.ErrProviderMismatch, manifest.Fingerprint, fingerprint)
	}

	return open(dir, collectionName, manifest)
}

// Create initializes a fresh, empty index at dir, removing any previous
// data. Used both for first-time setup and for forced rebuilds after a
// provider change.
func Create(dir, collectionName, fingerprint string, dimensions int) (*Store, error) {
	if err := os.RemoveAll(filepath.Join(dir, dataSubdir)); err != nil {
		return nil, fmt.Errorf("failed to remove previous index data: %w", err)
	}

	manifest := store.Manifest{
		Fingerprint: fingerprint,
		Dimensions:  dimensions,
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.WriteManifest(dir, manifest); err != nil {
		return nil, err
	}

	return open(dir, collectionName, manifest)
}

func open(dir, collectionName string, manifest store.Manifest) (*Store, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(dir, dataSubdir), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem db: %w", err)
	}

	// nil embedding function: embeddings are computed by the pipeline and
	// passed to Add/Query explicitly.
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}

	return &Store{
		dir:        dir,
		db:         db,
		collection: collection,
		name:       collectionName,
		manifest:   manifest,
	}, nil
}

// Dir returns the index directory.
func (s *Store) Dir() string {
	return s.dir
}

// Manifest returns the persisted index manifest.
func (s *Store) Manifest() store.Manifest {
	return s.manifest
}

// Add inserts chunks with externally computed embeddings.
func (s *Store) Add(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}

		embedding32 := make([]float32, len(chunk.Embedding))
		for j, v := range chunk.Embedding {
			embedding32[j] = float32(v)
		}

		meta := make(map[string]string, len(chunk.Metadata))
		for k, v := range chunk.Metadata {
			meta[k] = v
		}

		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Metadata:  meta,
			Embedding: embedding32,
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents to chromem collection: %w", err)
	}

	return nil
}

// Query returns the top-k chunks nearest to the query embedding by cosine
// similarity, descending. k is clamped to the collection size; an empty
// collection yields an empty result.
func (s *Store) Query(ctx context.Context, queryEmbedding []float64, topK int) ([]schema.ScoredChunk, error) {
	count := s.collection.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	embedding32 := make([]float32, len(queryEmbedding))
	for i, v := range queryEmbedding {
		embedding32[i] = float32(v)
	}

	res, err := s.collection.QueryEmbedding(ctx, embedding32, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromem collection: %w", err)
	}

	chunks := make([]schema.ScoredChunk, len(res))
	for i, doc := range res {
		meta := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		chunks[i] = schema.ScoredChunk{
			Chunk: schema.Chunk{
				ID:       doc.ID,
				Text:     doc.Content,
				Metadata: meta,
			},
			Score: float64(doc.Similarity),
		}
	}

	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Clear removes all chunks, keeping the store usable.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	collection, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	s.collection = collection

	return nil
}

// Ensure Store implements VectorStore.
var _ store.VectorStore = (*Store)(nil)
