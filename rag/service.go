package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"

	"github.com/autorag/autorag/config"
	"github.com/autorag/autorag/embedding"
	"github.com/autorag/autorag/llm"
	"github.com/autorag/autorag/rag/retriever"
	"github.com/autorag/autorag/rag/store"
	chromemstore "github.com/autorag/autorag/rag/store/chromem"
	"github.com/autorag/autorag/rag/store/remote"
	"github.com/autorag/autorag/schema"
	"github.com/autorag/autorag/textsplitter"
)

// Storage location names accepted by ingestion and query options.
const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

// indexSubdir holds the persisted index under the data directory.
const indexSubdir = "index"

// User-facing messages for recoverable service-level failures. The query
// path degrades to text rather than surfacing internal errors.
const (
	msgNoIndex = "No vector store available. Please ingest documents first."

	msgProviderMismatch = "The embedding provider has changed since the index was built. " +
		"Please re-ingest your documents to rebuild the index."

	msgBackendUnavailable = "The configured language model backend is unavailable. " +
		"Please check your model configuration."
)

// Service owns the index lifecycle and a cache of built pipelines. Pipelines
// are cached under a key derived from the index version, the config version,
// and the storage location, so any ingestion or configuration change makes
// every cached pipeline unreachable and the next query builds a fresh one.
type Service struct {
	app         config.AppConfig
	configStore *config.Store
	pipelines   *gocache.Cache

	// mu serializes index mutation. Queries run lock-free; the version
	// counter is atomic so they can read it while an ingest bumps it.
	mu           sync.Mutex
	indexVersion atomic.Int64

	logger *slog.Logger
}

// NewService creates the RAG service, loading persisted configuration.
func NewService(app config.AppConfig) (*Service, error) {
	configStore, err := config.NewStore(app.ConfigDir)
	if err != nil {
		return nil, err
	}

	s := &Service{
		app:         app,
		configStore: configStore,
		pipelines:   gocache.New(gocache.NoExpiration, 0),
		logger:      slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	s.indexVersion.Store(1)

	return s, nil
}

// ConfigStore exposes the persisted configuration store.
func (s *Service) ConfigStore() *config.Store {
	return s.configStore
}

// UpdateConfig persists a new configuration and synchronously rebuilds the
// pipeline, so an unusable configuration surfaces at save time rather than
// on the next query.
func (s *Service) UpdateConfig(ctx context.Context, cfg config.Config) error {
	if err := s.configStore.Save(cfg); err != nil {
		return err
	}
	return s.Recreate(ctx)
}

// InvalidateConfig drops cached pipelines after an external config reload.
// Wired as the config watcher's change callback.
func (s *Service) InvalidateConfig() {
	s.pipelines.Flush()
	s.logger.Info("cached pipelines invalidated after config change")
}

func (s *Service) indexDir() string {
	return filepath.Join(s.app.DataDir, indexSubdir)
}

// pipelineKey identifies a cached pipeline. The storage location is part of
// the key so a remote-storage query never hits a pipeline that was built
// without the remote sync-down.
func (s *Service) pipelineKey(storageLocation string) string {
	return fmt.Sprintf("%d:%d:%s", s.indexVersion.Load(), s.configStore.Version(), storageLocation)
}

// embeddingConfig maps the persisted model config onto the embedding
// provider chain.
func embeddingConfig(mc config.ModelConfig) embedding.ProviderConfig {
	return embedding.ProviderConfig{
		Provider:   mc.Provider,
		ModelName:  mc.ModelName,
		Credential: mc.Credential,
		Endpoint:   mc.Endpoint,
		Deployment: mc.Deployment,
		APIVersion: mc.APIVersion,
	}
}

func (s *Service) llmConfig(mc config.ModelConfig) llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:   mc.Provider,
		ModelName:  mc.ModelName,
		Credential: mc.Credential,
		Endpoint:   mc.Endpoint,
		Deployment: mc.Deployment,
		APIVersion: mc.APIVersion,
		LocalURL:   s.app.LocalLLMURL,
	}
}

// remoteStore builds the object store client from app settings.
func (s *Service) remoteStore() (*remote.Store, error) {
	return remote.New(remote.Config{
		Endpoint:  s.app.MinioEndpoint,
		AccessKey: s.app.MinioAccessKey,
		SecretKey: s.app.MinioSecretKey,
		Bucket:    s.app.MinioBucket,
		UseSSL:    s.app.MinioUseSSL,
	})
}

// getPipeline returns the cached pipeline for the current index and config
// versions, building and caching one when absent.
func (s *Service) getPipeline(ctx context.Context, storageLocation string) (*Pipeline, error) {
	key := s.pipelineKey(storageLocation)
	if cached, ok := s.pipelines.Get(key); ok {
		return cached.(*Pipeline), nil
	}

	pipeline, err := s.buildPipeline(ctx, storageLocation)
	if err != nil {
		return nil, err
	}

	s.pipelines.Set(key, pipeline, gocache.NoExpiration)
	s.logger.Info("pipeline built", "key", key, "storage", storageLocation)
	return pipeline, nil
}

func (s *Service) buildPipeline(ctx context.Context, storageLocation string) (*Pipeline, error) {
	cfg := s.configStore.Load()

	if storageLocation == StorageRemote {
		if err := s.syncRemoteIndex(ctx); err != nil {
			return nil, err
		}
	}

	model := embedding.BuildModel(embeddingConfig(cfg.Model))

	generator, err := llm.Build(s.llmConfig(cfg.Model))
	if err != nil {
		return nil, err
	}

	vs, err := chromemstore.Open(s.indexDir(), s.app.Collection, model.Info().Fingerprint())
	if err != nil {
		return nil, err
	}

	opts := []PipelineOption{}
	if s.app.HuggingFaceAPIKey != "" {
		encoderOpts := []retriever.CrossEncoderOption{
			retriever.WithCrossEncoderAPIKey(s.app.HuggingFaceAPIKey),
		}
		if s.app.CrossEncoderModel != "" {
			encoderOpts = append(encoderOpts, retriever.WithCrossEncoderModel(s.app.CrossEncoderModel))
		}
		opts = append(opts, WithPipelineCrossEncoder(retriever.NewHFCrossEncoder(encoderOpts...)))
	}

	return NewPipeline(model, vs, generator, opts...), nil
}

// syncRemoteIndex pulls the remote index down before opening it. When the
// remote is unavailable but a local copy exists, the local copy serves the
// query and the failure is only logged.
func (s *Service) syncRemoteIndex(ctx context.Context) error {
	pull := func() error {
		rs, err := s.remoteStore()
		if err != nil {
			return err
		}
		return rs.Download(ctx, s.indexDir())
	}

	err := pull()
	if err == nil || errors.Is(err, store.ErrIndexNotFound) {
		return err
	}

	if _, localErr := store.ReadManifest(s.indexDir()); localErr == nil {
		s.logger.Warn("remote index unavailable, using local copy", "error", err)
		return nil
	}

	return err
}

// QueryOptions control a single query. Empty fields fall back to the
// persisted retrieval configuration.
type QueryOptions struct {
	// SearchMode is semantic, hybrid, or reranking.
	SearchMode string
	// StorageLocation is local or remote.
	StorageLocation string
	// IncludeSources adds source snippets to the answer.
	IncludeSources bool
}

// Query answers a question over the ingested documents. Recoverable
// failures (no index yet, provider drift, unreachable backends or remote
// storage) degrade to an explanatory answer; only structurally invalid
// requests return an error.
func (s *Service) Query(ctx context.Context, question string, opts QueryOptions) (Answer, error) {
	if question == "" {
		return Answer{}, fmt.Errorf("question is required")
	}

	retrieval := s.configStore.Load().Retrieval
	mode := opts.SearchMode
	if mode == "" {
		mode = retrieval.SearchOption
	}
	storage := opts.StorageLocation
	if storage == "" {
		storage = retrieval.StorageLocation
	}

	pipeline, err := s.getPipeline(ctx, storage)
	if err != nil {
		return s.degradeAnswer(err)
	}

	answer, err := pipeline.Query(ctx, question, retriever.SearchMode(mode), opts.IncludeSources)
	if err != nil {
		return s.degradeAnswer(err)
	}

	return answer, nil
}

// degradeAnswer converts recoverable pipeline failures into explanatory
// answers. Anything outside the known taxonomy surfaces as an error.
func (s *Service) degradeAnswer(err error) (Answer, error) {
	switch {
	case errors.Is(err, store.ErrIndexNotFound):
		return Answer{Text: msgNoIndex}, nil

	case errors.Is(err, store.ErrProviderMismatch):
		s.logger.Warn("embedding provider mismatch", "error", err)
		return Answer{Text: msgProviderMismatch}, nil

	case errors.Is(err, remote.ErrRemoteStorage):
		s.logger.Error("remote storage failure", "error", err)
		return Answer{Text: fmt.Sprintf(
			"Remote index storage is unavailable: %v. Please check your storage settings or use local storage.", err)}, nil

	case errors.Is(err, llm.ErrBackendUnavailable):
		s.logger.Error("backend unavailable", "error", err)
		return Answer{Text: msgBackendUnavailable}, nil

	case errors.Is(err, llm.ErrGenerationFailure):
		s.logger.Error("generation failure", "error", err)
		return Answer{Text: ApologyGeneration}, nil

	default:
		return Answer{}, err
	}
}

// IngestOptions control an ingestion run.
type IngestOptions struct {
	// Replace rebuilds the index from scratch instead of appending.
	Replace bool
	// MimeTypes keeps only documents with a matching MIME metadata value.
	// Empty keeps everything.
	MimeTypes []string
	// StorageLocation mirrors the index to remote storage after ingestion
	// when set to remote.
	StorageLocation string
}

// Ingest chunks, embeds, and indexes documents, then rebuilds the pipeline.
// Returns the number of chunks added.
func (s *Service) Ingest(ctx context.Context, docs []schema.Document, opts IngestOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs = schema.FilterByMimeType(docs, opts.MimeTypes...)
	if len(docs) == 0 {
		s.logger.Warn("nothing to ingest after filtering")
		return 0, nil
	}

	splitter, err := textsplitter.NewSentenceSplitter()
	if err != nil {
		return 0, fmt.Errorf("failed to create splitter: %w", err)
	}

	var chunks []schema.Chunk
	for _, doc := range docs {
		for _, piece := range splitter.SplitText(doc.Text) {
			meta := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			chunks = append(chunks, schema.NewChunk(piece, meta))
		}
	}
	if len(chunks) == 0 {
		s.logger.Warn("documents produced no chunks")
		return 0, nil
	}

	cfg := s.configStore.Load()
	model := embedding.BuildModel(embeddingConfig(cfg.Model))
	info := model.Info()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedding.BatchEmbed(ctx, model, texts, func(processed, total int) {
		if processed%50 == 0 || processed == total {
			s.logger.Info("embedding progress", "processed", processed, "total", total)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	vs, err := s.openForWrite(info, opts.Replace)
	if err != nil {
		return 0, err
	}

	if err := vs.Add(ctx, chunks); err != nil {
		return 0, err
	}

	if opts.StorageLocation == StorageRemote {
		rs, err := s.remoteStore()
		if err != nil {
			return 0, err
		}
		if err := rs.Upload(ctx, s.indexDir()); err != nil {
			return 0, err
		}
	}

	version := s.indexVersion.Add(1)
	s.pipelines.Flush()

	s.logger.Info("ingestion complete",
		"documents", len(docs), "chunks", len(chunks), "index_version", version, "fingerprint", info.Fingerprint())

	// Rebuild eagerly so the first query after ingestion is served from a
	// warm pipeline. An error here only delays the rebuild to query time.
	if _, err := s.getPipeline(ctx, StorageLocal); err != nil {
		s.logger.Warn("eager pipeline rebuild failed", "error", err)
	}

	return len(chunks), nil
}

// openForWrite opens the index for ingestion, creating or rebuilding it when
// absent, explicitly replaced, or built by a different embedding provider.
func (s *Service) openForWrite(info embedding.EmbeddingInfo, replace bool) (store.VectorStore, error) {
	dir := s.indexDir()
	fingerprint := info.Fingerprint()

	if !replace {
		vs, err := chromemstore.Open(dir, s.app.Collection, fingerprint)
		if err == nil {
			return vs, nil
		}
		if !errors.Is(err, store.ErrIndexNotFound) && !errors.Is(err, store.ErrProviderMismatch) {
			return nil, err
		}
		if errors.Is(err, store.ErrProviderMismatch) {
			s.logger.Warn("embedding provider changed, rebuilding index", "fingerprint", fingerprint)
		}
	}

	return chromemstore.Create(dir, s.app.Collection, fingerprint, info.Dimensions)
}

// Recreate drops every cached pipeline and rebuilds one for the current
// configuration. Calling it repeatedly without intervening changes yields an
// equivalent pipeline each time.
func (s *Service) Recreate(ctx context.Context) error {
	s.pipelines.Flush()

	storage := s.configStore.Load().Retrieval.StorageLocation
	_, err := s.getPipeline(ctx, storage)
	if err != nil && !errors.Is(err, store.ErrIndexNotFound) {
		return err
	}

	s.logger.Info("pipeline recreated", "key", s.pipelineKey(storage))
	return nil
}
