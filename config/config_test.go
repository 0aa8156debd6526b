package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore tests configuration persistence and versioning.
func TestStore(t *testing.T) {
	t.Run("fresh store starts from defaults", func(t *testing.T) {
		s, err := NewStore(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), s.Load())
		assert.Equal(t, int64(1), s.Version())
	})

	t.Run("save round-trips through a new store", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(dir)
		require.NoError(t, err)

		cfg := DefaultConfig()
		cfg.Model.Provider = "enterprise"
		cfg.Model.Deployment = "gpt-4"
		cfg.Retrieval.SearchOption = "hybrid"
		require.NoError(t, s.Save(cfg))

		reopened, err := NewStore(dir)
		require.NoError(t, err)
		assert.Equal(t, cfg, reopened.Load())
	})

	t.Run("save bumps the version", func(t *testing.T) {
		s, err := NewStore(t.TempDir())
		require.NoError(t, err)

		before := s.Version()
		require.NoError(t, s.Save(DefaultConfig()))
		assert.Equal(t, before+1, s.Version())
	})

	t.Run("save writes latest plus a snapshot", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, s.Save(DefaultConfig()))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)

		var hasLatest, hasSnapshot bool
		for _, entry := range entries {
			if entry.Name() == LatestFileName {
				hasLatest = true
			}
			if filepath.Ext(entry.Name()) == ".json" && entry.Name() != LatestFileName {
				hasSnapshot = true
			}
		}
		assert.True(t, hasLatest)
		assert.True(t, hasSnapshot)
	})

	t.Run("reload picks up external edits", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(dir)
		require.NoError(t, err)
		before := s.Version()

		edited := `{"model":{"provider":"local","model_name":"google/flan-t5-base"},"retrieval":{"search_option":"reranking","storage_location":"local"}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, LatestFileName), []byte(edited), 0o644))

		require.NoError(t, s.Reload())
		assert.Equal(t, "reranking", s.Load().Retrieval.SearchOption)
		assert.Equal(t, before+1, s.Version())
	})

	t.Run("reload of identical content keeps the version", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, s.Save(DefaultConfig()))

		before := s.Version()
		require.NoError(t, s.Reload())
		assert.Equal(t, before, s.Version())
	})
}

// TestLoadApp tests environment parsing.
func TestLoadApp(t *testing.T) {
	t.Setenv("AUTORAG_DATA_DIR", "/tmp/autorag-data")
	t.Setenv("AUTORAG_COLLECTION", "docs")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := LoadApp()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/autorag-data", cfg.DataDir)
	assert.Equal(t, "docs", cfg.Collection)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, "autorag-index", cfg.MinioBucket)
}
