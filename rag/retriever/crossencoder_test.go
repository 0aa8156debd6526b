package retriever

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHFCrossEncoder tests pair scoring through the inference pipeline.
func TestHFCrossEncoder(t *testing.T) {
	ctx := context.Background()

	t.Run("scores align with passages", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Contains(t, r.URL.Path, "/pipeline/sentence-similarity/")

			var req crossEncoderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "how deep is the ocean", req.Inputs.SourceSentence)
			require.Len(t, req.Inputs.Sentences, 2)

			json.NewEncoder(w).Encode([]float64{0.2, 0.9})
		}))
		defer srv.Close()

		enc := NewHFCrossEncoder(WithCrossEncoderBaseURL(srv.URL))
		scores, err := enc.Score(ctx, "how deep is the ocean", []string{"the sky", "the ocean"})
		require.NoError(t, err)
		assert.Equal(t, []float64{0.2, 0.9}, scores)
	})

	t.Run("score count mismatch is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]float64{0.5})
		}))
		defer srv.Close()

		enc := NewHFCrossEncoder(WithCrossEncoderBaseURL(srv.URL))
		_, err := enc.Score(ctx, "q", []string{"a", "b"})
		assert.Error(t, err)
	})

	t.Run("empty passages short-circuit", func(t *testing.T) {
		enc := NewHFCrossEncoder()
		scores, err := enc.Score(ctx, "q", nil)
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("API errors surface", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model gated", http.StatusForbidden)
		}))
		defer srv.Close()

		enc := NewHFCrossEncoder(WithCrossEncoderBaseURL(srv.URL))
		_, err := enc.Score(ctx, "q", []string{"a"})
		assert.Error(t, err)
	})
}
