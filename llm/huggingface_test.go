package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHubLLMFallback tests local substitution for unusable hub requests.
func TestHubLLMFallback(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "")

	t.Run("missing credential substitutes the local fallback", func(t *testing.T) {
		h := NewHubLLM(WithHubModel("google/flan-t5-large"))
		md := h.Metadata()
		assert.True(t, md.UsedFallback)
		assert.Equal(t, DefaultLocalModel, md.ModelName)
	})

	t.Run("gated model substitutes even with a credential", func(t *testing.T) {
		h := NewHubLLM(WithHubAPIKey("hf_token"), WithHubModel("mistralai/Mixtral-8x7B-Instruct-v0.1"))
		assert.True(t, h.Metadata().UsedFallback)
	})

	t.Run("usable hub model reports no fallback", func(t *testing.T) {
		h := NewHubLLM(WithHubAPIKey("hf_token"), WithHubModel("google/flan-t5-large"))
		md := h.Metadata()
		assert.False(t, md.UsedFallback)
		assert.Equal(t, "google/flan-t5-large", md.ModelName)
	})

	t.Run("fallback inherits the configured generation parameters", func(t *testing.T) {
		h := NewHubLLM(
			WithHubModel("mistralai/Mixtral-8x7B-Instruct-v0.1"),
			WithHubMaxNewTokens(512),
			WithHubTemperature(0.2),
		)
		require.NotNil(t, h.fallback)
		assert.Equal(t, 512, h.fallback.maxNewTokens)
		assert.Equal(t, float32(0.2), h.fallback.temperature)
	})

	t.Run("fallback requests carry the hub parameters", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req localGenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, float64(512), req.Parameters["max_new_tokens"])
			json.NewEncoder(w).Encode(localGenerateResponse{GeneratedText: "ok"})
		}))
		defer srv.Close()
		t.Setenv("LOCAL_LLM_URL", srv.URL)

		h := NewHubLLM(
			WithHubModel("mistralai/Mixtral-8x7B-Instruct-v0.1"),
			WithHubMaxNewTokens(512),
		)
		out, err := h.Complete(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})

	t.Run("fallback serves completions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/generate", r.URL.Path)
			json.NewEncoder(w).Encode(localGenerateResponse{GeneratedText: "from the fallback"})
		}))
		defer srv.Close()

		h := NewHubLLM(
			WithHubModel("mistralai/Mixtral-8x7B-Instruct-v0.1"),
			WithHubFallback(NewLocalLLM(WithLocalBaseURL(srv.URL))),
		)
		out, err := h.Complete(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, "from the fallback", out)
	})
}

// TestHubLLMComplete tests hub generation responses.
func TestHubLLMComplete(t *testing.T) {
	t.Run("list response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/models/google/flan-t5-large", r.URL.Path)
			require.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode([]hubGenerateResponse{{GeneratedText: " hub answer "}})
		}))
		defer srv.Close()

		h := NewHubLLM(WithHubAPIKey("hf_token"), WithHubBaseURL(srv.URL), WithHubModel("google/flan-t5-large"))
		out, err := h.Complete(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "hub answer", out)
	})

	t.Run("single object response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(hubGenerateResponse{GeneratedText: "single"})
		}))
		defer srv.Close()

		h := NewHubLLM(WithHubAPIKey("hf_token"), WithHubBaseURL(srv.URL), WithHubModel("google/flan-t5-large"))
		out, err := h.Complete(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "single", out)
	})

	t.Run("hub errors wrap the generation failure sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		h := NewHubLLM(WithHubAPIKey("hf_token"), WithHubBaseURL(srv.URL), WithHubModel("google/flan-t5-large"))
		_, err := h.Complete(context.Background(), "question")
		assert.ErrorIs(t, err, ErrGenerationFailure)
	})
}
