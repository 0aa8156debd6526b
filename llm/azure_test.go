package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIsChatDeployment tests chat deployment detection.
func TestIsChatDeployment(t *testing.T) {
	assert.True(t, IsChatDeployment("gpt-4"))
	assert.True(t, IsChatDeployment("my-gpt-35-turbo"))
	assert.True(t, IsChatDeployment("GPT4-prod"))
	assert.True(t, IsChatDeployment("gpt-4o-mini"))
	assert.False(t, IsChatDeployment("davinci-002"))
	assert.False(t, IsChatDeployment("text-embedding-ada-002"))
}

// TestNewAzureLLM tests Azure backend construction.
func TestNewAzureLLM(t *testing.T) {
	t.Run("embedding-only deployment cannot serve generation", func(t *testing.T) {
		_, err := NewAzureLLM("https://example.openai.azure.com", "key", "text-embedding-ada-002", "")
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	})

	t.Run("ada marker alone also rejects", func(t *testing.T) {
		_, err := NewAzureLLM("https://example.openai.azure.com", "key", "my-ada-deployment", "")
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	})

	t.Run("missing parameters are rejected", func(t *testing.T) {
		_, err := NewAzureLLM("", "key", "gpt-4", "")
		assert.ErrorIs(t, err, ErrBackendUnavailable)

		_, err = NewAzureLLM("https://example.openai.azure.com", "", "gpt-4", "")
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	})

	t.Run("chat deployment routes to the chat API", func(t *testing.T) {
		a, err := NewAzureLLM("https://example.openai.azure.com", "key", "gpt-4", "")
		require.NoError(t, err)
		assert.True(t, a.isChat)
	})

	t.Run("completion deployment routes to the completion API", func(t *testing.T) {
		a, err := NewAzureLLM("https://example.openai.azure.com", "key", "davinci-002", "")
		require.NoError(t, err)
		assert.False(t, a.isChat)
	})

	t.Run("deployment with a chat marker beats the embedding marker", func(t *testing.T) {
		// A name like gpt-4-embedding-test is still a chat deployment.
		a, err := NewAzureLLM("https://example.openai.azure.com", "key", "gpt-4-embedding-test", "")
		require.NoError(t, err)
		assert.True(t, a.isChat)
	})
}

// TestBuild tests provider resolution.
func TestBuild(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "")

	t.Run("local", func(t *testing.T) {
		backend, err := Build(ProviderConfig{Provider: ProviderLocal, ModelName: "google/flan-t5-base"})
		require.NoError(t, err)
		assert.IsType(t, &LocalLLM{}, backend)
	})

	t.Run("hosted providers build the hub client", func(t *testing.T) {
		backend, err := Build(ProviderConfig{Provider: ProviderHostedFree, ModelName: "google/flan-t5-large"})
		require.NoError(t, err)
		assert.IsType(t, &HubLLM{}, backend)
	})

	t.Run("enterprise validates the deployment", func(t *testing.T) {
		_, err := Build(ProviderConfig{
			Provider:   ProviderEnterprise,
			Endpoint:   "https://example.openai.azure.com",
			Credential: "key",
			Deployment: "text-embedding-ada-002",
		})
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := Build(ProviderConfig{Provider: "carrier-pigeon"})
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	})
}
