package embedding

import "fmt"

// EmbeddingInfo describes an embedding model's output.
type EmbeddingInfo struct {
	// Provider is the backend family serving the model.
	Provider string `json:"provider"`
	// ModelName is the name/identifier of the model.
	ModelName string `json:"model_name"`
	// Dimensions is the embedding vector size.
	Dimensions int `json:"dimensions"`
	// MaxTokens is the maximum input length.
	MaxTokens int `json:"max_tokens"`
}

// Fingerprint returns a stable identifier for the provider/model pair.
// It is persisted next to the vector index so that provider drift can be
// detected on load instead of silently mixing incompatible vectors.
func (i EmbeddingInfo) Fingerprint() string {
	return fmt.Sprintf("%s/%s/%d", i.Provider, i.ModelName, i.Dimensions)
}

// DefaultEmbeddingInfo returns conservative defaults for unknown models.
func DefaultEmbeddingInfo(provider, model string) EmbeddingInfo {
	return EmbeddingInfo{
		Provider:   provider,
		ModelName:  model,
		Dimensions: 384,
		MaxTokens:  512,
	}
}
