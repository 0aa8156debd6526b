package embedding

import (
	"log/slog"
	"os"
)

// Provider names accepted by model configuration.
const (
	ProviderLocal      = "local"
	ProviderHostedFree = "hosted_free"
	ProviderHostedPaid = "hosted_paid"
	ProviderEnterprise = "enterprise"
)

// ProviderConfig selects and parameterizes an embedding backend. Fields
// mirror the persisted model configuration; unused fields stay empty.
type ProviderConfig struct {
	Provider   string
	ModelName  string
	Credential string
	Endpoint   string
	Deployment string
	APIVersion string
}

// BuildModel resolves an embedding model from configuration, walking a
// fallback chain so ingestion never hard-fails on embeddings:
// Azure (enterprise with an embedding deployment) -> HuggingFace -> OpenAI ->
// degenerate token-hash fallback. The resolved choice is logged; changing the
// resolved provider changes the index fingerprint and forces a rebuild.
func BuildModel(cfg ProviderConfig) EmbeddingModelWithInfo {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.Provider == ProviderEnterprise && cfg.Endpoint != "" && cfg.Credential != "" {
		if IsEmbeddingDeployment(cfg.Deployment) {
			model, err := NewAzureEmbedding(cfg.Endpoint, cfg.Credential, cfg.Deployment, cfg.APIVersion)
			if err == nil {
				logger.Info("embedding provider selected", "provider", "azure", "deployment", cfg.Deployment)
				return model
			}
			logger.Warn("azure embedding unavailable", "error", err)
		} else {
			logger.Warn("azure deployment cannot embed, falling through", "deployment", cfg.Deployment)
		}
	}

	if key := os.Getenv("HUGGINGFACE_API_KEY"); key != "" || cfg.Provider == ProviderLocal || cfg.Provider == ProviderHostedFree {
		model := NewHuggingFaceEmbedding(WithHuggingFaceAPIKey(key))
		logger.Info("embedding provider selected", "provider", "huggingface", "model", model.Info().ModelName)
		return model
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		model := NewOpenAIEmbedding(key, "")
		logger.Info("embedding provider selected", "provider", "openai", "model", model.Info().ModelName)
		return model
	}

	logger.Warn("no embedding backend configured, using degenerate fallback")
	return NewFallbackEmbedding()
}
