package llm

import (
	"fmt"
	"strings"
)

// Provider names accepted by model configuration.
const (
	ProviderLocal      = "local"
	ProviderHostedFree = "hosted_free"
	ProviderHostedPaid = "hosted_paid"
	ProviderEnterprise = "enterprise"
)

// ProviderConfig selects and parameterizes a generation backend. Fields
// mirror the persisted model configuration; unused fields stay empty.
type ProviderConfig struct {
	Provider   string
	ModelName  string
	Credential string
	Endpoint   string
	Deployment string
	APIVersion string
	// LocalURL points at the self-hosted generation server.
	LocalURL string
}

// Build resolves a generation backend from configuration. Unsupported
// provider strings and unusable enterprise deployments surface as
// ErrBackendUnavailable; hosted-hub credential gaps are absorbed by the local
// fallback inside HubLLM.
func Build(cfg ProviderConfig) (LLMWithMetadata, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderLocal:
		opts := []LocalOption{}
		if cfg.ModelName != "" {
			opts = append(opts, WithLocalModel(cfg.ModelName))
		}
		if cfg.LocalURL != "" {
			opts = append(opts, WithLocalBaseURL(cfg.LocalURL))
		}
		return NewLocalLLM(opts...), nil

	case ProviderHostedFree, ProviderHostedPaid:
		opts := []HubOption{WithHubAPIKey(cfg.Credential)}
		if cfg.ModelName != "" {
			opts = append(opts, WithHubModel(cfg.ModelName))
		}
		if cfg.LocalURL != "" {
			opts = append(opts, WithHubFallback(NewLocalLLM(WithLocalBaseURL(cfg.LocalURL))))
		}
		return NewHubLLM(opts...), nil

	case ProviderEnterprise:
		return NewAzureLLM(cfg.Endpoint, cfg.Credential, cfg.Deployment, cfg.APIVersion)

	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrBackendUnavailable, cfg.Provider)
	}
}
