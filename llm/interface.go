package llm

import "context"

// LLM is the interface all generation backends must satisfy.
type LLM interface {
	// Complete generates a completion for a given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMWithMetadata extends LLM with model information.
type LLMWithMetadata interface {
	LLM
	// Metadata returns information about the model.
	Metadata() Metadata
}

// Metadata describes a generation backend.
type Metadata struct {
	// Provider is the backend family serving the model.
	Provider string `json:"provider"`
	// ModelName is the model that actually serves requests. When a fallback
	// was substituted this is the fallback model, not the configured one.
	ModelName string `json:"model_name"`
	// ContextWindow is the maximum number of tokens the model can process.
	ContextWindow int `json:"context_window"`
	// UsedFallback reports whether a local fallback was substituted for the
	// configured model.
	UsedFallback bool `json:"used_fallback,omitempty"`
}
