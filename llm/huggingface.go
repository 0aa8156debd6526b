package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// HuggingFaceInferenceAPIURL is the default HuggingFace Inference API
// endpoint.
const HuggingFaceInferenceAPIURL = "https://api-inference.huggingface.co"

// gatedModelMarkers name model families that require privileged hub access.
// Requests for these are served by the local fallback instead of failing.
var gatedModelMarkers = []string{"mixtral", "mistralai/"}

// HubLLM calls the HuggingFace Inference API. When the credential is absent,
// or the requested model is known to be gated, it transparently substitutes
// a local fallback model; the substitution is observable through Metadata.
type HubLLM struct {
	apiKey       string
	baseURL      string
	model        string
	maxNewTokens int
	temperature  float32
	httpClient   *http.Client
	logger       *slog.Logger

	// fallback serves requests instead of the hub when set.
	fallback *LocalLLM
}

// HubOption configures a HubLLM.
type HubOption func(*HubLLM)

// WithHubAPIKey sets the API key.
func WithHubAPIKey(apiKey string) HubOption {
	return func(h *HubLLM) {
		h.apiKey = apiKey
	}
}

// WithHubBaseURL sets the base URL.
func WithHubBaseURL(baseURL string) HubOption {
	return func(h *HubLLM) {
		h.baseURL = baseURL
	}
}

// WithHubModel sets the model.
func WithHubModel(model string) HubOption {
	return func(h *HubLLM) {
		h.model = model
	}
}

// WithHubMaxNewTokens sets the max tokens to generate.
func WithHubMaxNewTokens(n int) HubOption {
	return func(h *HubLLM) {
		h.maxNewTokens = n
	}
}

// WithHubTemperature sets the sampling temperature.
func WithHubTemperature(t float32) HubOption {
	return func(h *HubLLM) {
		h.temperature = t
	}
}

// WithHubHTTPClient sets a custom HTTP client.
func WithHubHTTPClient(client *http.Client) HubOption {
	return func(h *HubLLM) {
		h.httpClient = client
	}
}

// WithHubFallback overrides the local fallback client used for gated or
// credential-less requests.
func WithHubFallback(fallback *LocalLLM) HubOption {
	return func(h *HubLLM) {
		h.fallback = fallback
	}
}

// NewHubLLM creates a HuggingFace hub client. The API key falls back to the
// HUGGINGFACE_API_KEY environment variable.
func NewHubLLM(opts ...HubOption) *HubLLM {
	h := &HubLLM{
		apiKey:       os.Getenv("HUGGINGFACE_API_KEY"),
		baseURL:      HuggingFaceInferenceAPIURL,
		model:        "google/flan-t5-large",
		maxNewTokens: 256,
		temperature:  0.7,
		httpClient:   http.DefaultClient,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	needsFallback := h.apiKey == "" || isGatedModel(h.model)
	if !needsFallback {
		h.fallback = nil
	} else {
		if h.fallback == nil {
			h.fallback = NewLocalLLM(
				WithLocalModel(DefaultLocalModel),
				WithLocalMaxNewTokens(h.maxNewTokens),
				WithLocalTemperature(h.temperature),
			)
		}
		reason := "missing credential"
		if isGatedModel(h.model) {
			reason = "gated model"
		}
		h.logger.Warn("substituting local fallback for hub model",
			"model", h.model, "fallback", h.fallback.model, "reason", reason)
	}

	return h
}

// isGatedModel reports whether the model requires privileged hub access.
func isGatedModel(model string) bool {
	name := strings.ToLower(model)
	for _, marker := range gatedModelMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// hubGenerateRequest is a text-generation request to the Inference API.
type hubGenerateRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options,omitempty"`
}

// hubGenerateResponse is one candidate in the Inference API response.
type hubGenerateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Complete generates a completion for a given prompt.
func (h *HubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if h.fallback != nil {
		h.logger.Info("delegating completion to local fallback",
			"model", h.model, "fallback", h.fallback.model)
		return h.fallback.Complete(ctx, prompt)
	}

	h.logger.Info("Complete called", "model", h.model, "prompt_len", len(prompt))

	reqBody := hubGenerateRequest{
		Inputs: prompt,
		Parameters: map[string]interface{}{
			"max_new_tokens":   h.maxNewTokens,
			"temperature":      h.temperature,
			"return_full_text": false,
		},
	}
	reqBody.Options.WaitForModel = true

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("%w: hub request: %v", ErrGenerationFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrGenerationFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: hub API error (%d): %s", ErrGenerationFailure, resp.StatusCode, string(respBody))
	}

	var candidates []hubGenerateResponse
	if err := json.Unmarshal(respBody, &candidates); err != nil || len(candidates) == 0 {
		// Some models return a single object instead of a list.
		var single hubGenerateResponse
		if err := json.Unmarshal(respBody, &single); err != nil {
			return "", fmt.Errorf("%w: failed to parse response: %s", ErrGenerationFailure, string(respBody))
		}
		return strings.TrimSpace(single.GeneratedText), nil
	}

	return strings.TrimSpace(candidates[0].GeneratedText), nil
}

// Metadata returns information about the model that actually serves
// requests, reporting fallback substitution when it happened.
func (h *HubLLM) Metadata() Metadata {
	if h.fallback != nil {
		md := h.fallback.Metadata()
		md.UsedFallback = true
		return md
	}
	return Metadata{
		Provider:      "huggingface",
		ModelName:     h.model,
		ContextWindow: 2048,
	}
}

// Ensure HubLLM implements the interfaces.
var _ LLM = (*HubLLM)(nil)
var _ LLMWithMetadata = (*HubLLM)(nil)
