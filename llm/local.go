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

// LocalDefaultURL is the default endpoint of the self-hosted generation
// server.
const LocalDefaultURL = "http://localhost:8081"

// DefaultLocalModel is the model served when nothing else is configured.
// It is also the fallback target when a hosted model is unreachable.
const DefaultLocalModel = "google/flan-t5-base"

// LocalLLM calls a self-hosted text-generation server over HTTP. Requests
// carry a device hint (cuda when a GPU is visible, cpu otherwise). Output
// handling depends on the model architecture: encoder-decoder models return
// their output verbatim, decoder-only models echo the prompt and need the
// prefix stripped.
type LocalLLM struct {
	baseURL      string
	model        string
	device       string
	maxNewTokens int
	temperature  float32
	httpClient   *http.Client
	logger       *slog.Logger
}

// LocalOption configures a LocalLLM.
type LocalOption func(*LocalLLM)

// WithLocalBaseURL sets the generation server URL.
func WithLocalBaseURL(baseURL string) LocalOption {
	return func(l *LocalLLM) {
		l.baseURL = baseURL
	}
}

// WithLocalModel sets the model.
func WithLocalModel(model string) LocalOption {
	return func(l *LocalLLM) {
		l.model = model
	}
}

// WithLocalDevice overrides the detected device hint.
func WithLocalDevice(device string) LocalOption {
	return func(l *LocalLLM) {
		l.device = device
	}
}

// WithLocalMaxNewTokens sets the max tokens to generate.
func WithLocalMaxNewTokens(n int) LocalOption {
	return func(l *LocalLLM) {
		l.maxNewTokens = n
	}
}

// WithLocalTemperature sets the sampling temperature.
func WithLocalTemperature(t float32) LocalOption {
	return func(l *LocalLLM) {
		l.temperature = t
	}
}

// WithLocalHTTPClient sets a custom HTTP client.
func WithLocalHTTPClient(client *http.Client) LocalOption {
	return func(l *LocalLLM) {
		l.httpClient = client
	}
}

// NewLocalLLM creates a client for the self-hosted generation server.
func NewLocalLLM(opts ...LocalOption) *LocalLLM {
	baseURL := os.Getenv("LOCAL_LLM_URL")
	if baseURL == "" {
		baseURL = LocalDefaultURL
	}

	l := &LocalLLM{
		baseURL:      baseURL,
		model:        DefaultLocalModel,
		device:       detectDevice(),
		maxNewTokens: 256,
		temperature:  0.7,
		httpClient:   http.DefaultClient,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// detectDevice picks cuda when a GPU is visible in the environment.
func detectDevice() string {
	visible := os.Getenv("CUDA_VISIBLE_DEVICES")
	if visible != "" && visible != "-1" {
		return "cuda"
	}
	return "cpu"
}

// isEncoderDecoder reports whether the model is a seq2seq architecture whose
// output does not echo the prompt.
func isEncoderDecoder(model string) bool {
	name := strings.ToLower(model)
	return strings.Contains(name, "t5") ||
		strings.Contains(name, "flan") ||
		strings.Contains(name, "bart")
}

// localGenerateRequest is the request to the generation server.
type localGenerateRequest struct {
	Model      string                 `json:"model"`
	Inputs     string                 `json:"inputs"`
	Device     string                 `json:"device,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// localGenerateResponse is the response from the generation server.
type localGenerateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Complete generates a completion for a given prompt.
func (l *LocalLLM) Complete(ctx context.Context, prompt string) (string, error) {
	l.logger.Info("Complete called", "model", l.model, "device", l.device, "prompt_len", len(prompt))

	reqBody := localGenerateRequest{
		Model:  l.model,
		Inputs: prompt,
		Device: l.device,
		Parameters: map[string]interface{}{
			"max_new_tokens": l.maxNewTokens,
			"temperature":    l.temperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("%w: local generation request: %v", ErrGenerationFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: local server error (%d): %s", ErrGenerationFailure, resp.StatusCode, string(respBody))
	}

	var result localGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrGenerationFailure, err)
	}

	return l.extractAnswer(prompt, result.GeneratedText), nil
}

// extractAnswer normalizes server output per model architecture.
func (l *LocalLLM) extractAnswer(prompt, generated string) string {
	if isEncoderDecoder(l.model) {
		return strings.TrimSpace(generated)
	}
	// Decoder-only models echo the prompt before the continuation.
	if strings.HasPrefix(generated, prompt) {
		return strings.TrimSpace(generated[len(prompt):])
	}
	return strings.TrimSpace(generated)
}

// Metadata returns information about the model.
func (l *LocalLLM) Metadata() Metadata {
	contextWindow := 2048
	if !isEncoderDecoder(l.model) {
		contextWindow = 4096
	}
	return Metadata{
		Provider:      "local",
		ModelName:     l.model,
		ContextWindow: contextWindow,
	}
}

// Ensure LocalLLM implements the interfaces.
var _ LLM = (*LocalLLM)(nil)
var _ LLMWithMetadata = (*LocalLLM)(nil)
