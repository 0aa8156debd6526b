package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

// HuggingFaceInferenceAPIURL is the default HuggingFace Inference API endpoint.
const HuggingFaceInferenceAPIURL = "https://api-inference.huggingface.co"

// Common HuggingFace sentence embedding models.
const (
	HFSentenceTransformersMiniLM = "sentence-transformers/all-MiniLM-L6-v2"
	HFSentenceTransformersMpnet  = "sentence-transformers/all-mpnet-base-v2"
)

// HuggingFaceEmbedding implements EmbeddingModel using the HuggingFace
// Inference API feature-extraction pipeline.
type HuggingFaceEmbedding struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// HuggingFaceEmbeddingOption configures a HuggingFaceEmbedding.
type HuggingFaceEmbeddingOption func(*HuggingFaceEmbedding)

// WithHuggingFaceAPIKey sets the API key.
func WithHuggingFaceAPIKey(apiKey string) HuggingFaceEmbeddingOption {
	return func(h *HuggingFaceEmbedding) {
		h.apiKey = apiKey
	}
}

// WithHuggingFaceBaseURL sets the base URL.
func WithHuggingFaceBaseURL(baseURL string) HuggingFaceEmbeddingOption {
	return func(h *HuggingFaceEmbedding) {
		h.baseURL = baseURL
	}
}

// WithHuggingFaceModel sets the model.
func WithHuggingFaceModel(model string) HuggingFaceEmbeddingOption {
	return func(h *HuggingFaceEmbedding) {
		h.model = model
	}
}

// WithHuggingFaceHTTPClient sets a custom HTTP client.
func WithHuggingFaceHTTPClient(client *http.Client) HuggingFaceEmbeddingOption {
	return func(h *HuggingFaceEmbedding) {
		h.httpClient = client
	}
}

// NewHuggingFaceEmbedding creates a new HuggingFace embedding client.
func NewHuggingFaceEmbedding(opts ...HuggingFaceEmbeddingOption) *HuggingFaceEmbedding {
	h := &HuggingFaceEmbedding{
		apiKey:     os.Getenv("HUGGINGFACE_API_KEY"),
		baseURL:    HuggingFaceInferenceAPIURL,
		model:      HFSentenceTransformersMiniLM,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// hfInferenceRequest represents a request to the HuggingFace Inference API.
type hfInferenceRequest struct {
	Inputs  interface{} `json:"inputs"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options,omitempty"`
}

// GetTextEmbedding generates an embedding for a document text.
func (h *HuggingFaceEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return h.getEmbedding(ctx, text)
}

// GetQueryEmbedding generates an embedding for a query.
func (h *HuggingFaceEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return h.getEmbedding(ctx, query)
}

func (h *HuggingFaceEmbedding) getEmbedding(ctx context.Context, text string) ([]float64, error) {
	reqBody := hfInferenceRequest{
		Inputs: text,
	}
	reqBody.Options.WaitForModel = true

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface API error (%d): %s", resp.StatusCode, string(respBody))
	}

	// Sentence-transformers models usually return the pooled vector directly,
	// but the pipeline may also return sentence- or token-level nesting.
	var embedding []float64
	if err := json.Unmarshal(respBody, &embedding); err == nil {
		return embedding, nil
	}

	var nestedEmbedding [][]float64
	if err := json.Unmarshal(respBody, &nestedEmbedding); err == nil && len(nestedEmbedding) > 0 {
		return nestedEmbedding[0], nil
	}

	var tokenEmbeddings [][][]float64
	if err := json.Unmarshal(respBody, &tokenEmbeddings); err == nil && len(tokenEmbeddings) > 0 && len(tokenEmbeddings[0]) > 0 {
		return meanPool(tokenEmbeddings[0]), nil
	}

	return nil, fmt.Errorf("failed to parse embedding response: %s", string(respBody))
}

// meanPool computes mean pooling over token embeddings.
func meanPool(tokenEmbeddings [][]float64) []float64 {
	if len(tokenEmbeddings) == 0 {
		return nil
	}

	dims := len(tokenEmbeddings[0])
	result := make([]float64, dims)

	for _, token := range tokenEmbeddings {
		for i, v := range token {
			result[i] += v
		}
	}

	numTokens := float64(len(tokenEmbeddings))
	for i := range result {
		result[i] /= numTokens
	}

	return result
}

// GetTextEmbeddingsBatch generates embeddings for multiple texts.
// The feature-extraction pipeline is called once per text.
func (h *HuggingFaceEmbedding) GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	h.logger.Info("GetTextEmbeddingsBatch called", "model", h.model, "count", len(texts))

	results := make([][]float64, len(texts))
	for i, text := range texts {
		emb, err := h.getEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to get embedding for text %d: %w", i, err)
		}
		results[i] = emb

		if callback != nil {
			callback(i+1, len(texts))
		}
	}

	return results, nil
}

// Info returns information about the model.
func (h *HuggingFaceEmbedding) Info() EmbeddingInfo {
	switch h.model {
	case HFSentenceTransformersMiniLM:
		return EmbeddingInfo{Provider: "huggingface", ModelName: h.model, Dimensions: 384, MaxTokens: 256}
	case HFSentenceTransformersMpnet:
		return EmbeddingInfo{Provider: "huggingface", ModelName: h.model, Dimensions: 768, MaxTokens: 384}
	default:
		return DefaultEmbeddingInfo("huggingface", h.model)
	}
}

// Ensure HuggingFaceEmbedding implements the interfaces.
var _ EmbeddingModel = (*HuggingFaceEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*HuggingFaceEmbedding)(nil)
var _ EmbeddingModelWithBatch = (*HuggingFaceEmbedding)(nil)
