package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CrossEncoder scores query/passage pairs jointly. Higher is more relevant.
type CrossEncoder interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// DefaultCrossEncoderModel is the reranking model used when none is
// configured.
const DefaultCrossEncoderModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"

const defaultCrossEncoderBaseURL = "https://api-inference.huggingface.co"

// HFCrossEncoder scores pairs through the Hugging Face sentence-similarity
// inference pipeline.
type HFCrossEncoder struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// CrossEncoderOption configures an HFCrossEncoder.
type CrossEncoderOption func(*HFCrossEncoder)

// WithCrossEncoderAPIKey sets the API token.
func WithCrossEncoderAPIKey(apiKey string) CrossEncoderOption {
	return func(c *HFCrossEncoder) {
		c.apiKey = apiKey
	}
}

// WithCrossEncoderBaseURL sets the inference API base URL.
func WithCrossEncoderBaseURL(baseURL string) CrossEncoderOption {
	return func(c *HFCrossEncoder) {
		c.baseURL = baseURL
	}
}

// WithCrossEncoderModel sets the reranking model.
func WithCrossEncoderModel(model string) CrossEncoderOption {
	return func(c *HFCrossEncoder) {
		c.model = model
	}
}

// WithCrossEncoderHTTPClient sets a custom HTTP client.
func WithCrossEncoderHTTPClient(client *http.Client) CrossEncoderOption {
	return func(c *HFCrossEncoder) {
		c.httpClient = client
	}
}

// NewHFCrossEncoder creates a hosted cross-encoder client.
func NewHFCrossEncoder(opts ...CrossEncoderOption) *HFCrossEncoder {
	c := &HFCrossEncoder{
		baseURL: defaultCrossEncoderBaseURL,
		model:   DefaultCrossEncoderModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type crossEncoderRequest struct {
	Inputs crossEncoderInputs `json:"inputs"`
}

type crossEncoderInputs struct {
	SourceSentence string   `json:"source_sentence"`
	Sentences      []string `json:"sentences"`
}

// Score returns one relevance score per passage, aligned by index.
func (c *HFCrossEncoder) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(crossEncoderRequest{
		Inputs: crossEncoderInputs{
			SourceSentence: query,
			Sentences:      passages,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/sentence-similarity/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cross-encoder API returned status %d: %s", resp.StatusCode, string(body))
	}

	var scores []float64
	if err := json.Unmarshal(body, &scores); err != nil {
		return nil, fmt.Errorf("failed to parse scores: %w", err)
	}
	if len(scores) != len(passages) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d passages", len(scores), len(passages))
	}

	return scores, nil
}

// Ensure HFCrossEncoder implements CrossEncoder.
var _ CrossEncoder = (*HFCrossEncoder)(nil)
