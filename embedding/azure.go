package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultAzureAPIVersion is used when no API version is configured.
const DefaultAzureAPIVersion = "2023-05-15"

// AzureEmbedding implements EmbeddingModel backed by an Azure OpenAI
// embedding deployment.
type AzureEmbedding struct {
	client     *openai.Client
	deployment string
	logger     *slog.Logger
}

// IsEmbeddingDeployment reports whether an Azure deployment name looks like
// an embedding model deployment. Only these deployments can serve embedding
// requests; chat deployments cannot embed.
func IsEmbeddingDeployment(deployment string) bool {
	name := strings.ToLower(deployment)
	return strings.Contains(name, "embedding") || strings.Contains(name, "ada")
}

// NewAzureEmbedding creates a new Azure OpenAI embedding client.
// The deployment must be an embedding deployment; chat deployments are
// rejected because they cannot serve the embeddings API.
func NewAzureEmbedding(endpoint, apiKey, deployment, apiVersion string) (*AzureEmbedding, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("azure embedding requires endpoint, api key, and deployment")
	}
	if !IsEmbeddingDeployment(deployment) {
		return nil, fmt.Errorf("azure deployment %q is not an embedding deployment", deployment)
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	config := openai.DefaultAzureConfig(apiKey, endpoint)
	config.APIVersion = apiVersion

	return &AzureEmbedding{
		client:     openai.NewClientWithConfig(config),
		deployment: deployment,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}, nil
}

// GetTextEmbedding generates an embedding for a document text.
func (a *AzureEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return a.getEmbedding(ctx, text)
}

// GetQueryEmbedding generates an embedding for a query.
func (a *AzureEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return a.getEmbedding(ctx, query)
}

func (a *AzureEmbedding) getEmbedding(ctx context.Context, input string) ([]float64, error) {
	resp, err := a.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: []string{input},
			Model: openai.EmbeddingModel(a.deployment),
		},
	)
	if err != nil {
		a.logger.Error("GetEmbedding failed", "deployment", a.deployment, "error", err)
		return nil, fmt.Errorf("azure embedding failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("azure returned no embeddings")
	}

	embedding32 := resp.Data[0].Embedding
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}

	return embedding64, nil
}

// Info returns information about the model.
func (a *AzureEmbedding) Info() EmbeddingInfo {
	// Azure deployments wrap the ada/3-small family.
	return EmbeddingInfo{
		Provider:   "azure",
		ModelName:  a.deployment,
		Dimensions: 1536,
		MaxTokens:  8191,
	}
}

// Ensure AzureEmbedding implements the interfaces.
var _ EmbeddingModel = (*AzureEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*AzureEmbedding)(nil)
