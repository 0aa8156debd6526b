package llm

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

// chatDeploymentMarkers identify deployments that must be called through the
// chat completions API rather than the legacy completions API.
var chatDeploymentMarkers = []string{"gpt-4o", "gpt-4", "gpt-3.5", "gpt4", "gpt35"}

// embeddingDeploymentMarkers identify embedding-only deployments, which
// cannot serve generation at all.
var embeddingDeploymentMarkers = []string{"embedding", "ada"}

// AzureLLM calls an Azure OpenAI deployment. Chat-style deployments are
// routed to the chat API, everything else to the completion API, decided by
// inspecting the deployment name.
type AzureLLM struct {
	client     *openai.Client
	deployment string
	isChat     bool
	logger     *slog.Logger
}

// IsChatDeployment reports whether an Azure deployment name maps to a
// chat-style model.
func IsChatDeployment(deployment string) bool {
	name := strings.ToLower(deployment)
	for _, marker := range chatDeploymentMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// isEmbeddingOnlyDeployment reports whether the deployment serves only the
// embeddings API.
func isEmbeddingOnlyDeployment(deployment string) bool {
	if IsChatDeployment(deployment) {
		return false
	}
	name := strings.ToLower(deployment)
	for _, marker := range embeddingDeploymentMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// NewAzureLLM creates an Azure OpenAI generation client. Embedding-only
// deployments are rejected with ErrBackendUnavailable since they cannot
// serve generation.
func NewAzureLLM(endpoint, apiKey, deployment, apiVersion string) (*AzureLLM, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("%w: azure requires endpoint, api key, and deployment", ErrBackendUnavailable)
	}
	if isEmbeddingOnlyDeployment(deployment) {
		return nil, fmt.Errorf("%w: azure deployment %q is embedding-only and cannot serve generation", ErrBackendUnavailable, deployment)
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	config := openai.DefaultAzureConfig(apiKey, endpoint)
	config.APIVersion = apiVersion

	return &AzureLLM{
		client:     openai.NewClientWithConfig(config),
		deployment: deployment,
		isChat:     IsChatDeployment(deployment),
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}, nil
}

// Complete generates a completion for a given prompt, routing to the call
// shape matching the deployment.
func (a *AzureLLM) Complete(ctx context.Context, prompt string) (string, error) {
	a.logger.Info("Complete called", "deployment", a.deployment, "chat", a.isChat, "prompt_len", len(prompt))

	if a.isChat {
		return a.chatComplete(ctx, prompt)
	}
	return a.textComplete(ctx, prompt)
}

func (a *AzureLLM) chatComplete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.deployment,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		a.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("%w: azure chat completion: %v", ErrGenerationFailure, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: azure returned no choices", ErrGenerationFailure)
	}

	return resp.Choices[0].Message.Content, nil
}

func (a *AzureLLM) textComplete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateCompletion(
		ctx,
		openai.CompletionRequest{
			Model:  a.deployment,
			Prompt: prompt,
		},
	)
	if err != nil {
		a.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("%w: azure completion: %v", ErrGenerationFailure, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: azure returned no choices", ErrGenerationFailure)
	}

	return resp.Choices[0].Text, nil
}

// Metadata returns information about the deployment.
func (a *AzureLLM) Metadata() Metadata {
	return Metadata{
		Provider:      "azure",
		ModelName:     a.deployment,
		ContextWindow: 8192,
	}
}

// Ensure AzureLLM implements the interfaces.
var _ LLM = (*AzureLLM)(nil)
var _ LLMWithMetadata = (*AzureLLM)(nil)
