package llm

import "context"

// MockLLM is a test double returning a canned response.
type MockLLM struct {
	// Response is returned by Complete.
	Response string
	// Err, when set, is returned instead.
	Err error
	// Prompts records every prompt passed to Complete.
	Prompts []string
}

// Complete returns the canned response.
func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Metadata returns mock model information.
func (m *MockLLM) Metadata() Metadata {
	return Metadata{Provider: "mock", ModelName: "mock", ContextWindow: 4096}
}

// Ensure MockLLM implements the interfaces.
var _ LLM = (*MockLLM)(nil)
var _ LLMWithMetadata = (*MockLLM)(nil)
