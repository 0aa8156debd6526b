package embedding

import "context"

// MockEmbedding is a test double returning canned vectors.
type MockEmbedding struct {
	// Vectors maps input text to the embedding to return. Unknown inputs
	// get Default.
	Vectors map[string][]float64
	// Default is returned for inputs not present in Vectors.
	Default []float64
	// Err, when set, is returned by every call.
	Err error
}

// NewMockEmbedding creates a mock returning the same vector for every input.
func NewMockEmbedding(vector []float64) *MockEmbedding {
	return &MockEmbedding{Default: vector}
}

// GetTextEmbedding returns the configured vector.
func (m *MockEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return m.Default, nil
}

// GetQueryEmbedding returns the configured vector.
func (m *MockEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return m.GetTextEmbedding(ctx, query)
}

// Info returns mock model information.
func (m *MockEmbedding) Info() EmbeddingInfo {
	dims := len(m.Default)
	if dims == 0 {
		for _, v := range m.Vectors {
			dims = len(v)
			break
		}
	}
	return EmbeddingInfo{Provider: "mock", ModelName: "mock", Dimensions: dims}
}

// Ensure MockEmbedding implements the interfaces.
var _ EmbeddingModel = (*MockEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*MockEmbedding)(nil)
