package embedding

import "math"

// SparseEmbedding is a sparse vector storing only non-zero values with their
// indices. Used by the lexical (BM25) ranker.
type SparseEmbedding struct {
	// Indices are the positions of non-zero values.
	Indices []int `json:"indices"`
	// Values are the non-zero values at the corresponding indices.
	Values []float64 `json:"values"`
	// Dimension is the total dimension of the sparse vector.
	Dimension int `json:"dimension,omitempty"`
}

// Len returns the number of non-zero elements.
func (s *SparseEmbedding) Len() int {
	return len(s.Indices)
}

// DotProduct computes the dot product of two sparse embeddings.
func (s *SparseEmbedding) DotProduct(other *SparseEmbedding) float64 {
	otherMap := make(map[int]float64, len(other.Indices))
	for i, idx := range other.Indices {
		otherMap[idx] = other.Values[i]
	}

	var result float64
	for i, idx := range s.Indices {
		if val, exists := otherMap[idx]; exists {
			result += s.Values[i] * val
		}
	}

	return result
}

// Magnitude returns the L2 norm of the sparse embedding.
func (s *SparseEmbedding) Magnitude() float64 {
	var sum float64
	for _, v := range s.Values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// CosineSimilarity computes cosine similarity between two sparse embeddings.
func (s *SparseEmbedding) CosineSimilarity(other *SparseEmbedding) float64 {
	mag1 := s.Magnitude()
	mag2 := other.Magnitude()
	if mag1 == 0 || mag2 == 0 {
		return 0
	}
	return s.DotProduct(other) / (mag1 * mag2)
}
