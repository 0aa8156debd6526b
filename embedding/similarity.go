package embedding

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions do not match: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors are empty")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// NormalizeScores min-max normalizes scores into [0, 1] in place.
// A constant score list maps to all ones when positive, all zeros otherwise.
func NormalizeScores(scores []float64) {
	if len(scores) == 0 {
		return
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	if maxScore == minScore {
		for i := range scores {
			if maxScore > 0 {
				scores[i] = 1.0
			} else {
				scores[i] = 0.0
			}
		}
		return
	}

	for i, s := range scores {
		scores[i] = (s - minScore) / (maxScore - minScore)
	}
}
