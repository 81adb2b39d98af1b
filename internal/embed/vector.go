package embed

import "math"

// CosineSimilarity computes dot(a,b)/(|a|*|b|). It is a total function:
// mismatched lengths, empty vectors, and zero-magnitude vectors all return
// exactly 0 rather than an error or NaN, so ranking code never has to branch.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0
	}
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}
