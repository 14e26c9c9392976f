package services

import (
	"strings"
)

// SimilarityScore returns a bounded similarity between two already-normalized
// strings: (maxLen - editDistance) / maxLen, in [0, 1]. Two empty strings
// score 1.0 by convention; callers must filter degenerate inputs before
// treating that as a meaningful match.
func SimilarityScore(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return float64(maxLen-levenshteinDistance(a, b)) / float64(maxLen)
}

// TokenOverlapRatio returns the fraction of a's tokens (length > 2) that
// appear verbatim among b's tokens. No qualifying tokens in a yields 0.
func TokenOverlapRatio(a, b string) float64 {
	bTokens := make(map[string]struct{})
	for _, t := range strings.Fields(b) {
		bTokens[t] = struct{}{}
	}

	total := 0
	found := 0
	for _, t := range strings.Fields(a) {
		if len(t) <= 2 {
			continue
		}
		total++
		if _, ok := bTokens[t]; ok {
			found++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}

// levenshteinDistance calculates the edit distance between two strings
// with unit-cost insertions, deletions and substitutions.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Create matrix
	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	// Fill in the matrix
	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}
