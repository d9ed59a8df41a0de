package usecase

import (
	"strings"

	"github.com/variantlens/backend/internal/domain"
)

// Field weights for product similarity. Category and brand contribute on
// exact match only; weights are renormalized over the fields present on
// both products.
const (
	weightName     = 0.5
	weightSKU      = 0.3
	weightCategory = 0.1
	weightBrand    = 0.1
)

// StringSimilarity computes normalized edit-distance similarity:
// (maxLen - levenshtein(a,b)) / maxLen. Identical non-empty strings score 1;
// if either string is empty the score is 0. Symmetric by construction.
func StringSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	dist := levenshteinDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}

// ProductSimilarity combines per-field similarities weighted by importance.
// Only fields present on both products participate; the result is the
// weighted sum renormalized over participating weights. Returns 0 when no
// comparable field exists on both products.
func ProductSimilarity(a, b domain.Product) float64 {
	var score, totalWeight float64

	if a.Name != "" && b.Name != "" {
		score += weightName * StringSimilarity(strings.ToLower(a.Name), strings.ToLower(b.Name))
		totalWeight += weightName
	}
	if a.SKU != "" && b.SKU != "" {
		score += weightSKU * StringSimilarity(strings.ToLower(a.SKU), strings.ToLower(b.SKU))
		totalWeight += weightSKU
	}
	if a.Category != "" && b.Category != "" {
		if strings.EqualFold(a.Category, b.Category) {
			score += weightCategory
		}
		totalWeight += weightCategory
	}
	if a.Brand != "" && b.Brand != "" {
		if strings.EqualFold(a.Brand, b.Brand) {
			score += weightBrand
		}
		totalWeight += weightBrand
	}

	if totalWeight == 0 {
		return 0
	}
	return score / totalWeight
}

// levenshteinDistance calculates the edit distance between two strings
// using two rows instead of the full matrix for space efficiency.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	n := len(r2)

	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// clamp01 clips a confidence value into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
