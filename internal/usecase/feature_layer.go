package usecase

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/variantlens/backend/internal/domain"
)

// Feature weights for the ML-inspired clustering layer.
const (
	featureWeightCategory = 0.3
	featureWeightBrand    = 0.2
	featureWeightPrice    = 0.2
	featureWeightLengths  = 0.2
	featureWeightTokens   = 0.1

	featureSimilarityThreshold = 0.7
)

// featureVector is the hand-weighted per-product representation used by the
// ML-inspired layer. No training is involved; "ML-inspired" refers to the
// feature-similarity formulation only.
type featureVector struct {
	nameLen      int
	skuLen       int
	priceBucket  int
	categoryHash uint64
	brandHash    uint64
	tokens       map[string]bool
}

// FeatureLayer clusters products greedily by weighted feature similarity.
// It is config-gated and off by default.
type FeatureLayer struct{}

// NewFeatureLayer creates the ML-inspired clustering layer.
func NewFeatureLayer() *FeatureLayer {
	return &FeatureLayer{}
}

// Name identifies the layer in result metadata.
func (l *FeatureLayer) Name() string { return "ml_clustering" }

// Build runs a greedy single-pass clustering over feature vectors, in input
// order, with the fixed 0.7 threshold.
func (l *FeatureLayer) Build(products []domain.Product, opts domain.DetectionOptions) []domain.Group {
	minSize := opts.MinGroupSize
	if minSize < 2 {
		minSize = 2
	}

	vectors := make([]featureVector, len(products))
	for i, p := range products {
		vectors[i] = buildFeatureVector(p)
	}

	assigned := make([]bool, len(products))
	var groups []domain.Group

	for i := range products {
		if assigned[i] {
			continue
		}

		cluster := []int{i}
		assigned[i] = true
		var simSum float64
		for j := i + 1; j < len(products); j++ {
			if assigned[j] {
				continue
			}
			sim := featureSimilarity(vectors[i], vectors[j])
			if sim >= featureSimilarityThreshold {
				cluster = append(cluster, j)
				assigned[j] = true
				simSum += sim
			}
		}

		if len(cluster) < minSize {
			continue
		}

		members := make([]domain.GroupMember, len(cluster))
		for k, idx := range cluster {
			members[k] = domain.GroupMember{ProductID: products[idx].ID}
		}

		avgSim := simSum / float64(len(cluster)-1)
		groups = append(groups, domain.Group{
			BasePattern: strings.ToLower(products[i].Name),
			PatternType: domain.PatternSimpleSuffix,
			Members:     members,
			Confidence:  featureGroupConfidence(len(cluster), avgSim),
			Metadata:    map[string]string{"detectionMethod": l.Name()},
		})
	}
	return groups
}

// featureGroupConfidence = 0.5 + size bonus (min(n/10, 0.2)) + 0.3 * avg
// feature similarity, capped at 1.
func featureGroupConfidence(size int, avgSimilarity float64) float64 {
	bonus := float64(size) / 10
	if bonus > 0.2 {
		bonus = 0.2
	}
	return clamp01(0.5 + bonus + 0.3*avgSimilarity)
}

func buildFeatureVector(p domain.Product) featureVector {
	v := featureVector{
		nameLen:     len(p.Name),
		skuLen:      len(p.SKU),
		priceBucket: priceBucket(p.Price),
		tokens:      nameTokenSet(p.Name),
	}
	if p.Category != "" {
		v.categoryHash = hashString(strings.ToLower(p.Category))
	}
	if p.Brand != "" {
		v.brandHash = hashString(strings.ToLower(p.Brand))
	}
	return v
}

// featureSimilarity combines exact category/brand/price-bucket matches,
// name/sku length proximity, and name-token Jaccard overlap.
func featureSimilarity(a, b featureVector) float64 {
	var score float64

	if a.categoryHash != 0 && a.categoryHash == b.categoryHash {
		score += featureWeightCategory
	}
	if a.brandHash != 0 && a.brandHash == b.brandHash {
		score += featureWeightBrand
	}
	if a.priceBucket >= 0 && a.priceBucket == b.priceBucket {
		score += featureWeightPrice
	}

	score += featureWeightLengths * lengthProximity(a, b)
	score += featureWeightTokens * tokenJaccard(a.tokens, b.tokens)

	return score
}

// lengthProximity averages the relative closeness of name and SKU lengths.
func lengthProximity(a, b featureVector) float64 {
	return (relativeCloseness(a.nameLen, b.nameLen) + relativeCloseness(a.skuLen, b.skuLen)) / 2
}

func relativeCloseness(x, y int) float64 {
	if x == 0 && y == 0 {
		return 1
	}
	maxLen := x
	if y > maxLen {
		maxLen = y
	}
	diff := x - y
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(maxLen)
}

func tokenJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var intersection int
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// priceBucket maps a price to its order of magnitude: 0 for [0,10),
// 1 for [10,100) and so on. Missing prices bucket to -1 and never match.
func priceBucket(price *float64) int {
	if price == nil || *price < 0 {
		return -1
	}
	if *price < 10 {
		return 0
	}
	return int(math.Floor(math.Log10(*price)))
}

func nameTokenSet(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(name)) {
		if len(t) > 1 {
			tokens[t] = true
		}
	}
	return tokens
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	v := h.Sum64()
	if v == 0 {
		v = 1
	}
	return v
}
