package usecase

import (
	"github.com/variantlens/backend/internal/domain"
)

// Confidence weights for SKU-based groups: group size, variant value
// diversity and average pairwise SKU similarity.
const (
	skuWeightSize       = 0.3
	skuWeightDiversity  = 0.4
	skuWeightSimilarity = 0.3
)

// SKULayer groups products by the base patterns extracted from their SKUs.
type SKULayer struct {
	extractor *PatternExtractor
}

// NewSKULayer creates the SKU-based detection layer.
func NewSKULayer(extractor *PatternExtractor) *SKULayer {
	return &SKULayer{extractor: extractor}
}

// Name identifies the layer in result metadata.
func (l *SKULayer) Name() string { return "sku_pattern" }

// Build extracts candidates for every product and partitions products by
// candidate base. Groups smaller than the configured minimum are discarded.
func (l *SKULayer) Build(products []domain.Product, opts domain.DetectionOptions) []domain.Group {
	type bucket struct {
		patternType domain.PatternType
		members     []domain.GroupMember
		skus        []string
		seen        map[string]bool
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, p := range products {
		for _, c := range l.extractor.Extract(p) {
			if c.PatternType == domain.PatternCustom {
				// Custom candidates belong to the custom layer.
				continue
			}
			b, ok := buckets[c.Base]
			if !ok {
				b = &bucket{patternType: c.PatternType, seen: make(map[string]bool)}
				buckets[c.Base] = b
				order = append(order, c.Base)
			}
			if !b.seen[p.ID] {
				b.seen[p.ID] = true
				b.members = append(b.members, domain.GroupMember{ProductID: p.ID, VariantValue: c.VariantValue})
				b.skus = append(b.skus, p.SKU)
			}
		}
	}

	minSize := opts.MinGroupSize
	if minSize < 2 {
		minSize = 2
	}

	var groups []domain.Group
	for _, base := range order {
		b := buckets[base]
		if len(b.members) < minSize {
			continue
		}
		groups = append(groups, domain.Group{
			BasePattern: base,
			PatternType: b.patternType,
			Members:     b.members,
			Confidence:  skuGroupConfidence(b.members, b.skus),
			Metadata:    map[string]string{"detectionMethod": l.Name()},
		})
	}
	return groups
}

// skuGroupConfidence scores a candidate group by size (saturating at 5
// members), distinct variant values over total members, and average
// pairwise SKU similarity.
func skuGroupConfidence(members []domain.GroupMember, skus []string) float64 {
	n := float64(len(members))

	sizeScore := n / 5
	if sizeScore > 1 {
		sizeScore = 1
	}

	distinct := make(map[string]bool)
	for _, m := range members {
		distinct[m.VariantValue] = true
	}
	diversity := float64(len(distinct)) / n

	return clamp01(skuWeightSize*sizeScore +
		skuWeightDiversity*diversity +
		skuWeightSimilarity*averagePairwiseSimilarity(skus))
}

// averagePairwiseSimilarity returns the mean StringSimilarity over all
// unordered pairs; 1 for fewer than two strings.
func averagePairwiseSimilarity(values []string) float64 {
	if len(values) < 2 {
		return 1
	}
	var sum float64
	var pairs int
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			sum += StringSimilarity(values[i], values[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}
