package usecase

import (
	"strings"

	"github.com/variantlens/backend/internal/domain"
)

// nameSimilarityThreshold is the minimum weighted similarity to the seed
// for a product to join a name cluster.
const nameSimilarityThreshold = 0.75

// NameLayer clusters products by weighted name similarity using a greedy
// single pass: each unassigned product seeds a cluster and claims every
// remaining unassigned product above the threshold, so clusters are
// disjoint within this layer by construction.
type NameLayer struct{}

// NewNameLayer creates the name-similarity detection layer.
func NewNameLayer() *NameLayer {
	return &NameLayer{}
}

// Name identifies the layer in result metadata.
func (l *NameLayer) Name() string { return "name_similarity" }

// Build runs the greedy clustering pass. Products without a name never join
// a cluster; a missing SKU or brand only removes that field from the
// weighted similarity, it never fails the comparison.
func (l *NameLayer) Build(products []domain.Product, opts domain.DetectionOptions) []domain.Group {
	minSize := opts.MinGroupSize
	if minSize < 2 {
		minSize = 2
	}

	assigned := make([]bool, len(products))
	var groups []domain.Group

	for i, seed := range products {
		if assigned[i] || seed.Name == "" {
			continue
		}

		cluster := []int{i}
		assigned[i] = true
		for j := i + 1; j < len(products); j++ {
			if assigned[j] || products[j].Name == "" {
				continue
			}
			if ProductSimilarity(seed, products[j]) >= nameSimilarityThreshold {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}

		if len(cluster) < minSize {
			continue
		}

		members := make([]domain.GroupMember, len(cluster))
		names := make([]string, len(cluster))
		clustered := make([]domain.Product, len(cluster))
		for k, idx := range cluster {
			members[k] = domain.GroupMember{ProductID: products[idx].ID}
			names[k] = products[idx].Name
			clustered[k] = products[idx]
		}

		groups = append(groups, domain.Group{
			BasePattern: commonNameStem(names),
			PatternType: domain.PatternSimpleSuffix,
			Members:     members,
			Confidence:  nameGroupConfidence(clustered),
			Metadata:    map[string]string{"detectionMethod": l.Name()},
		})
	}
	return groups
}

// nameGroupConfidence is the average intra-cluster weighted similarity plus
// a size bonus of min(n/4, 0.2), capped at 1.
func nameGroupConfidence(cluster []domain.Product) float64 {
	var sum float64
	var pairs int
	for i := 0; i < len(cluster); i++ {
		for j := i + 1; j < len(cluster); j++ {
			sum += ProductSimilarity(cluster[i], cluster[j])
			pairs++
		}
	}
	avg := 1.0
	if pairs > 0 {
		avg = sum / float64(pairs)
	}

	bonus := float64(len(cluster)) / 4
	if bonus > 0.2 {
		bonus = 0.2
	}
	return clamp01(avg + bonus)
}

// commonNameStem derives the shared stem of the cluster's names: the
// longest common prefix trimmed to the last full word, falling back to the
// first name when the prefix is too short to be meaningful.
func commonNameStem(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := strings.ToLower(names[0])
	for _, n := range names[1:] {
		prefix = commonPrefix(prefix, strings.ToLower(n))
	}
	if idx := strings.LastIndex(prefix, " "); idx > 0 {
		prefix = prefix[:idx]
	}
	prefix = strings.TrimSpace(prefix)
	if len(prefix) < 3 {
		return strings.ToLower(names[0])
	}
	return prefix
}

func commonPrefix(a, b string) string {
	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	i := 0
	for i < limit && a[i] == b[i] {
		i++
	}
	return a[:i]
}
