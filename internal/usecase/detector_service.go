package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/variantlens/backend/internal/domain"
)

// detectionLayer is one independent group builder. Layers are unaware of
// each other's assignments; the consolidator resolves overlaps.
type detectionLayer interface {
	Name() string
	Build(products []domain.Product, opts domain.DetectionOptions) []domain.Group
}

// exportMethodKeys maps layer names to the keys used in export snapshots.
var exportMethodKeys = map[string]string{
	"sku_pattern":     "skuBased",
	"name_similarity": "nameSimilarity",
	"attribute_match": "attributeBased",
	"ml_clustering":   "mlClustering",
	"custom_pattern":  "customPattern",
}

// DetectorService orchestrates the detection layers and consolidates their
// groups into a disjoint partition.
type DetectorService struct {
	skuLayer     detectionLayer
	nameLayer    detectionLayer
	attrLayer    detectionLayer
	featureLayer detectionLayer
	customLayer  detectionLayer
	logger       *zap.Logger
}

// NewDetectorService wires the five layers around a shared pattern registry
// and learned-confidence source. adjustments may be nil.
func NewDetectorService(registry *PatternRegistry, adjustments adjustmentSource, maxPatternLength int, logger *zap.Logger) *DetectorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	extractor := NewPatternExtractor(registry, maxPatternLength)
	return &DetectorService{
		skuLayer:     NewSKULayer(extractor),
		nameLayer:    NewNameLayer(),
		attrLayer:    NewAttributeLayer(),
		featureLayer: NewFeatureLayer(),
		customLayer:  NewCustomLayer(registry, adjustments),
		logger:       logger,
	}
}

// Analyze runs all enabled layers in fixed order (SKU, name, attribute, ML,
// custom) and consolidates their output. It always returns a well-formed
// result: malformed or empty input yields an empty result, and a failing
// layer contributes zero groups without aborting the run.
func (s *DetectorService) Analyze(ctx context.Context, products []domain.Product, opts domain.DetectionOptions) *domain.AnalysisResult {
	result := &domain.AnalysisResult{
		Groups:      make(map[string]domain.Group),
		Suggestions: []domain.Suggestion{},
		Insights:    []domain.Insight{},
		Metadata: domain.AnalysisMetadata{
			ProcessedAt:  time.Now(),
			ProductCount: len(products),
		},
	}

	if len(products) == 0 {
		result.Error = "empty product set"
		return result
	}

	type plannedLayer struct {
		layer   detectionLayer
		enabled bool
	}
	plan := []plannedLayer{
		{s.skuLayer, opts.EnableSKUDetection},
		{s.nameLayer, opts.EnableNameSimilarity},
		{s.attrLayer, opts.EnableAttributeDetection},
		{s.featureLayer, opts.EnableMLDetection},
		{s.customLayer, true},
	}

	// Groups are collected in layer execution order; the stable sort below
	// therefore breaks confidence ties by layer order. This is the
	// documented heuristic, not an accident.
	var collected []domain.Group
	var failedLayers int
	for _, pl := range plan {
		if !pl.enabled {
			continue
		}
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			break
		}
		result.Metadata.DetectionMethods = append(result.Metadata.DetectionMethods, pl.layer.Name())

		groups, err := s.runLayer(pl.layer, products, opts)
		if err != nil {
			failedLayers++
			s.logger.Warn("detection layer failed",
				zap.String("layer", pl.layer.Name()),
				zap.Error(err))
			continue
		}
		collected = append(collected, groups...)
	}

	surviving := consolidate(collected, opts)
	for _, g := range surviving {
		result.Groups[g.ID] = g
	}

	result.Suggestions = deriveSuggestions(surviving, opts)
	result.Confidence = summarizeConfidence(surviving)
	result.Insights = buildInsights(surviving, products, failedLayers)

	if failedLayers > 0 && result.Error == "" {
		result.Error = fmt.Sprintf("%d detection layer(s) failed", failedLayers)
	}
	return result
}

// runLayer isolates a single layer: a panic inside a layer is converted to
// an error so the remaining layers still run.
func (s *DetectorService) runLayer(layer detectionLayer, products []domain.Product, opts domain.DetectionOptions) (groups []domain.Group, err error) {
	defer func() {
		if r := recover(); r != nil {
			groups = nil
			err = fmt.Errorf("layer %s panicked: %v", layer.Name(), r)
		}
	}()
	return layer.Build(products, opts), nil
}

// consolidate deduplicates overlapping groups across layers: sort
// descending by confidence, then greedily keep for each group only the
// products not already claimed by a higher-confidence group. Groups that
// fall below the minimum size are dropped and their remaining members are
// never reconsidered; a deterministic heuristic, not a globally optimal
// partition.
func consolidate(groups []domain.Group, opts domain.DetectionOptions) []domain.Group {
	minSize := opts.MinGroupSize
	if minSize < 2 {
		minSize = 2
	}

	sorted := make([]domain.Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	claimed := make(map[string]bool)
	var surviving []domain.Group
	for _, g := range sorted {
		var free []domain.GroupMember
		for _, m := range g.Members {
			if !claimed[m.ProductID] {
				free = append(free, m)
			}
		}
		if len(free) < minSize {
			continue
		}
		for _, m := range free {
			claimed[m.ProductID] = true
		}
		g.Members = free
		g.ID = groupID(g)
		surviving = append(surviving, g)
	}
	return surviving
}

// groupID derives a deterministic id from the group's method, base and
// membership, so repeated runs over unchanged input produce identical
// results.
func groupID(g domain.Group) string {
	parts := g.Metadata["detectionMethod"] + "|" + g.BasePattern
	for _, m := range g.Members {
		parts += "|" + m.ProductID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(parts)).String()
}

// deriveSuggestions turns surviving groups at or above the confidence
// threshold into display suggestions, sorted descending by confidence.
func deriveSuggestions(groups []domain.Group, opts domain.DetectionOptions) []domain.Suggestion {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.6
	}

	suggestions := []domain.Suggestion{}
	for _, g := range groups {
		if g.Confidence < minConfidence {
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{
			GroupID:    g.ID,
			Confidence: g.Confidence,
			Reason:     suggestionReason(g),
			ProductIDs: g.ProductIDs(),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

func suggestionReason(g domain.Group) string {
	method := g.Metadata["detectionMethod"]
	return fmt.Sprintf("%d products share pattern %q (%s)", len(g.Members), g.BasePattern, method)
}

func summarizeConfidence(groups []domain.Group) domain.ConfidenceSummary {
	var summary domain.ConfidenceSummary
	if len(groups) == 0 {
		return summary
	}

	var sum float64
	for _, g := range groups {
		sum += g.Confidence
		switch {
		case g.Confidence >= 0.8:
			summary.Distribution.High++
		case g.Confidence >= 0.6:
			summary.Distribution.Medium++
		default:
			summary.Distribution.Low++
		}
	}
	summary.Average = sum / float64(len(groups))
	return summary
}

func buildInsights(groups []domain.Group, products []domain.Product, failedLayers int) []domain.Insight {
	insights := []domain.Insight{}

	var grouped int
	methodCounts := make(map[string]int)
	for _, g := range groups {
		grouped += len(g.Members)
		methodCounts[g.Metadata["detectionMethod"]]++
	}

	insights = append(insights, domain.Insight{
		Type:    "coverage",
		Message: fmt.Sprintf("%d of %d products assigned to %d variant groups", grouped, len(products), len(groups)),
	})

	if top, count := topMethod(methodCounts); top != "" {
		insights = append(insights, domain.Insight{
			Type:    "dominant_method",
			Message: fmt.Sprintf("%s produced the most surviving groups (%d)", top, count),
		})
	}

	if failedLayers > 0 {
		insights = append(insights, domain.Insight{
			Type:    "degraded",
			Message: fmt.Sprintf("%d detection layer(s) failed and contributed no groups", failedLayers),
		})
	}
	return insights
}

func topMethod(counts map[string]int) (string, int) {
	var best string
	var bestCount int
	for m, c := range counts {
		if c > bestCount || (c == bestCount && m < best) {
			best, bestCount = m, c
		}
	}
	return best, bestCount
}

// Export builds the external persistence/download snapshot from an analysis
// result and the current engine statistics.
func (s *DetectorService) Export(result *domain.AnalysisResult, stats domain.ExportStatistics) domain.ExportSnapshot {
	snapshot := domain.ExportSnapshot{
		Timestamp:   time.Now(),
		Statistics:  stats,
		Groups:      make(map[string][]domain.Group),
		Suggestions: []domain.Suggestion{},
	}
	for _, key := range exportMethodKeys {
		snapshot.Groups[key] = []domain.Group{}
	}
	if result == nil {
		return snapshot
	}

	for _, g := range result.Groups {
		key, ok := exportMethodKeys[g.Metadata["detectionMethod"]]
		if !ok {
			key = "other"
		}
		snapshot.Groups[key] = append(snapshot.Groups[key], g)
	}
	snapshot.Suggestions = result.Suggestions
	snapshot.Insights = result.Insights
	snapshot.Confidence = result.Confidence
	return snapshot
}
