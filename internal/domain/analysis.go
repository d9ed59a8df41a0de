package domain

import "time"

// GroupMember ties a product to the variant value it contributes to a group.
type GroupMember struct {
	ProductID    string `json:"productId"`
	VariantValue string `json:"variantValue,omitempty"`
}

// Group is a detected family of variant products sharing a base pattern.
type Group struct {
	ID          string            `json:"id"`
	BasePattern string            `json:"basePattern"`
	PatternType PatternType       `json:"patternType"`
	Members     []GroupMember     `json:"members"`
	Confidence  float64           `json:"confidence"` // always in [0,1]
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ProductIDs returns the ids of all member products.
func (g Group) ProductIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ProductID
	}
	return ids
}

// Suggestion is the display view of a surviving group, awaiting human
// accept/reject before being materialized by the caller.
type Suggestion struct {
	GroupID    string   `json:"groupId"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	ProductIDs []string `json:"productIds"`
}

// ConfidenceDistribution buckets surviving groups by confidence band.
type ConfidenceDistribution struct {
	High   int `json:"high"`   // >= 0.8
	Medium int `json:"medium"` // >= 0.6
	Low    int `json:"low"`    // < 0.6
}

// ConfidenceSummary aggregates confidence across surviving groups.
type ConfidenceSummary struct {
	Distribution ConfidenceDistribution `json:"distribution"`
	Average      float64                `json:"average"`
}

// Insight is a human-readable observation derived from an analysis run.
type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnalysisMetadata describes the run that produced a result.
type AnalysisMetadata struct {
	ProcessedAt      time.Time `json:"processedAt"`
	ProductCount     int       `json:"productCount"`
	DetectionMethods []string  `json:"detectionMethods"`
}

// AnalysisResult is the full output of one detection run. A non-empty Error
// signals degraded or empty output, not a hard failure.
type AnalysisResult struct {
	Groups      map[string]Group  `json:"groups"`
	Suggestions []Suggestion      `json:"suggestions"`
	Confidence  ConfidenceSummary `json:"confidence"`
	Insights    []Insight         `json:"insights"`
	Metadata    AnalysisMetadata  `json:"metadata"`
	Error       string            `json:"error,omitempty"`
}

// ExportSnapshot is the external persistence/download view of engine state.
type ExportSnapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	Statistics  ExportStatistics   `json:"statistics"`
	Groups      map[string][]Group `json:"groups"`
	Suggestions []Suggestion       `json:"suggestions"`
	Insights    []Insight          `json:"insights"`
	Confidence  ConfidenceSummary  `json:"confidence"`
}

// ExportStatistics carries the counters included in an export snapshot.
type ExportStatistics struct {
	CacheHits    uint64 `json:"cacheHits"`
	CacheMisses  uint64 `json:"cacheMisses"`
	CacheEntries int    `json:"cacheEntries"`
	AnalysesRun  uint64 `json:"analysesRun"`
	QueueDepth   int    `json:"queueDepth"`
}
