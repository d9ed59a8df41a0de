package domain

import "time"

// TaskPriority orders tasks in the scheduler queue. High-priority tasks are
// served before any earlier-enqueued normal task.
type TaskPriority string

const (
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
)

// DetectionOptions are the per-run knobs recognized by the engine.
type DetectionOptions struct {
	MinConfidence            float64       `json:"minConfidence"`
	MinGroupSize             int           `json:"minGroupSize"`
	MaxPatternLength         int           `json:"maxPatternLength"`
	EnableSKUDetection       bool          `json:"enableSKUDetection"`
	EnableNameSimilarity     bool          `json:"enableNameSimilarity"`
	EnableAttributeDetection bool          `json:"enableAttributeDetection"`
	EnableMLDetection        bool          `json:"enableMLDetection"`
	MaxCacheAge              time.Duration `json:"maxCacheAge"`
	BatchSize                int           `json:"batchSize"`
	BypassCache              bool          `json:"bypassCache,omitempty"`
}

// DefaultDetectionOptions returns the documented option defaults.
func DefaultDetectionOptions() DetectionOptions {
	return DetectionOptions{
		MinConfidence:            0.6,
		MinGroupSize:             2,
		MaxPatternLength:         4,
		EnableSKUDetection:       true,
		EnableNameSimilarity:     true,
		EnableAttributeDetection: true,
		EnableMLDetection:        false,
		MaxCacheAge:              30 * time.Minute,
		BatchSize:                100,
	}
}

// AnalysisTask is one queued unit of work. A nil Products slice means the
// task analyzes the full catalog fetched from the ProductSource.
type AnalysisTask struct {
	ID        string           `json:"id"`
	Products  []Product        `json:"products,omitempty"`
	Options   DetectionOptions `json:"options"`
	Priority  TaskPriority     `json:"priority"`
	Timestamp time.Time        `json:"timestamp"`
}

// EventType identifies scheduler notifications delivered to subscribers.
type EventType string

const (
	EventAnalysisComplete EventType = "analysis_complete"
	EventAnalysisError    EventType = "analysis_error"
	EventAnalysisCached   EventType = "analysis_cached"
	EventServiceStarted   EventType = "service_started"
	EventServiceStopped   EventType = "service_stopped"
)

// Event is a scheduler notification. Results is set on complete/cached
// events, Err on error events.
type Event struct {
	Type     EventType       `json:"type"`
	TaskID   string          `json:"taskId,omitempty"`
	Results  *AnalysisResult `json:"results,omitempty"`
	Err      string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
}

// FeedbackAction enumerates the caller-reported outcomes the learner accepts.
type FeedbackAction string

const (
	FeedbackSuggestionAccepted FeedbackAction = "suggestion_accepted"
	FeedbackSuggestionRejected FeedbackAction = "suggestion_rejected"
	FeedbackManualGroupCreated FeedbackAction = "manual_group_created"
	FeedbackPatternsApplied    FeedbackAction = "patterns_applied"
)

// FeedbackEvent is one caller-reported outcome. PatternKey applies to
// accept/reject, PatternKeys to patterns_applied, Products to manual groups.
type FeedbackEvent struct {
	Action      FeedbackAction `json:"action"`
	PatternKey  string         `json:"patternKey,omitempty"`
	PatternKeys []string       `json:"patternKeys,omitempty"`
	Products    []Product      `json:"products,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	SessionID   string         `json:"sessionId,omitempty"`
}

// LearnedPattern is a pattern whose confidence was shaped by user feedback.
// ConfidenceAdjustment is always clamped to [-0.5, 0.5]. Metadata carries
// the shared characteristics of the group a pattern was synthesized from.
type LearnedPattern struct {
	Key                  string            `json:"key"`
	Type                 VariantType       `json:"type"`
	Expression           string            `json:"expression,omitempty"`
	ConfidenceAdjustment float64           `json:"confidenceAdjustment"`
	Source               string            `json:"source"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	Timestamp            time.Time         `json:"timestamp"`
}
