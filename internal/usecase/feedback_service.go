package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/variantlens/backend/internal/domain"
)

// learnedPatternsBlobKey is the fixed blob-store key for learned patterns.
const learnedPatternsBlobKey = "variantlens:learned_patterns"

// Adjustment deltas per feedback action, and the hard clamp on cumulative
// adjustments.
const (
	acceptedDelta   = 0.10
	rejectedDelta   = -0.05
	appliedDelta    = 0.05
	adjustmentLimit = 0.5

	// manualPatternConfidence is the base confidence of patterns
	// synthesized from manual groupings.
	manualPatternConfidence = 0.9

	// persistEvery flushes learned state after this many recorded events.
	persistEvery = 10
)

// learnerState is the persisted shape of the feedback learner.
type learnerState struct {
	Patterns map[string]domain.LearnedPattern `json:"patterns"`
}

// FeedbackService records caller-reported outcomes and converts them into
// per-pattern confidence adjustments consumed by the custom layer. Learned
// patterns persist across runs via the blob store.
type FeedbackService struct {
	mu       sync.Mutex
	patterns map[string]domain.LearnedPattern
	registry *PatternRegistry
	store    domain.BlobStore
	logger   *zap.Logger
	unsaved  int
}

// NewFeedbackService creates the learner. registry receives patterns
// synthesized from manual groupings; store may be nil to disable
// persistence.
func NewFeedbackService(registry *PatternRegistry, store domain.BlobStore, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		patterns: make(map[string]domain.LearnedPattern),
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Adjustment returns the learned confidence adjustment for a pattern key,
// zero when the key is unknown.
func (s *FeedbackService) Adjustment(key string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patterns[key].ConfidenceAdjustment
}

// Patterns returns a snapshot of the learned patterns.
func (s *FeedbackService) Patterns() []domain.LearnedPattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LearnedPattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p)
	}
	return out
}

// Record applies one feedback event. Malformed payloads are logged and
// ignored; they never fail the caller. State is flushed every tenth event.
func (s *FeedbackService) Record(ctx context.Context, ev domain.FeedbackEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.mu.Lock()
	switch ev.Action {
	case domain.FeedbackSuggestionAccepted:
		if ev.PatternKey == "" {
			s.mu.Unlock()
			return s.reject(ev, "missing pattern key")
		}
		s.adjustLocked(ev.PatternKey, acceptedDelta, ev.Timestamp)

	case domain.FeedbackSuggestionRejected:
		if ev.PatternKey == "" {
			s.mu.Unlock()
			return s.reject(ev, "missing pattern key")
		}
		s.adjustLocked(ev.PatternKey, rejectedDelta, ev.Timestamp)

	case domain.FeedbackPatternsApplied:
		if len(ev.PatternKeys) == 0 {
			s.mu.Unlock()
			return s.reject(ev, "missing pattern keys")
		}
		for _, key := range ev.PatternKeys {
			s.adjustLocked(key, appliedDelta, ev.Timestamp)
		}

	case domain.FeedbackManualGroupCreated:
		if len(ev.Products) < 2 {
			s.mu.Unlock()
			return s.reject(ev, "manual group needs at least two products")
		}
		s.synthesizeLocked(ev)

	default:
		s.mu.Unlock()
		return s.reject(ev, "unknown action")
	}

	s.unsaved++
	flush := s.unsaved >= persistEvery
	if flush {
		s.unsaved = 0
	}
	s.mu.Unlock()

	if flush {
		s.persist(ctx)
	}
	return nil
}

func (s *FeedbackService) reject(ev domain.FeedbackEvent, reason string) error {
	s.logger.Warn("ignoring malformed feedback",
		zap.String("action", string(ev.Action)),
		zap.String("reason", reason))
	return fmt.Errorf("%w: %s", domain.ErrInvalidFeedback, reason)
}

// adjustLocked applies a delta to the pattern's cumulative adjustment,
// clamped to [-0.5, 0.5]. Unknown keys start from zero.
func (s *FeedbackService) adjustLocked(key string, delta float64, ts time.Time) {
	p, ok := s.patterns[key]
	if !ok {
		p = domain.LearnedPattern{Key: key, Type: domain.VariantCustom, Source: "feedback"}
	}
	p.ConfidenceAdjustment = clampAdjustment(p.ConfidenceAdjustment + delta)
	p.Timestamp = ts
	s.patterns[key] = p
}

func clampAdjustment(v float64) float64 {
	if v > adjustmentLimit {
		return adjustmentLimit
	}
	if v < -adjustmentLimit {
		return -adjustmentLimit
	}
	return v
}

// synthesizeLocked derives a learned pattern from the shared characteristics
// of a manually created group and registers it for the custom layer. The SKU
// prefix is preferred; groups without SKUs fall back to the shared name
// prefix, which the custom layer also matches against.
func (s *FeedbackService) synthesizeLocked(ev domain.FeedbackEvent) {
	prefix := sharedSKUPrefix(ev.Products)
	if prefix == "" {
		prefix = sharedNamePrefix(ev.Products)
	}
	if prefix == "" {
		s.logger.Warn("manual group shares no sku or name prefix, skipping synthesis")
		return
	}

	key := "manual:" + prefix
	if _, exists := s.patterns[key]; exists {
		return
	}

	expression := fmt.Sprintf(`^(%s)[-_./ ]?(.+)$`, regexp.QuoteMeta(prefix))
	if s.registry != nil {
		if err := s.registry.Register(key, expression, domain.VariantCustom, manualPatternConfidence, true); err != nil {
			s.logger.Warn("failed to register synthesized pattern",
				zap.String("key", key), zap.Error(err))
			return
		}
	}

	s.patterns[key] = domain.LearnedPattern{
		Key:        key,
		Type:       domain.VariantCustom,
		Expression: expression,
		Source:     "manual_group",
		Metadata:   groupCharacteristics(ev.Products),
		Timestamp:  ev.Timestamp,
	}
}

// groupCharacteristics collects the category and price characteristics the
// group members share, for the synthesized pattern's metadata.
func groupCharacteristics(products []domain.Product) map[string]string {
	category := ""
	categoryShared := true
	var minPrice, maxPrice float64
	havePrice := false

	for _, p := range products {
		if c := strings.ToLower(strings.TrimSpace(p.Category)); c != "" {
			if category == "" {
				category = c
			} else if category != c {
				categoryShared = false
			}
		}
		if p.Price != nil {
			if !havePrice {
				minPrice, maxPrice = *p.Price, *p.Price
				havePrice = true
			} else {
				if *p.Price < minPrice {
					minPrice = *p.Price
				}
				if *p.Price > maxPrice {
					maxPrice = *p.Price
				}
			}
		}
	}

	meta := make(map[string]string)
	if categoryShared && category != "" {
		meta["category"] = category
	}
	if havePrice {
		meta["priceRange"] = fmt.Sprintf("%g-%g", minPrice, maxPrice)
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// sharedSKUPrefix returns the longest common SKU prefix across the group,
// trimmed back to the last separator so partial segments never leak into
// the pattern.
func sharedSKUPrefix(products []domain.Product) string {
	var prefix string
	for _, p := range products {
		sku := strings.ToLower(strings.TrimSpace(p.SKU))
		if sku == "" {
			continue
		}
		if prefix == "" {
			prefix = sku
			continue
		}
		prefix = commonPrefix(prefix, sku)
	}

	if idx := strings.LastIndexAny(prefix, "-_./ "); idx > 0 {
		prefix = prefix[:idx]
	}
	if len(prefix) < 2 {
		return ""
	}
	return prefix
}

// sharedNamePrefix returns the longest common name prefix across the group,
// trimmed back to the last full word.
func sharedNamePrefix(products []domain.Product) string {
	var prefix string
	for _, p := range products {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		if prefix == "" {
			prefix = name
			continue
		}
		prefix = commonPrefix(prefix, name)
	}

	if idx := strings.LastIndexAny(prefix, "-_./ "); idx > 0 {
		prefix = prefix[:idx]
	}
	prefix = strings.TrimSpace(prefix)
	if len(prefix) < 3 {
		return ""
	}
	return prefix
}

// Load restores learned patterns from the blob store and re-registers the
// synthesized ones. Absent or corrupt blobs degrade to empty state.
func (s *FeedbackService) Load(ctx context.Context) {
	if s.store == nil {
		return
	}
	raw, err := s.store.Get(ctx, learnedPatternsBlobKey)
	if err != nil {
		return
	}

	var state learnerState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding corrupt learned-pattern blob", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Patterns != nil {
		s.patterns = state.Patterns
	}
	if s.registry == nil {
		return
	}
	for key, p := range s.patterns {
		if p.Expression == "" {
			continue
		}
		if _, exists := s.registry.Lookup(key); exists {
			continue
		}
		if err := s.registry.Register(key, p.Expression, p.Type, manualPatternConfidence, true); err != nil {
			s.logger.Warn("failed to restore learned pattern",
				zap.String("key", key), zap.Error(err))
		}
	}
}

// Close flushes learned state on teardown.
func (s *FeedbackService) Close(ctx context.Context) {
	s.persist(ctx)
}

func (s *FeedbackService) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	s.mu.Lock()
	encoded, err := json.Marshal(learnerState{Patterns: s.patterns})
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed to serialize learned patterns", zap.Error(err))
		return
	}

	if err := s.store.Set(ctx, learnedPatternsBlobKey, encoded); err != nil {
		s.logger.Warn("failed to persist learned patterns", zap.Error(err))
	}
}
