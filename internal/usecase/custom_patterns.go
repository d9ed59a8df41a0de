package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/variantlens/backend/internal/domain"
)

// patternProbeTimeout bounds the validation run of a newly registered
// expression. Go's regexp engine is linear-time, but the probe still guards
// against degenerate expressions on pathological inputs.
const patternProbeTimeout = 50 * time.Millisecond

// probeInputs exercise a candidate expression at registration time.
var probeInputs = []string{
	"shirt-red-xl",
	"nwk-as001",
	strings.Repeat("a-", 64) + "1",
}

// CustomPattern is a registered extraction rule. The expression must expose
// two capture groups: group 1 is the base, group 2 the variant value.
type CustomPattern struct {
	Key        string
	Expression string
	Type       domain.VariantType
	Confidence float64
	Learned    bool
	re         *regexp.Regexp
}

// PatternRegistry holds custom and learned extraction patterns. Patterns
// are applied in registration order.
type PatternRegistry struct {
	mu       sync.RWMutex
	patterns []*CustomPattern
}

// NewPatternRegistry creates an empty registry.
func NewPatternRegistry() *PatternRegistry {
	return &PatternRegistry{}
}

// Register compiles and validates a pattern, then appends it to the
// registry. Explicit user rules should carry confidence 1.0; learned rules
// a lower base that the feedback learner adjusts.
func (r *PatternRegistry) Register(key, expression string, variantType domain.VariantType, confidence float64, learned bool) error {
	if key == "" || expression == "" {
		return fmt.Errorf("%w: key and expression are required", domain.ErrInvalidPattern)
	}

	re, err := regexp.Compile(expression)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
	}
	if re.NumSubexp() < 2 {
		return fmt.Errorf("%w: expression needs base and variant capture groups", domain.ErrInvalidPattern)
	}
	if err := probePattern(re); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patterns {
		if p.Key == key {
			return fmt.Errorf("%w: key %q already registered", domain.ErrInvalidPattern, key)
		}
	}
	r.patterns = append(r.patterns, &CustomPattern{
		Key:        key,
		Expression: expression,
		Type:       variantType,
		Confidence: clamp01(confidence),
		Learned:    learned,
		re:         re,
	})
	return nil
}

// probePattern runs the compiled expression against fixed probe inputs
// under a deadline. A pattern that cannot finish the probe is rejected.
func probePattern(re *regexp.Regexp) error {
	done := make(chan struct{})
	go func() {
		for _, in := range probeInputs {
			re.FindStringSubmatch(in)
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(patternProbeTimeout):
		return fmt.Errorf("%w: expression exceeded validation deadline", domain.ErrInvalidPattern)
	}
}

// Extract applies all registered patterns to the product's SKU and name, in
// registration order, and returns the resulting candidates.
func (r *PatternRegistry) Extract(p domain.Product) []domain.PatternCandidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []domain.PatternCandidate
	for _, pat := range r.patterns {
		for _, field := range []string{p.SKU, p.Name} {
			if field == "" {
				continue
			}
			m := pat.re.FindStringSubmatch(strings.ToLower(field))
			if m == nil || m[1] == "" || m[2] == "" {
				continue
			}
			candidates = append(candidates, domain.PatternCandidate{
				Base:            m[1],
				VariantValue:    m[2],
				VariantType:     pat.Type,
				PatternType:     domain.PatternCustom,
				SourceProductID: p.ID,
			})
			break
		}
	}
	return candidates
}

// Patterns returns a snapshot of the registered patterns.
func (r *PatternRegistry) Patterns() []CustomPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CustomPattern, len(r.patterns))
	for i, p := range r.patterns {
		out[i] = *p
	}
	return out
}

// Lookup returns the pattern registered under key, if any.
func (r *PatternRegistry) Lookup(key string) (CustomPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patterns {
		if p.Key == key {
			return *p, true
		}
	}
	return CustomPattern{}, false
}

// adjustmentSource supplies learned confidence adjustments keyed by pattern.
type adjustmentSource interface {
	Adjustment(key string) float64
}

// noAdjustments is used when no feedback learner is wired.
type noAdjustments struct{}

func (noAdjustments) Adjustment(string) float64 { return 0 }

// CustomLayer groups products by the bases produced by registered patterns.
type CustomLayer struct {
	registry    *PatternRegistry
	adjustments adjustmentSource
}

// NewCustomLayer creates the custom/learned pattern layer. adjustments may
// be nil.
func NewCustomLayer(registry *PatternRegistry, adjustments adjustmentSource) *CustomLayer {
	if adjustments == nil {
		adjustments = noAdjustments{}
	}
	return &CustomLayer{registry: registry, adjustments: adjustments}
}

// Name identifies the layer in result metadata.
func (l *CustomLayer) Name() string { return "custom_pattern" }

// Build partitions products into groups keyed by pattern and base. Explicit
// rules keep their registered confidence; learned rules add the feedback
// learner's adjustment, clamped to [0,1].
func (l *CustomLayer) Build(products []domain.Product, opts domain.DetectionOptions) []domain.Group {
	type bucket struct {
		pattern CustomPattern
		members []domain.GroupMember
		seen    map[string]bool
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, pat := range l.registry.Patterns() {
		for _, p := range products {
			for _, field := range []string{p.SKU, p.Name} {
				if field == "" {
					continue
				}
				m := pat.re.FindStringSubmatch(strings.ToLower(field))
				if m == nil || m[1] == "" || m[2] == "" {
					continue
				}
				key := pat.Key + "|" + m[1]
				b, ok := buckets[key]
				if !ok {
					b = &bucket{pattern: pat, seen: make(map[string]bool)}
					buckets[key] = b
					order = append(order, key)
				}
				if !b.seen[p.ID] {
					b.seen[p.ID] = true
					b.members = append(b.members, domain.GroupMember{ProductID: p.ID, VariantValue: m[2]})
				}
				break
			}
		}
	}

	minSize := opts.MinGroupSize
	if minSize < 2 {
		minSize = 2
	}

	var groups []domain.Group
	for _, key := range order {
		b := buckets[key]
		if len(b.members) < minSize {
			continue
		}

		confidence := b.pattern.Confidence
		if b.pattern.Learned {
			confidence = clamp01(confidence + l.adjustments.Adjustment(b.pattern.Key))
		}

		base := strings.TrimPrefix(key, b.pattern.Key+"|")
		groups = append(groups, domain.Group{
			BasePattern: base,
			PatternType: domain.PatternCustom,
			Members:     b.members,
			Confidence:  confidence,
			Metadata: map[string]string{
				"detectionMethod": l.Name(),
				"patternKey":      b.pattern.Key,
			},
		})
	}
	return groups
}
