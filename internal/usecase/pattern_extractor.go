package usecase

import (
	"regexp"
	"strings"

	"github.com/variantlens/backend/internal/domain"
)

// separators tried when splitting a SKU into base + suffix.
var skuSeparators = []string{"-", "_", ".", " ", "/", "\\"}

// Package-level compiled regex patterns for performance
var (
	numericSuffixRegex = regexp.MustCompile(`^\d{1,6}$`)

	// Hierarchical SKUs like "nwk-as001": prefix-section-number
	hierarchical3Regex = regexp.MustCompile(`^([a-z]+)-([a-z]+)(\d{1,6})$`)
	// Four-segment variant like "nwk-as-sw001": prefix-section-subsection-number
	hierarchical4Regex = regexp.MustCompile(`^([a-z]+)-([a-z]+)-([a-z]+)(\d{1,6})$`)

	separatorSplitRegex = regexp.MustCompile(`[-_./\\ ]+`)
)

// variantIndicators maps suffix vocabulary to the variant dimension it
// signals. Kept lowercase; SKUs are lowercased before lookup.
var variantIndicators = map[string]domain.VariantType{
	// Colors
	"red": domain.VariantColor, "blue": domain.VariantColor, "green": domain.VariantColor,
	"black": domain.VariantColor, "white": domain.VariantColor, "grey": domain.VariantColor,
	"gray": domain.VariantColor, "yellow": domain.VariantColor, "orange": domain.VariantColor,
	"pink": domain.VariantColor, "purple": domain.VariantColor, "brown": domain.VariantColor,
	"silver": domain.VariantColor, "gold": domain.VariantColor, "navy": domain.VariantColor,
	"beige": domain.VariantColor,

	// Sizes
	"xs": domain.VariantSize, "s": domain.VariantSize, "m": domain.VariantSize,
	"l": domain.VariantSize, "xl": domain.VariantSize, "xxl": domain.VariantSize,
	"xxxl": domain.VariantSize, "small": domain.VariantSize, "medium": domain.VariantSize,
	"large": domain.VariantSize, "mini": domain.VariantSize, "maxi": domain.VariantSize,

	// Versions
	"v1": domain.VariantVersion, "v2": domain.VariantVersion, "v3": domain.VariantVersion,
	"pro": domain.VariantVersion, "plus": domain.VariantVersion, "lite": domain.VariantVersion,
	"max": domain.VariantVersion, "basic": domain.VariantVersion, "premium": domain.VariantVersion,
	"deluxe": domain.VariantVersion, "standard": domain.VariantVersion,

	// Materials
	"cotton": domain.VariantMaterial, "wool": domain.VariantMaterial,
	"leather": domain.VariantMaterial, "silk": domain.VariantMaterial,
	"linen": domain.VariantMaterial, "steel": domain.VariantMaterial,
	"wood": domain.VariantMaterial, "plastic": domain.VariantMaterial,
	"glass": domain.VariantMaterial, "ceramic": domain.VariantMaterial,

	// Types
	"matt": domain.VariantKind, "matte": domain.VariantKind, "gloss": domain.VariantKind,
	"slim": domain.VariantKind, "wide": domain.VariantKind, "long": domain.VariantKind,
	"short": domain.VariantKind,

	// Languages
	"en": domain.VariantLanguage, "de": domain.VariantLanguage, "fr": domain.VariantLanguage,
	"es": domain.VariantLanguage, "it": domain.VariantLanguage, "nl": domain.VariantLanguage,
	"pl": domain.VariantLanguage,
}

// excludedKeywords mark bases that must never seed a variant family.
// Bundles, demos and master records look like variants lexically but are
// distinct catalog concepts.
var excludedKeywords = map[string]bool{
	"original": true,
	"master":   true,
	"kit":      true,
	"demo":     true,
	"test":     true,
	"sample":   true,
	"bundle":   true,
	"set":      true,
	"copy":     true,
	"backup":   true,
}

// PatternExtractor parses SKU strings into candidate (base, variant) pairs.
type PatternExtractor struct {
	registry         *PatternRegistry
	maxPatternLength int
}

// NewPatternExtractor creates an extractor. registry may be nil when no
// custom patterns are in play. maxPatternLength caps the number of SKU
// segments considered for splitting; zero or negative selects the default.
func NewPatternExtractor(registry *PatternRegistry, maxPatternLength int) *PatternExtractor {
	if maxPatternLength <= 0 {
		maxPatternLength = 4
	}
	return &PatternExtractor{
		registry:         registry,
		maxPatternLength: maxPatternLength,
	}
}

// Extract returns all candidate (base, variant) splits of the product's SKU.
// A SKU may yield multiple simultaneous candidates of different types; all
// are retained for the downstream layers. Candidates whose base contains an
// excluded keyword segment are dropped.
func (e *PatternExtractor) Extract(p domain.Product) []domain.PatternCandidate {
	sku := strings.ToLower(strings.TrimSpace(p.SKU))
	if sku == "" {
		return nil
	}

	var candidates []domain.PatternCandidate

	// Separator splits: base + known indicator or short numeric suffix.
	for _, sep := range skuSeparators {
		idx := strings.LastIndex(sku, sep)
		if idx <= 0 || idx >= len(sku)-1 {
			continue
		}
		base := sku[:idx]
		suffix := sku[idx+1:]

		if strings.Count(sku, sep) >= e.maxPatternLength {
			continue
		}

		if vt, ok := variantIndicators[suffix]; ok {
			candidates = append(candidates, domain.PatternCandidate{
				Base:            base,
				VariantValue:    suffix,
				VariantType:     vt,
				PatternType:     domain.PatternSimpleSuffix,
				Separator:       sep,
				SourceProductID: p.ID,
			})
		} else if numericSuffixRegex.MatchString(suffix) {
			candidates = append(candidates, domain.PatternCandidate{
				Base:            base,
				VariantValue:    suffix,
				VariantType:     domain.VariantNumeric,
				PatternType:     domain.PatternNumericSuffix,
				Separator:       sep,
				SourceProductID: p.ID,
			})
		}
	}

	// Hierarchical SKUs keep the structural prefix as the base.
	if m := hierarchical4Regex.FindStringSubmatch(sku); m != nil {
		candidates = append(candidates, domain.PatternCandidate{
			Base:            m[1] + "-" + m[2] + "-" + m[3],
			VariantValue:    m[4],
			VariantType:     domain.VariantNumeric,
			PatternType:     domain.PatternComplexHierarchical,
			Separator:       "-",
			SourceProductID: p.ID,
		})
	} else if m := hierarchical3Regex.FindStringSubmatch(sku); m != nil {
		candidates = append(candidates, domain.PatternCandidate{
			Base:            m[1] + "-" + m[2],
			VariantValue:    m[3],
			VariantType:     domain.VariantNumeric,
			PatternType:     domain.PatternComplexHierarchical,
			Separator:       "-",
			SourceProductID: p.ID,
		})
	}

	// Custom registry entries, in registration order.
	if e.registry != nil {
		candidates = append(candidates, e.registry.Extract(p)...)
	}

	return filterExcluded(candidates)
}

// filterExcluded drops candidates whose base contains an excluded keyword
// as a full segment. Substring checks would misfire on bases like
// "kitchen", so segments are compared whole.
func filterExcluded(candidates []domain.PatternCandidate) []domain.PatternCandidate {
	var kept []domain.PatternCandidate
	for _, c := range candidates {
		if baseExcluded(c.Base) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func baseExcluded(base string) bool {
	for _, seg := range separatorSplitRegex.Split(strings.ToLower(base), -1) {
		if excludedKeywords[seg] {
			return true
		}
	}
	return false
}
