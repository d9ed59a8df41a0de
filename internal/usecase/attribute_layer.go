package usecase

import (
	"sort"
	"strings"

	"github.com/variantlens/backend/internal/domain"
)

// attributeKeywords maps free-text vocabulary to the attribute dimension it
// signals. Words carry a weight so that stronger signals win when a word
// appears in several tables (none do today, but the shape allows it).
type attributeKeyword struct {
	dimension domain.VariantType
	weight    float64
}

var attributeKeywords = map[string]attributeKeyword{
	// Size vocabulary
	"xs": {domain.VariantSize, 1.0}, "small": {domain.VariantSize, 1.0},
	"medium": {domain.VariantSize, 1.0}, "large": {domain.VariantSize, 1.0},
	"xl": {domain.VariantSize, 1.0}, "xxl": {domain.VariantSize, 1.0},
	"mini": {domain.VariantSize, 0.8}, "jumbo": {domain.VariantSize, 0.8},

	// Color vocabulary
	"red": {domain.VariantColor, 1.0}, "blue": {domain.VariantColor, 1.0},
	"green": {domain.VariantColor, 1.0}, "black": {domain.VariantColor, 1.0},
	"white": {domain.VariantColor, 1.0}, "yellow": {domain.VariantColor, 1.0},
	"grey": {domain.VariantColor, 1.0}, "gray": {domain.VariantColor, 1.0},
	"silver": {domain.VariantColor, 0.8}, "gold": {domain.VariantColor, 0.8},

	// Version vocabulary
	"pro": {domain.VariantVersion, 1.0}, "plus": {domain.VariantVersion, 1.0},
	"lite": {domain.VariantVersion, 1.0}, "premium": {domain.VariantVersion, 0.8},
	"basic": {domain.VariantVersion, 0.8}, "deluxe": {domain.VariantVersion, 0.8},

	// Material vocabulary
	"cotton": {domain.VariantMaterial, 1.0}, "leather": {domain.VariantMaterial, 1.0},
	"wool": {domain.VariantMaterial, 1.0}, "silk": {domain.VariantMaterial, 1.0},
	"steel": {domain.VariantMaterial, 0.8}, "wood": {domain.VariantMaterial, 0.8},

	// Type vocabulary
	"matte": {domain.VariantKind, 0.8}, "gloss": {domain.VariantKind, 0.8},
	"slim": {domain.VariantKind, 0.8}, "wide": {domain.VariantKind, 0.8},

	// Language vocabulary
	"english": {domain.VariantLanguage, 1.0}, "german": {domain.VariantLanguage, 1.0},
	"french": {domain.VariantLanguage, 1.0}, "spanish": {domain.VariantLanguage, 1.0},
}

// attributeTokenRegex reuses the extractor's separator set for free text.
var attributeTokenRegex = separatorSplitRegex

// AttributeLayer groups products that vary along the same set of
// categorical attribute dimensions (color, size, version, ...). Attributes
// are mined from free text on name, SKU and description.
type AttributeLayer struct{}

// NewAttributeLayer creates the attribute-based detection layer.
func NewAttributeLayer() *AttributeLayer {
	return &AttributeLayer{}
}

// Name identifies the layer in result metadata.
func (l *AttributeLayer) Name() string { return "attribute_match" }

// Build extracts each product's attribute set and groups products by the
// sorted attribute-dimension key. Products with no detectable attribute are
// skipped.
func (l *AttributeLayer) Build(products []domain.Product, opts domain.DetectionOptions) []domain.Group {
	type bucket struct {
		dimensions []string
		members    []domain.GroupMember
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, p := range products {
		attrs := extractAttributes(p)
		if len(attrs) == 0 {
			continue
		}

		dims := make([]string, 0, len(attrs))
		values := make([]string, 0, len(attrs))
		for dim := range attrs {
			dims = append(dims, string(dim))
		}
		sort.Strings(dims)
		for _, dim := range dims {
			values = append(values, attrs[domain.VariantType(dim)])
		}

		key := strings.Join(dims, "|")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{dimensions: dims}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, domain.GroupMember{
			ProductID:    p.ID,
			VariantValue: strings.Join(values, "/"),
		})
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
		groups = append(groups, domain.Group{
			BasePattern: key,
			PatternType: domain.PatternSimpleSuffix,
			Members:     b.members,
			Confidence:  attributeGroupConfidence(len(b.dimensions), len(b.members)),
			Metadata:    map[string]string{"detectionMethod": l.Name()},
		})
	}
	return groups
}

// attributeGroupConfidence starts at 0.6, adds 0.1 per attribute dimension
// up to three, and 0.1 more for groups larger than three, capped at 1.
func attributeGroupConfidence(attributeCount, groupSize int) float64 {
	c := 0.6
	if attributeCount > 3 {
		attributeCount = 3
	}
	c += 0.1 * float64(attributeCount)
	if groupSize > 3 {
		c += 0.1
	}
	return clamp01(c)
}

// extractAttributes mines one value per attribute dimension from the
// product's free-text fields. When a dimension matches several words, the
// heavier keyword wins; first occurrence breaks weight ties.
func extractAttributes(p domain.Product) map[domain.VariantType]string {
	attrs := make(map[domain.VariantType]string)
	weights := make(map[domain.VariantType]float64)

	for _, field := range []string{p.Name, p.SKU, p.Description} {
		if field == "" {
			continue
		}
		for _, token := range attributeTokenRegex.Split(strings.ToLower(field), -1) {
			kw, ok := attributeKeywords[token]
			if !ok {
				continue
			}
			if kw.weight > weights[kw.dimension] {
				weights[kw.dimension] = kw.weight
				attrs[kw.dimension] = token
			}
		}
	}
	return attrs
}
