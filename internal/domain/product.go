package domain

// Product represents a catalog item supplied by the host application.
// The detection engine treats products as immutable input. Optional fields
// are zero-valued when absent, except Price, where a pointer distinguishes
// a genuine zero price from a missing one.
type Product struct {
	ID          string   `json:"id"`
	SKU         string   `json:"sku,omitempty"`
	Name        string   `json:"name,omitempty"`
	Category    string   `json:"category,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// VariantType classifies the differentiating value within a base-pattern family.
type VariantType string

const (
	VariantSize     VariantType = "size"
	VariantColor    VariantType = "color"
	VariantVersion  VariantType = "version"
	VariantMaterial VariantType = "material"
	VariantKind     VariantType = "type"
	VariantLanguage VariantType = "language"
	VariantNumeric  VariantType = "numeric"
	VariantCustom   VariantType = "custom"
)

// PatternType identifies how a candidate was extracted from a SKU.
type PatternType string

const (
	PatternSimpleSuffix        PatternType = "simple_suffix"
	PatternNumericSuffix       PatternType = "numeric_suffix"
	PatternComplexHierarchical PatternType = "complex_hierarchical"
	PatternCustom              PatternType = "custom"
)

// PatternCandidate is one candidate (base, variant) split of a single SKU.
// One SKU may yield several simultaneous candidates of different types; all
// are retained for the downstream layers.
type PatternCandidate struct {
	Base            string      `json:"base"`
	VariantValue    string      `json:"variantValue"`
	VariantType     VariantType `json:"variantType"`
	PatternType     PatternType `json:"patternType"`
	Separator       string      `json:"separator,omitempty"`
	SourceProductID string      `json:"sourceProductId"`
}
