package usecase

import (
	"testing"

	"github.com/variantlens/backend/internal/domain"
)

func findCandidate(candidates []domain.PatternCandidate, base string) (domain.PatternCandidate, bool) {
	for _, c := range candidates {
		if c.Base == base {
			return c, true
		}
	}
	return domain.PatternCandidate{}, false
}

func TestExtract_SimpleSuffix(t *testing.T) {
	e := NewPatternExtractor(nil, 4)

	t.Run("color suffix", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "TSHIRT-RED"})

		c, ok := findCandidate(candidates, "tshirt")
		if !ok {
			t.Fatalf("no candidate with base tshirt, got %+v", candidates)
		}
		if c.VariantValue != "red" {
			t.Errorf("VariantValue = %q, want red", c.VariantValue)
		}
		if c.VariantType != domain.VariantColor {
			t.Errorf("VariantType = %q, want %q", c.VariantType, domain.VariantColor)
		}
		if c.PatternType != domain.PatternSimpleSuffix {
			t.Errorf("PatternType = %q, want %q", c.PatternType, domain.PatternSimpleSuffix)
		}
	})

	t.Run("size suffix with underscore separator", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "HOODIE_XL"})

		c, ok := findCandidate(candidates, "hoodie")
		if !ok {
			t.Fatalf("no candidate with base hoodie, got %+v", candidates)
		}
		if c.VariantType != domain.VariantSize {
			t.Errorf("VariantType = %q, want %q", c.VariantType, domain.VariantSize)
		}
		if c.Separator != "_" {
			t.Errorf("Separator = %q, want _", c.Separator)
		}
	})

	t.Run("version suffix", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "WIDGET-PRO"})

		c, ok := findCandidate(candidates, "widget")
		if !ok {
			t.Fatalf("no candidate with base widget, got %+v", candidates)
		}
		if c.VariantType != domain.VariantVersion {
			t.Errorf("VariantType = %q, want %q", c.VariantType, domain.VariantVersion)
		}
	})
}

func TestExtract_NumericSuffix(t *testing.T) {
	e := NewPatternExtractor(nil, 4)

	t.Run("short numeric suffix", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "MUG-001"})

		c, ok := findCandidate(candidates, "mug")
		if !ok {
			t.Fatalf("no candidate with base mug, got %+v", candidates)
		}
		if c.VariantValue != "001" {
			t.Errorf("VariantValue = %q, want 001", c.VariantValue)
		}
		if c.PatternType != domain.PatternNumericSuffix {
			t.Errorf("PatternType = %q, want %q", c.PatternType, domain.PatternNumericSuffix)
		}
	})

	t.Run("suffix longer than six digits is not numeric", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "MUG-1234567"})
		if _, ok := findCandidate(candidates, "mug"); ok {
			t.Errorf("expected no numeric candidate for 7-digit suffix, got %+v", candidates)
		}
	})
}

func TestExtract_Hierarchical(t *testing.T) {
	e := NewPatternExtractor(nil, 4)

	t.Run("three-segment hierarchical SKU", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "nwk-as001"})

		c, ok := findCandidate(candidates, "nwk-as")
		if !ok {
			t.Fatalf("no candidate with base nwk-as, got %+v", candidates)
		}
		if c.VariantValue != "001" {
			t.Errorf("VariantValue = %q, want 001", c.VariantValue)
		}
		if c.PatternType != domain.PatternComplexHierarchical {
			t.Errorf("PatternType = %q, want %q", c.PatternType, domain.PatternComplexHierarchical)
		}
	})

	t.Run("four-segment hierarchical SKU wins over three-segment", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "nwk-as-sw001"})

		c, ok := findCandidate(candidates, "nwk-as-sw")
		if !ok {
			t.Fatalf("no candidate with base nwk-as-sw, got %+v", candidates)
		}
		if c.PatternType != domain.PatternComplexHierarchical {
			t.Errorf("PatternType = %q, want %q", c.PatternType, domain.PatternComplexHierarchical)
		}
	})
}

func TestExtract_Exclusions(t *testing.T) {
	e := NewPatternExtractor(nil, 4)

	t.Run("excluded keyword as base segment drops candidate", func(t *testing.T) {
		for _, sku := range []string{"KIT-RED", "MASTER-001", "BUNDLE-XL", "demo-blue"} {
			if candidates := e.Extract(domain.Product{ID: "p1", SKU: sku}); len(candidates) != 0 {
				t.Errorf("Extract(%q) = %+v, want no candidates", sku, candidates)
			}
		}
	})

	t.Run("keyword inside a longer segment does not exclude", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "KITCHEN-RED"})
		if _, ok := findCandidate(candidates, "kitchen"); !ok {
			t.Errorf("expected kitchen base to survive exclusion filter, got %+v", candidates)
		}
	})

	t.Run("keyword in middle segment excludes", func(t *testing.T) {
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "acme-demo-red"})
		if len(candidates) != 0 {
			t.Errorf("Extract() = %+v, want no candidates for demo segment", candidates)
		}
	})
}

func TestExtract_Limits(t *testing.T) {
	t.Run("empty SKU yields nothing", func(t *testing.T) {
		e := NewPatternExtractor(nil, 4)
		if candidates := e.Extract(domain.Product{ID: "p1"}); candidates != nil {
			t.Errorf("Extract() = %+v, want nil", candidates)
		}
	})

	t.Run("too many separator segments are skipped", func(t *testing.T) {
		e := NewPatternExtractor(nil, 4)
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "a-b-c-d-red"})
		if len(candidates) != 0 {
			t.Errorf("Extract() = %+v, want no candidates past segment limit", candidates)
		}
	})

	t.Run("zero max length falls back to default", func(t *testing.T) {
		e := NewPatternExtractor(nil, 0)
		candidates := e.Extract(domain.Product{ID: "p1", SKU: "TSHIRT-RED"})
		if _, ok := findCandidate(candidates, "tshirt"); !ok {
			t.Errorf("expected default segment limit to admit tshirt-red, got %+v", candidates)
		}
	})
}

func TestExtract_CustomRegistry(t *testing.T) {
	registry := NewPatternRegistry()
	if err := registry.Register("season", `^(.+)-(ss|aw)\d{2}$`, domain.VariantCustom, 1.0, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	e := NewPatternExtractor(registry, 4)
	candidates := e.Extract(domain.Product{ID: "p1", SKU: "jacket-aw24"})

	var custom *domain.PatternCandidate
	for i := range candidates {
		if candidates[i].PatternType == domain.PatternCustom {
			custom = &candidates[i]
		}
	}
	if custom == nil {
		t.Fatalf("no custom candidate, got %+v", candidates)
	}
	if custom.Base != "jacket" {
		t.Errorf("Base = %q, want jacket", custom.Base)
	}
}
