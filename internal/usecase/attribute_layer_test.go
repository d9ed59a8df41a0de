package usecase

import (
	"math"
	"strings"
	"testing"

	"github.com/variantlens/backend/internal/domain"
)

func TestAttributeLayer_Build(t *testing.T) {
	layer := NewAttributeLayer()
	opts := domain.DefaultDetectionOptions()

	t.Run("groups products varying along the same dimension", func(t *testing.T) {
		products := []domain.Product{
			{ID: "p1", Name: "Shirt Red"},
			{ID: "p2", Name: "Shirt Blue"},
			{ID: "p3", Name: "Plain Socks"},
		}

		groups := layer.Build(products, opts)
		if len(groups) != 1 {
			t.Fatalf("len(groups) = %d, want 1: %+v", len(groups), groups)
		}

		g := groups[0]
		if g.BasePattern != "color" {
			t.Errorf("BasePattern = %q, want color", g.BasePattern)
		}
		if len(g.Members) != 2 {
			t.Errorf("len(Members) = %d, want 2", len(g.Members))
		}
		if g.Metadata["detectionMethod"] != "attribute_match" {
			t.Errorf("detectionMethod = %q, want attribute_match", g.Metadata["detectionMethod"])
		}
	})

	t.Run("multi-dimension products form their own group", func(t *testing.T) {
		products := []domain.Product{
			{ID: "p1", Name: "Shirt Red Large"},
			{ID: "p2", Name: "Shirt Blue Small"},
			{ID: "p3", Name: "Mug Red"},
			{ID: "p4", Name: "Mug Blue"},
		}

		groups := layer.Build(products, opts)
		if len(groups) != 2 {
			t.Fatalf("len(groups) = %d, want 2: %+v", len(groups), groups)
		}

		byKey := make(map[string]domain.Group)
		for _, g := range groups {
			byKey[g.BasePattern] = g
		}
		if _, ok := byKey["color|size"]; !ok {
			t.Errorf("missing color|size group, got keys %v", keysOf(byKey))
		}
		if _, ok := byKey["color"]; !ok {
			t.Errorf("missing color group, got keys %v", keysOf(byKey))
		}
	})

	t.Run("variant value joins dimension values", func(t *testing.T) {
		products := []domain.Product{
			{ID: "p1", Name: "Shirt Red Large"},
			{ID: "p2", Name: "Shirt Blue Small"},
		}

		groups := layer.Build(products, opts)
		if len(groups) != 1 {
			t.Fatalf("len(groups) = %d, want 1", len(groups))
		}
		if got := groups[0].Members[0].VariantValue; !strings.Contains(got, "/") {
			t.Errorf("VariantValue = %q, want joined multi-dimension value", got)
		}
	})

	t.Run("attributes mined from SKU and description too", func(t *testing.T) {
		products := []domain.Product{
			{ID: "p1", Name: "Tumbler", SKU: "TMB-RED", Description: ""},
			{ID: "p2", Name: "Tumbler", SKU: "TMB-2", Description: "A blue travel tumbler"},
		}

		groups := layer.Build(products, opts)
		if len(groups) != 1 {
			t.Fatalf("len(groups) = %d, want 1: %+v", len(groups), groups)
		}
	})

	t.Run("products without attributes are skipped", func(t *testing.T) {
		products := []domain.Product{
			{ID: "p1", Name: "Plain Socks"},
			{ID: "p2", Name: "Other Socks"},
		}

		groups := layer.Build(products, opts)
		if len(groups) != 0 {
			t.Errorf("len(groups) = %d, want 0: %+v", len(groups), groups)
		}
	})
}

func keysOf(m map[string]domain.Group) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestAttributeGroupConfidence(t *testing.T) {
	tests := []struct {
		attrs, size int
		want        float64
	}{
		{1, 2, 0.7},
		{2, 2, 0.8},
		{3, 2, 0.9},
		{5, 2, 0.9},  // dimension bonus caps at three
		{3, 4, 1.0},  // large-group bonus
		{5, 10, 1.0}, // capped at one
	}

	for _, tt := range tests {
		got := attributeGroupConfidence(tt.attrs, tt.size)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("attributeGroupConfidence(%d, %d) = %v, want %v", tt.attrs, tt.size, got, tt.want)
		}
	}
}

func TestExtractAttributes(t *testing.T) {
	t.Run("one value per dimension", func(t *testing.T) {
		attrs := extractAttributes(domain.Product{Name: "Red Large Cotton Shirt"})

		if attrs[domain.VariantColor] != "red" {
			t.Errorf("color = %q, want red", attrs[domain.VariantColor])
		}
		if attrs[domain.VariantSize] != "large" {
			t.Errorf("size = %q, want large", attrs[domain.VariantSize])
		}
		if attrs[domain.VariantMaterial] != "cotton" {
			t.Errorf("material = %q, want cotton", attrs[domain.VariantMaterial])
		}
	})

	t.Run("heavier keyword wins within a dimension", func(t *testing.T) {
		// "mini" (0.8) loses to "large" (1.0) for the size dimension.
		attrs := extractAttributes(domain.Product{Name: "Mini Large Duffel"})
		if attrs[domain.VariantSize] != "large" {
			t.Errorf("size = %q, want large", attrs[domain.VariantSize])
		}
	})

	t.Run("no attributes yields empty map", func(t *testing.T) {
		attrs := extractAttributes(domain.Product{Name: "Plain Socks"})
		if len(attrs) != 0 {
			t.Errorf("attrs = %v, want empty", attrs)
		}
	})
}
