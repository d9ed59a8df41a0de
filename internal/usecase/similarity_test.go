package usecase

import (
	"math"
	"testing"

	"github.com/variantlens/backend/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStringSimilarity(t *testing.T) {
	t.Run("identical strings score 1", func(t *testing.T) {
		if got := StringSimilarity("tshirt-red", "tshirt-red"); got != 1 {
			t.Errorf("StringSimilarity() = %v, want 1", got)
		}
	})

	t.Run("empty string scores 0", func(t *testing.T) {
		if got := StringSimilarity("", "tshirt"); got != 0 {
			t.Errorf("StringSimilarity(empty, x) = %v, want 0", got)
		}
		if got := StringSimilarity("tshirt", ""); got != 0 {
			t.Errorf("StringSimilarity(x, empty) = %v, want 0", got)
		}
	})

	t.Run("normalized edit distance", func(t *testing.T) {
		// levenshtein(kitten, sitting) = 3, max length 7
		want := (7.0 - 3.0) / 7.0
		if got := StringSimilarity("kitten", "sitting"); !almostEqual(got, want) {
			t.Errorf("StringSimilarity(kitten, sitting) = %v, want %v", got, want)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "tshirt-red", "tshirt-blue"
		if StringSimilarity(a, b) != StringSimilarity(b, a) {
			t.Error("StringSimilarity is not symmetric")
		}
	})

	t.Run("bounded in [0,1]", func(t *testing.T) {
		pairs := [][2]string{
			{"a", "zzzzzzzzzz"},
			{"abc", "xyz"},
			{"variant", "variance"},
		}
		for _, p := range pairs {
			got := StringSimilarity(p[0], p[1])
			if got < 0 || got > 1 {
				t.Errorf("StringSimilarity(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
			}
		}
	})
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestProductSimilarity(t *testing.T) {
	t.Run("identical products score 1", func(t *testing.T) {
		p := domain.Product{Name: "Classic T-Shirt", SKU: "TSHIRT-01", Category: "apparel", Brand: "acme"}
		if got := ProductSimilarity(p, p); !almostEqual(got, 1) {
			t.Errorf("ProductSimilarity() = %v, want 1", got)
		}
	})

	t.Run("no comparable fields scores 0", func(t *testing.T) {
		a := domain.Product{Name: "Widget"}
		b := domain.Product{SKU: "W-01"}
		if got := ProductSimilarity(a, b); got != 0 {
			t.Errorf("ProductSimilarity() = %v, want 0", got)
		}
	})

	t.Run("missing field on one side is excluded, not penalized", func(t *testing.T) {
		// Same name and category; one side has no SKU and no brand. The
		// comparison renormalizes over name and category only.
		a := domain.Product{Name: "Classic T-Shirt", SKU: "TSHIRT-01", Brand: "acme", Category: "apparel"}
		b := domain.Product{Name: "Classic T-Shirt", Category: "apparel"}
		if got := ProductSimilarity(a, b); !almostEqual(got, 1) {
			t.Errorf("ProductSimilarity() = %v, want 1", got)
		}
	})

	t.Run("category and brand match case-insensitively", func(t *testing.T) {
		a := domain.Product{Name: "Widget", Category: "Apparel", Brand: "ACME"}
		b := domain.Product{Name: "Widget", Category: "apparel", Brand: "acme"}
		if got := ProductSimilarity(a, b); !almostEqual(got, 1) {
			t.Errorf("ProductSimilarity() = %v, want 1", got)
		}
	})

	t.Run("category mismatch lowers the score", func(t *testing.T) {
		a := domain.Product{Name: "Widget", Category: "apparel"}
		b := domain.Product{Name: "Widget", Category: "kitchen"}
		// name similarity 1 * 0.5, category 0, renormalized over 0.6
		want := 0.5 / 0.6
		if got := ProductSimilarity(a, b); !almostEqual(got, want) {
			t.Errorf("ProductSimilarity() = %v, want %v", got, want)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := domain.Product{Name: "Classic T-Shirt Red", SKU: "TSHIRT-RED", Category: "apparel"}
		b := domain.Product{Name: "Classic T-Shirt Blue", SKU: "TSHIRT-BLUE", Category: "apparel"}
		if ProductSimilarity(a, b) != ProductSimilarity(b, a) {
			t.Error("ProductSimilarity is not symmetric")
		}
	})
}

func TestClamp01(t *testing.T) {
	if got := clamp01(-0.5); got != 0 {
		t.Errorf("clamp01(-0.5) = %v, want 0", got)
	}
	if got := clamp01(1.5); got != 1 {
		t.Errorf("clamp01(1.5) = %v, want 1", got)
	}
	if got := clamp01(0.42); got != 0.42 {
		t.Errorf("clamp01(0.42) = %v, want 0.42", got)
	}
}
