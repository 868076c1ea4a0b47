package domain

import (
	"strings"
	"testing"
	"time"
)

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		original *float64
		want     int
		badge    bool
	}{
		{"no original price", 100, nil, 0, false},
		{"zero original price", 100, Float64Ptr(0), 0, false},
		{"quarter off", 75, Float64Ptr(100), 25, true},
		{"rounds to nearest", 2, Float64Ptr(3), 33, true},
		{"original below price", 120, Float64Ptr(100), -20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: tt.price, OriginalPrice: tt.original}
			if got := p.DiscountPercent(); got != tt.want {
				t.Fatalf("DiscountPercent() = %d, want %d", got, tt.want)
			}
			if got := p.HasDiscount(); got != tt.badge {
				t.Fatalf("HasDiscount() = %v, want %v", got, tt.badge)
			}
		})
	}
}

func TestProductImage(t *testing.T) {
	if got := (Product{}).Image(); got != PlaceholderImage {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := (Product{ImageURL: StringPtr("")}).Image(); got != PlaceholderImage {
		t.Fatalf("expected placeholder for empty url, got %q", got)
	}
	if got := (Product{ImageURL: StringPtr("https://cdn.test/a.jpg")}).Image(); got != "https://cdn.test/a.jpg" {
		t.Fatalf("unexpected image %q", got)
	}
}

func TestProductPatch(t *testing.T) {
	p := Product{ID: "p1", Name: "old", Price: 10, Category: "X", InStock: true}

	patch := ProductPatch{Price: Float64Ptr(12.5), InStock: BoolPtr(false)}
	if patch.Empty() {
		t.Fatal("patch should not be empty")
	}
	cols := patch.Columns()
	if len(cols) != 2 || cols["price"] != 12.5 || cols["in_stock"] != false {
		t.Fatalf("unexpected columns %v", cols)
	}

	patch.Apply(&p)
	if p.Name != "old" || p.Price != 12.5 || p.InStock || p.Category != "X" {
		t.Fatalf("unexpected product after patch %+v", p)
	}
	if !(ProductPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestNewProduct(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := NewProduct("id-1", ProductInput{Name: "n", Price: 3, Category: "c", InStock: true}, now)
	if p.ID != "id-1" || p.CreatedAt == nil || !p.CreatedAt.Equal(now) || p.UpdatedAt == nil {
		t.Fatalf("unexpected product %+v", p)
	}
}

func TestCategories(t *testing.T) {
	if len(Categories) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(Categories))
	}
	if IsKnownCategory(AllCategories) {
		t.Fatal("sentinel must not be a known category")
	}
	if !IsKnownCategory("عربات الأطفال") {
		t.Fatal("expected known category")
	}
}

func TestFormatPrice(t *testing.T) {
	got := FormatPrice(20)
	if !strings.HasPrefix(got, "20.00") || !strings.HasSuffix(got, Currency) {
		t.Fatalf("FormatPrice(20) = %q", got)
	}
}
