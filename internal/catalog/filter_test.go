package catalog

import (
	"testing"

	"github.com/ummitifli/storefront/internal/domain"
)

func TestListCategories(t *testing.T) {
	tests := []struct {
		name     string
		products []domain.Product
		want     []string
	}{
		{"empty", nil, []string{domain.AllCategories}},
		{
			"dedup and sort",
			[]domain.Product{{Category: "ب"}, {Category: "أ"}, {Category: "ب"}, {Category: "ت"}},
			[]string{domain.AllCategories, "أ", "ب", "ت"},
		},
		{
			"sentinel as a category is not repeated",
			[]domain.Product{{Category: domain.AllCategories}, {Category: "X"}},
			[]string{domain.AllCategories, "X"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ListCategories(tt.products)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFilterByCategory(t *testing.T) {
	a := domain.Product{ID: "A", Category: "X", Price: 10}
	b := domain.Product{ID: "B", Category: "Y", Price: 20}
	c := domain.Product{ID: "C", Category: "X", Price: 5}
	all := []domain.Product{a, b, c}

	t.Run("sentinel returns everything in order", func(t *testing.T) {
		got := FilterByCategory(all, domain.AllCategories)
		if len(got) != 3 || got[0].ID != "A" || got[1].ID != "B" || got[2].ID != "C" {
			t.Fatalf("unexpected %v", got)
		}
		got[0].ID = "changed"
		if all[0].ID != "A" {
			t.Fatal("input was modified")
		}
	})

	t.Run("category subset", func(t *testing.T) {
		got := FilterByCategory(all, "X")
		if len(got) != 2 || got[0].ID != "A" || got[1].ID != "C" {
			t.Fatalf("unexpected %v", got)
		}
	})

	t.Run("scenario", func(t *testing.T) {
		got := FilterByCategory([]domain.Product{a, b}, "X")
		if len(got) != 1 || got[0].ID != "A" {
			t.Fatalf("unexpected %v", got)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		got := FilterByCategory(all, "Z")
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %v", got)
		}
	})
}

func TestSummarize(t *testing.T) {
	orig := 40.0
	s := Summarize([]domain.Product{
		{Category: "X", Price: 10, InStock: true},
		{Category: "X", Price: 30, OriginalPrice: &orig},
		{Category: "Y", Price: 20, InStock: true},
	})
	if s.Total != 3 || s.InStock != 2 || s.Discounted != 1 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.ByCategory["X"] != 2 || s.ByCategory["Y"] != 1 {
		t.Fatalf("unexpected category counts %v", s.ByCategory)
	}
	if s.MinPrice != 10 || s.MaxPrice != 30 || s.MeanPrice != 20 || s.MedianPrice != 20 {
		t.Fatalf("unexpected prices %+v", s)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.MeanPrice != 0 {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}
