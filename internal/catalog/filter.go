package catalog

import (
	"sort"

	"github.com/ummitifli/storefront/internal/domain"
)

// ListCategories returns the "all products" sentinel followed by the distinct
// categories of products in lexicographic order.
func ListCategories(products []domain.Product) []string {
	seen := make(map[string]struct{}, len(products))
	var names []string
	for _, p := range products {
		if p.Category == domain.AllCategories {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		names = append(names, p.Category)
	}
	sort.Strings(names)
	return append([]string{domain.AllCategories}, names...)
}

// FilterByCategory returns the products in selected, in catalog order. The
// sentinel selects everything. The input slice is never modified.
func FilterByCategory(products []domain.Product, selected string) []domain.Product {
	if selected == domain.AllCategories {
		out := make([]domain.Product, len(products))
		copy(out, products)
		return out
	}
	out := make([]domain.Product, 0)
	for _, p := range products {
		if p.Category == selected {
			out = append(out, p)
		}
	}
	return out
}
