// Package store holds the table-oriented data store the catalog and the admin
// gateway talk to, together with its backends.
package store

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/ummitifli/storefront/internal/domain"
)

// ErrNotFound is returned by Update when the id does not exist.
var ErrNotFound = errors.New("product not found")

// Filter is an equality condition on a column.
type Filter struct {
	Column string
	Value  string
}

// Order sorts on a column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select on the products table.
type Query struct {
	Filters []Filter
	Order   []Order
}

// Newest selects every product, most recently created first.
var Newest = Query{Order: []Order{{Column: "created_at", Desc: true}}}

// ByCategory selects the products of one category, newest first.
func ByCategory(category string) Query {
	return Query{
		Filters: []Filter{{Column: "category", Value: category}},
		Order:   Newest.Order,
	}
}

// Store is the data store collaborator.
type Store interface {
	// List selects products matching q
	List(ctx context.Context, q Query) ([]domain.Product, error)

	// Insert creates a product and returns it with its id and timestamps
	Insert(ctx context.Context, in domain.ProductInput) (domain.Product, error)

	// Update applies a partial update, ErrNotFound when id is unknown
	Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error)

	// Delete removes a product, deleting an unknown id is not an error
	Delete(ctx context.Context, id string) error

	// Close releases the backend
	Close() error
}

// columns lists the columns a Query may reference.
var columns = map[string]bool{
	"id":         true,
	"name":       true,
	"price":      true,
	"category":   true,
	"in_stock":   true,
	"created_at": true,
	"updated_at": true,
}

// Validate rejects columns outside the products table.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if !columns[f.Column] {
			return errors.Errorf("unknown filter column %q", f.Column)
		}
	}
	for _, o := range q.Order {
		if !columns[o.Column] {
			return errors.Errorf("unknown order column %q", o.Column)
		}
	}
	return nil
}

// match evaluates the filters of q against p, used by the in-process backends.
func (q Query) match(p domain.Product) bool {
	for _, f := range q.Filters {
		switch f.Column {
		case "id":
			if p.ID != f.Value {
				return false
			}
		case "name":
			if p.Name != f.Value {
				return false
			}
		case "category":
			if p.Category != f.Value {
				return false
			}
		case "in_stock":
			if p.InStock != cast.ToBool(f.Value) {
				return false
			}
		case "price":
			if p.Price != cast.ToFloat64(f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// sortRows orders rows in place following q.Order. Ties keep the incoming order.
func sortRows(rows []domain.Product, order []Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := compareColumn(rows[i], rows[j], o.Column)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareColumn(a, b domain.Product, col string) int {
	switch col {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "category":
		return strings.Compare(a.Category, b.Category)
	case "price":
		return compareFloat(a.Price, b.Price)
	case "in_stock":
		return compareFloat(cast.ToFloat64(a.InStock), cast.ToFloat64(b.InStock))
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
