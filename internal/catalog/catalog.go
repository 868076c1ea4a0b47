// Package catalog holds the shopper-facing product snapshot and the category
// filter over it.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/ummitifli/storefront/internal/apperr"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/store"
)

// TopicRefreshed is published with the product count after every successful load.
const TopicRefreshed = "catalog:refreshed"

// Catalog is the in-memory copy of the products table. Readers always see a
// complete snapshot, loads run one at a time.
type Catalog struct {
	store store.Store
	bus   EventBus.Bus

	loadMu sync.Mutex

	mu       sync.RWMutex
	products []domain.Product
	loaded   bool
	loadedAt time.Time
	lastErr  error
}

// New builds an empty catalog over s. bus may be nil.
func New(s store.Store, bus EventBus.Bus) *Catalog {
	return &Catalog{store: s, bus: bus, products: []domain.Product{}}
}

// Load fetches every product newest first and replaces the snapshot. On
// failure the previous snapshot is kept and a *apperr.FetchError returned.
func (c *Catalog) Load(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	rows, err := c.store.List(ctx, store.Newest)
	if err != nil {
		ferr := apperr.NewFetchError("list products", err)
		zap.L().Error("load products failed", zap.Error(err), zap.String("namespace", "catalog"))
		c.mu.Lock()
		c.lastErr = ferr
		c.mu.Unlock()
		return ferr
	}
	if rows == nil {
		rows = []domain.Product{}
	}

	c.mu.Lock()
	c.products = rows
	c.loaded = true
	c.loadedAt = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	zap.L().Debug("catalog loaded", zap.Int("count", len(rows)), zap.String("namespace", "catalog"))
	if c.bus != nil {
		c.bus.Publish(TopicRefreshed, len(rows))
	}
	return nil
}

// RefreshAfterMutation reloads after an admin change.
func (c *Catalog) RefreshAfterMutation(ctx context.Context) error {
	return c.Load(ctx)
}

// Snapshot returns the current products. The slice is shared, callers must not modify it.
func (c *Catalog) Snapshot() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.products
}

// Categories lists the sentinel plus the categories present in the snapshot.
func (c *Catalog) Categories() []string {
	return ListCategories(c.Snapshot())
}

// Filter applies FilterByCategory to the snapshot.
func (c *Catalog) Filter(selected string) []domain.Product {
	return FilterByCategory(c.Snapshot(), selected)
}

// Find looks a product up by id.
func (c *Catalog) Find(id string) (domain.Product, bool) {
	for _, p := range c.Snapshot() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Loaded reports whether at least one load succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// LoadedAt is the time of the last successful load.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// LastError returns the error of the most recent load, nil after a success.
func (c *Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}
