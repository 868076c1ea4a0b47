// Package admin implements the product mutation gateway used by the admin
// panel, its form state machine, audit log and bulk transfer.
package admin

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ummitifli/storefront/internal/apperr"
	"github.com/ummitifli/storefront/internal/catalog"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/store"
)

// Gateway sends product mutations to the store and refreshes the catalog
// after each one that succeeds.
type Gateway struct {
	store   store.Store
	catalog *catalog.Catalog
	audit   *Auditor
}

// NewGateway wires a gateway. audit may be nil.
func NewGateway(s store.Store, c *catalog.Catalog, audit *Auditor) *Gateway {
	return &Gateway{store: s, catalog: c, audit: audit}
}

// Catalog returns the catalog refreshed by this gateway.
func (g *Gateway) Catalog() *catalog.Catalog {
	return g.catalog
}

// Create inserts a product.
func (g *Gateway) Create(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	p, err := g.create(ctx, in)
	if err != nil {
		return domain.Product{}, err
	}
	g.refresh(ctx, "create")
	return p, nil
}

func (g *Gateway) create(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	p, err := g.store.Insert(ctx, in)
	if err != nil {
		zap.L().Error("create product failed", zap.Error(err), zap.String("namespace", "admin"))
		return domain.Product{}, apperr.NewMutationError("create", "", err)
	}
	g.audit.Record(ctx, ActionCreate, p.ID, "create product "+p.Name)
	return p, nil
}

// Update applies patch to product id.
func (g *Gateway) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	p, err := g.store.Update(ctx, id, patch)
	if err != nil {
		zap.L().Error("update product failed", zap.Error(err), zap.String("id", id),
			zap.String("namespace", "admin"))
		merr := apperr.NewMutationError("update", id, err)
		merr.NotFound = errors.Is(err, store.ErrNotFound)
		return domain.Product{}, merr
	}
	g.audit.Record(ctx, ActionUpdate, id, "update product "+p.Name)
	g.refresh(ctx, "update")
	return p, nil
}

// Delete removes product id. Deleting an unknown id succeeds.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	if err := g.store.Delete(ctx, id); err != nil {
		zap.L().Error("delete product failed", zap.Error(err), zap.String("id", id),
			zap.String("namespace", "admin"))
		return apperr.NewMutationError("delete", id, err)
	}
	g.audit.Record(ctx, ActionDelete, id, "delete product "+id)
	g.refresh(ctx, "delete")
	return nil
}

// refresh reloads the catalog. A failure keeps the stale snapshot and does
// not fail the mutation that triggered it.
func (g *Gateway) refresh(ctx context.Context, op string) {
	if g.catalog == nil {
		return
	}
	if err := g.catalog.RefreshAfterMutation(ctx); err != nil {
		zap.L().Warn("catalog refresh after mutation failed", zap.Error(err), zap.String("op", op),
			zap.String("namespace", "admin"))
	}
}
