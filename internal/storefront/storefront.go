// Package storefront serves the shopper-facing API: catalog browsing, the
// session cart and account sign in.
package storefront

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/cart"
	"github.com/ummitifli/storefront/internal/catalog"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/identity"
	"github.com/ummitifli/storefront/internal/webserver"
)

// AppContext is what the public handlers need from the application.
type AppContext interface {
	Config() *config.AppConfig
	Catalog() *catalog.Catalog
	Carts() *cart.Registry
	Identity() identity.Provider
}

// Init registers the public routes on the global web server.
func Init() {
	registerCatalogRoutes()
	registerCartRoutes()
	registerAuthRoutes()
}

func GetAppContext(c echo.Context) AppContext {
	return c.Get(webserver.AppContextKey).(AppContext)
}

// ProductView is a product with its display values resolved.
type ProductView struct {
	domain.Product
	Image              string `json:"image"`
	DiscountPercent    int    `json:"discount_percent"`
	DiscountLabel      string `json:"discount_label,omitempty"`
	PriceLabel         string `json:"price_label"`
	OriginalPriceLabel string `json:"original_price_label,omitempty"`
	StockLabel         string `json:"stock_label"`
}

func NewProductView(p domain.Product) ProductView {
	v := ProductView{
		Product:    p,
		Image:      p.Image(),
		PriceLabel: domain.FormatPrice(p.Price),
		StockLabel: "أضف للسلة",
	}
	if p.HasDiscount() {
		v.DiscountPercent = p.DiscountPercent()
		v.DiscountLabel = "-" + strconv.Itoa(v.DiscountPercent) + "%"
		v.OriginalPriceLabel = domain.FormatPrice(*p.OriginalPrice)
	}
	if !p.InStock {
		v.StockLabel = "نفد من المخزون"
	}
	return v
}

func productViews(products []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductView(p))
	}
	return out
}
