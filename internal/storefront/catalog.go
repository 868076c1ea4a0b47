package storefront

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/webserver"
)

func registerCatalogRoutes() {
	webserver.PubGET("/products", listProducts)
	webserver.PubGET("/products/:id", getProduct)
	webserver.PubGET("/categories", listCategories)
}

// listProducts filters the snapshot by ?category=, the sentinel or no value
// meaning every product
func listProducts(c echo.Context) error {
	cat := GetAppContext(c).Catalog()
	selected := strings.TrimSpace(c.QueryParam("category"))
	if selected == "" {
		selected = domain.AllCategories
	}
	views := productViews(cat.Filter(selected))
	if !cat.Loaded() {
		c.Response().Header().Set("X-Catalog-Stale", "true")
	}
	return webserver.OK(c, views)
}

func getProduct(c echo.Context) error {
	p, found := GetAppContext(c).Catalog().Find(c.Param("id"))
	if !found {
		return webserver.Fail(c, http.StatusNotFound, "NOT_FOUND", "المنتج غير موجود", nil)
	}
	return webserver.OK(c, NewProductView(p))
}

func listCategories(c echo.Context) error {
	return webserver.OK(c, GetAppContext(c).Catalog().Categories())
}

