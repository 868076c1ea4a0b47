package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/webserver"
)

type categoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// registerDashboardRoutes registers the read-only admin views
func registerDashboardRoutes() {
	webserver.ApiGET("/categories", listCategoryOptions)
	webserver.ApiGET("/summary", getSummary)
	webserver.ApiGET("/logs", listAdminLogs)
	webserver.ApiPOST("/catalog/reload", reloadCatalog)
}

// listCategoryOptions returns the fixed label set of the product form
func listCategoryOptions(c echo.Context) error {
	opts := make([]categoryOption, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		opts = append(opts, categoryOption{Value: cat, Label: cat})
	}
	return ok(c, opts)
}

func getSummary(c echo.Context) error {
	cat := GetAppContext(c).Catalog()
	return ok(c, map[string]interface{}{
		"summary":   cat.Summary(),
		"loaded":    cat.Loaded(),
		"loaded_at": cat.LoadedAt(),
	})
}

func listAdminLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	logs, err := GetAppContext(c).Auditor().Recent(c.Request().Context(), limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query admin logs", err.Error())
	}
	if logs == nil {
		logs = []domain.AdminLog{}
	}
	return ok(c, logs)
}

// reloadCatalog forces a catalog load, e.g. after editing rows out of band
func reloadCatalog(c echo.Context) error {
	cat := GetAppContext(c).Catalog()
	if err := cat.Load(c.Request().Context()); err != nil {
		return webserver.FailErr(c, err)
	}
	return ok(c, map[string]int{"count": len(cat.Snapshot())})
}
