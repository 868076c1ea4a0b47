package adminapi

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/catalog"
	"github.com/ummitifli/storefront/internal/webserver"
)

// AppContext is what the admin handlers need from the application.
type AppContext interface {
	Config() *config.AppConfig
	Catalog() *catalog.Catalog
	Gateway() *admin.Gateway
	Forms() *admin.Forms
	Auditor() *admin.Auditor
}

// Init registers the admin routes on the global web server.
func Init() {
	registerProductRoutes()
	registerFormRoutes()
	registerDashboardRoutes()
	registerTransferRoutes()
	registerSchedulerRoutes()
}

// GetAppContext returns the application context attached by the web server.
func GetAppContext(c echo.Context) AppContext {
	return c.Get(webserver.AppContextKey).(AppContext)
}

// operatorContext carries the acting admin into the gateway for the audit log.
func operatorContext(c echo.Context) context.Context {
	op := admin.Operator{IP: c.RealIP()}
	if u, ok := webserver.CurrentUser(c); ok {
		op.Name = u.Email
	}
	return admin.WithOperator(c.Request().Context(), op)
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

// parsePagination reads page and pageSize, defaulting to 1 and 20.
func parsePagination(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.QueryParam("pageSize"))
	if err != nil || pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}
