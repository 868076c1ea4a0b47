package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/webserver"
)

type formOpenPayload struct {
	ProductID string `json:"product_id"`
}

// registerFormRoutes exposes the per-admin product form
func registerFormRoutes() {
	webserver.ApiGET("/form", getForm)
	webserver.ApiPOST("/form/open", openForm)
	webserver.ApiPUT("/form", setFormFields)
	webserver.ApiPOST("/form/submit", submitForm)
	webserver.ApiPOST("/form/cancel", cancelForm)
}

func currentForm(c echo.Context) *admin.Form {
	owner := "anonymous"
	if u, ok := webserver.CurrentUser(c); ok {
		owner = u.ID
	}
	return GetAppContext(c).Forms().Get(owner)
}

func formError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, admin.ErrSubmitInFlight):
		return fail(c, http.StatusConflict, "SUBMIT_IN_FLIGHT", err.Error(), nil)
	case errors.Is(err, admin.ErrFormClosed):
		return fail(c, http.StatusConflict, "FORM_CLOSED", err.Error(), nil)
	}
	return webserver.FailErr(c, err)
}

func getForm(c echo.Context) error {
	return ok(c, currentForm(c).View())
}

// openForm starts a create form, or an edit form when product_id is given
func openForm(c echo.Context) error {
	var payload formOpenPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	f := currentForm(c)
	if payload.ProductID == "" {
		if err := f.OpenCreate(); err != nil {
			return formError(c, err)
		}
		return ok(c, f.View())
	}
	p, found := GetAppContext(c).Catalog().Find(payload.ProductID)
	if !found {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err := f.OpenEdit(p); err != nil {
		return formError(c, err)
	}
	return ok(c, f.View())
}

func setFormFields(c echo.Context) error {
	var fields admin.Fields
	if err := c.Bind(&fields); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse fields", err.Error())
	}
	f := currentForm(c)
	if err := f.SetFields(fields); err != nil {
		return formError(c, err)
	}
	return ok(c, f.View())
}

func submitForm(c echo.Context) error {
	f := currentForm(c)
	p, err := f.Submit(operatorContext(c))
	if err != nil {
		return formError(c, err)
	}
	return ok(c, p)
}

func cancelForm(c echo.Context) error {
	f := currentForm(c)
	if err := f.Cancel(); err != nil {
		return formError(c, err)
	}
	return ok(c, f.View())
}
