package adminapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/webserver"
)

type productPayload struct {
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	Price         *float64 `json:"price" validate:"required,gte=0"`
	OriginalPrice *float64 `json:"original_price" validate:"omitempty,gte=0"`
	ImageURL      *string  `json:"image_url" validate:"omitempty,url"`
	Category      string   `json:"category" validate:"required,category"`
	InStock       *bool    `json:"in_stock"`
}

// productUpdatePayload relaxes validation rules for partial updates
type productUpdatePayload struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	OriginalPrice *float64 `json:"original_price" validate:"omitempty,gte=0"`
	ImageURL      *string  `json:"image_url" validate:"omitempty,url"`
	Category      *string  `json:"category" validate:"omitempty,category"`
	InStock       *bool    `json:"in_stock"`
}

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

// blankToNil drops empty optional strings so they read as unset.
func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	// accept perPage from the admin front-end
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}

	q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))
	category := strings.TrimSpace(c.QueryParam("category"))
	if category == "" {
		category = domain.AllCategories
	}

	rows := GetAppContext(c).Catalog().Filter(category)
	if q != "" {
		matched := rows[:0:0]
		for _, p := range rows {
			if strings.Contains(strings.ToLower(p.Name), q) {
				matched = append(matched, p)
			}
		}
		rows = matched
	}

	// whitelist allowed sort columns, catalog order (newest first) otherwise
	sortField := strings.TrimSpace(c.QueryParam("sort"))
	desc := !strings.EqualFold(c.QueryParam("order"), "ASC")
	less := map[string]func(a, b domain.Product) bool{
		"name":     func(a, b domain.Product) bool { return a.Name < b.Name },
		"price":    func(a, b domain.Product) bool { return a.Price < b.Price },
		"category": func(a, b domain.Product) bool { return a.Category < b.Category },
	}[sortField]
	if less != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return less(rows[j], rows[i])
			}
			return less(rows[i], rows[j])
		})
	}

	total := len(rows)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return paged(c, rows[start:end], int64(total), page, pageSize)
}

func getProduct(c echo.Context) error {
	p, found := GetAppContext(c).Catalog().Find(c.Param("id"))
	if !found {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Description = blankToNil(payload.Description)
	payload.ImageURL = blankToNil(payload.ImageURL)
	if err := c.Validate(&payload); err != nil {
		return webserver.FailErr(c, admin.FromValidationError(err))
	}

	in := domain.ProductInput{
		Name:          payload.Name,
		Description:   payload.Description,
		Price:         *payload.Price,
		OriginalPrice: payload.OriginalPrice,
		ImageURL:      payload.ImageURL,
		Category:      payload.Category,
		InStock:       payload.InStock == nil || *payload.InStock,
	}
	p, err := GetAppContext(c).Gateway().Create(operatorContext(c), in)
	if err != nil {
		return webserver.FailErr(c, err)
	}
	return webserver.Created(c, p)
}

func updateProduct(c echo.Context) error {
	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		payload.Name = &name
	}
	if err := c.Validate(&payload); err != nil {
		return webserver.FailErr(c, admin.FromValidationError(err))
	}

	patch := domain.ProductPatch{
		Name:          payload.Name,
		Description:   payload.Description,
		Price:         payload.Price,
		OriginalPrice: payload.OriginalPrice,
		ImageURL:      payload.ImageURL,
		Category:      payload.Category,
		InStock:       payload.InStock,
	}
	p, err := GetAppContext(c).Gateway().Update(operatorContext(c), c.Param("id"), patch)
	if err != nil {
		return webserver.FailErr(c, err)
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	if confirm, _ := strconv.ParseBool(c.QueryParam("confirm")); !confirm {
		return fail(c, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED",
			"هل أنت متأكد من حذف هذا المنتج؟ أعد الطلب مع confirm=true", nil)
	}
	if err := GetAppContext(c).Gateway().Delete(operatorContext(c), c.Param("id")); err != nil {
		return webserver.FailErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
