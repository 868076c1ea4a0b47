package storefront

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/cart"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/webserver"
)

type addItemPayload struct {
	ProductID string `json:"product_id" validate:"required"`
}

type quantityPayload struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartLine is one rendered cart line.
type CartLine struct {
	Product       ProductView `json:"product"`
	Quantity      int         `json:"quantity"`
	Subtotal      float64     `json:"subtotal"`
	SubtotalLabel string      `json:"subtotal_label"`
}

// CartView is the rendered cart.
type CartView struct {
	Items      []CartLine `json:"items"`
	TotalCount int        `json:"total_count"`
	TotalPrice float64    `json:"total_price"`
	TotalLabel string     `json:"total_label"`
}

func NewCartView(c *cart.Cart) CartView {
	items := c.Items()
	v := CartView{
		Items:      make([]CartLine, 0, len(items)),
		TotalCount: c.TotalCount(),
		TotalPrice: c.TotalPrice(),
	}
	for _, it := range items {
		v.Items = append(v.Items, CartLine{
			Product:       NewProductView(it.Product),
			Quantity:      it.Quantity,
			Subtotal:      it.Subtotal(),
			SubtotalLabel: domain.FormatPrice(it.Subtotal()),
		})
	}
	v.TotalLabel = domain.FormatPrice(v.TotalPrice)
	return v
}

func registerCartRoutes() {
	webserver.PubGET("/cart", getCart)
	webserver.PubDELETE("/cart", clearCart)
	webserver.PubPOST("/cart/items", addCartItem)
	webserver.PubPUT("/cart/items/:id", updateCartItem)
	webserver.PubDELETE("/cart/items/:id", removeCartItem)
}

func sessionCart(c echo.Context) (*cart.Cart, error) {
	sid, err := webserver.SessionID(c)
	if err != nil {
		return nil, err
	}
	return GetAppContext(c).Carts().Get(sid), nil
}

func getCart(c echo.Context) error {
	sc, err := sessionCart(c)
	if err != nil {
		return err
	}
	return webserver.OK(c, NewCartView(sc))
}

func clearCart(c echo.Context) error {
	sc, err := sessionCart(c)
	if err != nil {
		return err
	}
	sc.Clear()
	return webserver.OK(c, NewCartView(sc))
}

// addCartItem adds one unit of a catalog product
func addCartItem(c echo.Context) error {
	var payload addItemPayload
	if err := c.Bind(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "product_id is required", nil)
	}
	p, found := GetAppContext(c).Catalog().Find(payload.ProductID)
	if !found {
		return webserver.Fail(c, http.StatusNotFound, "NOT_FOUND", "المنتج غير موجود", nil)
	}
	sc, err := sessionCart(c)
	if err != nil {
		return err
	}
	if err := sc.Add(p); err != nil {
		if errors.Is(err, cart.ErrOutOfStock) {
			return webserver.Fail(c, http.StatusConflict, "OUT_OF_STOCK", "نفد من المخزون", nil)
		}
		return err
	}
	return webserver.OK(c, NewCartView(sc))
}

// updateCartItem sets an absolute quantity, zero removes the line
func updateCartItem(c echo.Context) error {
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "quantity is required", nil)
	}
	sc, err := sessionCart(c)
	if err != nil {
		return err
	}
	sc.UpdateQuantity(c.Param("id"), *payload.Quantity)
	return webserver.OK(c, NewCartView(sc))
}

func removeCartItem(c echo.Context) error {
	sc, err := sessionCart(c)
	if err != nil {
		return err
	}
	sc.Remove(c.Param("id"))
	return webserver.OK(c, NewCartView(sc))
}
