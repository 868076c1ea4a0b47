package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/cart"
	"github.com/ummitifli/storefront/internal/catalog"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/identity"
	"github.com/ummitifli/storefront/internal/store"
	"github.com/ummitifli/storefront/internal/webserver"
)

type testApp struct {
	cfg   *config.AppConfig
	cat   *catalog.Catalog
	carts *cart.Registry
	id    identity.Provider
}

func (a *testApp) Config() *config.AppConfig   { return a.cfg }
func (a *testApp) Catalog() *catalog.Catalog   { return a.cat }
func (a *testApp) Carts() *cart.Registry       { return a.carts }
func (a *testApp) Identity() identity.Provider { return a.id }

type harness struct {
	t       *testing.T
	handler http.Handler
	mail    *identity.MockMailer
	cookies []*http.Cookie
}

func seedProducts() []domain.Product {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	return []domain.Product{
		{ID: "p1", Name: "طقم ملابس قطني", Price: 45, OriginalPrice: domain.Float64Ptr(60), Category: "ملابس المواليد", InStock: true, CreatedAt: &t0},
		{ID: "p2", Name: "عربة أطفال خفيفة", Price: 30, Category: "عربات الأطفال", InStock: false, CreatedAt: &t1},
		{ID: "p3", Name: "شامبو", Price: 12.5, Category: "العناية بالطفل", InStock: true, CreatedAt: &t2},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := EventBus.New()
	cat := catalog.New(store.NewMemoryStore(seedProducts()...), bus)
	if err := cat.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	mail := &identity.MockMailer{}
	local := identity.NewLocal(identity.NewMemoryUserRepository(), mail, identity.LocalConfig{
		Secret:    "test-secret",
		TokenTTL:  time.Hour,
		VerifyURL: "http://localhost/api/v1/auth/verify",
	}, bus)
	app := &testApp{cfg: config.DefaultAppConfig(), cat: cat, carts: cart.NewRegistry(), id: local}
	srv := webserver.Init(app.cfg, webserver.Options{AppContext: app, Identity: local, Validator: admin.Validator()})
	Init()
	return &harness{t: t, handler: srv.Echo(), mail: mail}
}

// do sends a request carrying the cookies seen so far and decodes the
// envelope into out when given.
func (h *harness) do(method, path, token string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		h.cookies = cs
	}
	if out != nil {
		env := struct {
			Data  json.RawMessage     `json:"data"`
			Error *webserver.ErrorBody `json:"error"`
		}{}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				h.t.Fatal(err)
			}
		}
	}
	return rec
}

func TestListProductsByCategory(t *testing.T) {
	h := newHarness(t)

	var all []ProductView
	if rec := h.do(http.MethodGet, "/api/v1/products", "", nil, &all); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if len(all) != 3 || all[0].ID != "p3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	var clothes []ProductView
	h.do(http.MethodGet, "/api/v1/products?category="+url.QueryEscape("ملابس المواليد"), "", nil, &clothes)
	if len(clothes) != 1 || clothes[0].ID != "p1" {
		t.Fatalf("unexpected filter result %+v", clothes)
	}
	v := clothes[0]
	if v.DiscountPercent != 25 || v.DiscountLabel != "-25%" {
		t.Fatalf("discount %d %q", v.DiscountPercent, v.DiscountLabel)
	}
	if v.PriceLabel != "45.00 ر.س" || v.OriginalPriceLabel != "60.00 ر.س" {
		t.Fatalf("labels %q %q", v.PriceLabel, v.OriginalPriceLabel)
	}
	if v.Image != domain.PlaceholderImage {
		t.Fatalf("image %q", v.Image)
	}

	var none []ProductView
	rec := h.do(http.MethodGet, "/api/v1/products?category="+url.QueryEscape("غير موجود"), "", nil, &none)
	if rec.Code != http.StatusOK || len(none) != 0 {
		t.Fatalf("expected empty list, got %d %+v", rec.Code, none)
	}
}

func TestProductAndCategories(t *testing.T) {
	h := newHarness(t)

	var p ProductView
	h.do(http.MethodGet, "/api/v1/products/p2", "", nil, &p)
	if p.StockLabel != "نفد من المخزون" || p.DiscountLabel != "" {
		t.Fatalf("unexpected view %+v", p)
	}
	if rec := h.do(http.MethodGet, "/api/v1/products/nope", "", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}

	var cats []string
	h.do(http.MethodGet, "/api/v1/categories", "", nil, &cats)
	if len(cats) != 4 || cats[0] != domain.AllCategories {
		t.Fatalf("categories %v", cats)
	}
}

func TestCartFlow(t *testing.T) {
	h := newHarness(t)

	var cv CartView
	h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p1"}, &cv)
	if len(h.cookies) == 0 {
		t.Fatal("expected a session cookie")
	}
	h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p1"}, &cv)
	h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p3"}, &cv)
	if cv.TotalCount != 3 || cv.TotalPrice != 102.5 || cv.TotalLabel != "102.50 ر.س" {
		t.Fatalf("cart %+v", cv)
	}
	if len(cv.Items) != 2 || cv.Items[0].Product.ID != "p1" || cv.Items[0].Quantity != 2 {
		t.Fatalf("items %+v", cv.Items)
	}

	if rec := h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p2"}, nil); rec.Code != http.StatusConflict {
		t.Fatalf("out of stock status %d", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "zz"}, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product status %d", rec.Code)
	}

	h.do(http.MethodPut, "/api/v1/cart/items/p1", "", map[string]int{"quantity": 5}, &cv)
	if cv.TotalCount != 6 {
		t.Fatalf("count after update %d", cv.TotalCount)
	}
	h.do(http.MethodPut, "/api/v1/cart/items/p3", "", map[string]int{"quantity": 0}, &cv)
	if len(cv.Items) != 1 {
		t.Fatalf("zero quantity should remove, got %+v", cv.Items)
	}
	h.do(http.MethodDelete, "/api/v1/cart/items/p1", "", nil, &cv)
	if len(cv.Items) != 0 || cv.TotalPrice != 0 {
		t.Fatalf("cart not empty %+v", cv)
	}

	h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p3"}, &cv)
	h.do(http.MethodDelete, "/api/v1/cart", "", nil, &cv)
	if cv.TotalCount != 0 {
		t.Fatalf("clear left %d", cv.TotalCount)
	}
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	h := newHarness(t)
	var cv CartView
	h.do(http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p1"}, &cv)

	other := &harness{t: t, handler: h.handler}
	other.do(http.MethodGet, "/api/v1/cart", "", nil, &cv)
	if cv.TotalCount != 0 {
		t.Fatalf("new session sees %d items", cv.TotalCount)
	}
	h.do(http.MethodGet, "/api/v1/cart", "", nil, &cv)
	if cv.TotalCount != 1 {
		t.Fatalf("original session lost its cart: %d", cv.TotalCount)
	}
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	creds := map[string]string{"email": "mama@example.com", "password": "secret1", "confirm_password": "secret2"}

	rec := h.do(http.MethodPost, "/api/v1/auth/signup", "", creds, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "confirm_password") {
		t.Fatalf("mismatch: %d %s", rec.Code, rec.Body.String())
	}

	creds["confirm_password"] = "secret1"
	if rec := h.do(http.MethodPost, "/api/v1/auth/signup", "", creds, nil); rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(http.MethodPost, "/api/v1/auth/signup", "", creds, nil); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status %d", rec.Code)
	}

	signin := map[string]string{"email": "mama@example.com", "password": "secret1"}
	if rec := h.do(http.MethodPost, "/api/v1/auth/signin", "", signin, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("unverified signin status %d", rec.Code)
	}

	msg, ok := h.mail.Last()
	if !ok {
		t.Fatal("no mail")
	}
	i := strings.Index(msg.TextBody, "http://")
	link, err := url.Parse(strings.Fields(msg.TextBody[i:])[0])
	if err != nil {
		t.Fatal(err)
	}
	if rec := h.do(http.MethodGet, "/api/v1/auth/verify?token="+link.Query().Get("token"), "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("verify status %d", rec.Code)
	}

	if rec := h.do(http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "mama@example.com", "password": "wrong"}, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status %d", rec.Code)
	}
	var s identity.Session
	if rec := h.do(http.MethodPost, "/api/v1/auth/signin", "", signin, &s); rec.Code != http.StatusOK || s.AccessToken == "" {
		t.Fatalf("signin %d %+v", rec.Code, s)
	}

	var u identity.User
	h.do(http.MethodGet, "/api/v1/auth/me", s.AccessToken, nil, &u)
	if u.Email != "mama@example.com" || !u.Verified {
		t.Fatalf("me %+v", u)
	}

	if rec := h.do(http.MethodPost, "/api/v1/auth/signout", s.AccessToken, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("signout status %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/v1/auth/me", s.AccessToken, nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status %d", rec.Code)
	}
}
