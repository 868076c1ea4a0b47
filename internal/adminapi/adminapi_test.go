package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/catalog"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/identity"
	"github.com/ummitifli/storefront/internal/store"
	"github.com/ummitifli/storefront/internal/webserver"
)

type testApp struct {
	cfg     *config.AppConfig
	cat     *catalog.Catalog
	gw      *admin.Gateway
	forms   *admin.Forms
	auditor *admin.Auditor
	ran     []string
}

func (a *testApp) Config() *config.AppConfig { return a.cfg }
func (a *testApp) Catalog() *catalog.Catalog { return a.cat }
func (a *testApp) Gateway() *admin.Gateway   { return a.gw }
func (a *testApp) Forms() *admin.Forms       { return a.forms }
func (a *testApp) Auditor() *admin.Auditor   { return a.auditor }

func (a *testApp) Jobs() []Job {
	return []Job{{Name: "cart_sweep", Spec: "@every 1m"}, {Name: "catalog_reload", Spec: "@every 5m"}}
}

func (a *testApp) RunJob(name string) error {
	for _, j := range a.Jobs() {
		if j.Name == name {
			a.ran = append(a.ran, name)
			return nil
		}
	}
	return ErrUnknownJob
}

type fixture struct {
	t       *testing.T
	handler http.Handler
	app     *testApp
	local   *identity.Local
	mail    *identity.MockMailer
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := EventBus.New()
	s := store.NewMemoryStore()
	cat := catalog.New(s, bus)
	if err := cat.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	auditor, err := admin.NewAuditor(admin.NewMemoryLogRepository(), 1)
	if err != nil {
		t.Fatal(err)
	}
	gw := admin.NewGateway(s, cat, auditor)

	cfg := config.DefaultAppConfig()
	cfg.Auth.AdminEmails = []string{"admin@example.com"}
	mail := &identity.MockMailer{}
	local := identity.NewLocal(identity.NewMemoryUserRepository(), mail, identity.LocalConfig{
		Secret:    "test-secret",
		TokenTTL:  time.Hour,
		VerifyURL: "http://localhost/api/v1/auth/verify",
	}, bus)

	app := &testApp{cfg: cfg, cat: cat, gw: gw, forms: admin.NewForms(gw), auditor: auditor}
	srv := webserver.Init(cfg, webserver.Options{AppContext: app, Identity: local, Validator: admin.Validator()})
	Init()

	f := &fixture{t: t, handler: srv.Echo(), app: app, local: local, mail: mail}
	f.token = f.signIn("admin@example.com")
	return f
}

// signIn registers and verifies an account and returns its access token.
func (f *fixture) signIn(email string) string {
	f.t.Helper()
	ctx := context.Background()
	if err := f.local.SignUp(ctx, email, "secret1"); err != nil {
		f.t.Fatal(err)
	}
	msg, _ := f.mail.Last()
	i := strings.Index(msg.TextBody, "http://")
	if i < 0 {
		f.t.Fatalf("no link in %q", msg.TextBody)
	}
	link, err := url.Parse(strings.Fields(msg.TextBody[i:])[0])
	if err != nil {
		f.t.Fatal(err)
	}
	if _, err := f.local.Verify(ctx, link.Query().Get("token")); err != nil {
		f.t.Fatal(err)
	}
	s, err := f.local.SignInWithPassword(ctx, email, "secret1")
	if err != nil {
		f.t.Fatal(err)
	}
	return s.AccessToken
}

func (f *fixture) send(req *http.Request, token string, out interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if out != nil {
		env := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			f.t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				f.t.Fatal(err)
			}
		}
	}
	return rec
}

func (f *fixture) do(method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var b []byte
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			f.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, "/api/v1/admin"+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return f.send(req, f.token, out)
}

func validProduct() map[string]interface{} {
	return map[string]interface{}{
		"name":           "سرير أطفال خشبي",
		"description":    "سرير متين",
		"price":          450,
		"original_price": 500,
		"category":       "أثاث الأطفال",
	}
}

func TestAdminRequiresSignedInAdmin(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	if rec := f.send(req, "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	if rec := f.send(req, "not-a-token", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
	shopper := f.signIn("shopper@example.com")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	if rec := f.send(req, shopper, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non admin: %d", rec.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	if rec := f.send(req, f.token, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin: %d", rec.Code)
	}
}

func TestProductCRUD(t *testing.T) {
	f := newFixture(t)

	var created domain.Product
	rec := f.do(http.MethodPost, "/products", validProduct(), &created)
	if rec.Code != http.StatusCreated || created.ID == "" || !created.InStock {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if _, found := f.app.cat.Find(created.ID); !found {
		t.Fatal("catalog not refreshed after create")
	}

	bad := validProduct()
	bad["category"] = "ألعاب"
	delete(bad, "price")
	rec = f.do(http.MethodPost, "/products", bad, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid create: %d", rec.Code)
	}
	for _, field := range []string{"category", "price"} {
		if !strings.Contains(rec.Body.String(), `"`+field+`"`) {
			t.Fatalf("missing %s error in %s", field, rec.Body.String())
		}
	}

	var updated domain.Product
	rec = f.do(http.MethodPut, "/products/"+created.ID, map[string]interface{}{"price": 399.5, "in_stock": false}, &updated)
	if rec.Code != http.StatusOK || updated.Price != 399.5 || updated.InStock || updated.Name != "سرير أطفال خشبي" {
		t.Fatalf("update: %d %+v", rec.Code, updated)
	}
	if rec := f.do(http.MethodPut, "/products/missing", map[string]interface{}{"price": 1}, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rec.Code)
	}

	var got domain.Product
	f.do(http.MethodGet, "/products/"+created.ID, nil, &got)
	if got.Price != 399.5 {
		t.Fatalf("get: %+v", got)
	}

	if rec := f.do(http.MethodDelete, "/products/"+created.ID, nil, nil); rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("delete without confirm: %d", rec.Code)
	}
	if _, found := f.app.cat.Find(created.ID); !found {
		t.Fatal("unconfirmed delete removed the product")
	}
	if rec := f.do(http.MethodDelete, "/products/"+created.ID+"?confirm=true", nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if _, found := f.app.cat.Find(created.ID); found {
		t.Fatal("catalog not refreshed after delete")
	}

	var logs []domain.AdminLog
	f.do(http.MethodGet, "/logs", nil, &logs)
	if len(logs) != 3 {
		t.Fatalf("expected create, update and delete logged, got %+v", logs)
	}
	for _, l := range logs {
		if l.OprName != "admin@example.com" {
			t.Fatalf("operator %q", l.OprName)
		}
	}
}

func TestListProductsPagination(t *testing.T) {
	f := newFixture(t)
	for i, name := range []string{"بطانية", "حمالة أطفال", "بطانية صوف"} {
		p := validProduct()
		p["name"] = name
		p["price"] = 10 * (i + 1)
		if rec := f.do(http.MethodPost, "/products", p, nil); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d", rec.Code)
		}
	}

	var rows []domain.Product
	rec := f.do(http.MethodGet, "/products?q="+url.QueryEscape("بطانية")+"&sort=price&order=ASC", nil, &rows)
	if rec.Code != http.StatusOK || len(rows) != 2 || rows[0].Price != 10 {
		t.Fatalf("search: %d %+v", rec.Code, rows)
	}
	if !strings.Contains(rec.Body.String(), `"total":2`) {
		t.Fatalf("meta: %s", rec.Body.String())
	}

	f.do(http.MethodGet, "/products?page=2&pageSize=2", nil, &rows)
	if len(rows) != 1 {
		t.Fatalf("page 2: %+v", rows)
	}
}

func TestFormEndpoints(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodPost, "/form/submit", nil, nil); rec.Code != http.StatusConflict {
		t.Fatalf("submit closed form: %d", rec.Code)
	}

	var view struct {
		State       string            `json:"state"`
		Fields      admin.Fields      `json:"fields"`
		FieldErrors map[string]string `json:"field_errors"`
	}
	f.do(http.MethodPost, "/form/open", map[string]string{}, &view)
	if view.State != admin.Creating.String() || !view.Fields.InStock {
		t.Fatalf("open: %+v", view)
	}

	fields := admin.Fields{Name: "", Price: "abc", Category: "العناية بالطفل", InStock: true}
	f.do(http.MethodPut, "/form", fields, &view)
	if rec := f.do(http.MethodPost, "/form/submit", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid submit: %d", rec.Code)
	}
	f.do(http.MethodGet, "/form", nil, &view)
	if view.State != admin.Creating.String() || view.FieldErrors["name"] == "" || view.FieldErrors["price"] == "" {
		t.Fatalf("field errors: %+v", view)
	}

	fields.Name, fields.Price = "كريم مرطب", "25.75"
	f.do(http.MethodPut, "/form", fields, nil)
	var p domain.Product
	if rec := f.do(http.MethodPost, "/form/submit", nil, &p); rec.Code != http.StatusOK || p.Price != 25.75 {
		t.Fatalf("submit: %d %+v", rec.Code, p)
	}
	f.do(http.MethodGet, "/form", nil, &view)
	if view.State != admin.Closed.String() {
		t.Fatalf("form not closed: %+v", view)
	}

	f.do(http.MethodPost, "/form/open", map[string]string{"product_id": p.ID}, &view)
	if view.State != admin.Editing.String() || view.Fields.Price != "25.75" {
		t.Fatalf("edit: %+v", view)
	}
	f.do(http.MethodPost, "/form/cancel", nil, &view)
	if view.State != admin.Closed.String() {
		t.Fatalf("cancel: %+v", view)
	}
	if rec := f.do(http.MethodPost, "/form/open", map[string]string{"product_id": "missing"}, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("edit missing: %d", rec.Code)
	}
}

func TestExportAndImport(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodPost, "/products", validProduct(), nil); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec := f.do(http.MethodGet, "/export.csv", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "سرير أطفال خشبي") {
		t.Fatalf("csv export: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("disposition %q", rec.Header().Get("Content-Disposition"))
	}
	rec = f.do(http.MethodGet, "/export.xlsx", nil, nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx export: %d", rec.Code)
	}

	csvBody := "name,description,price,original_price,image_url,category,in_stock\n" +
		"عربة مزدوجة,,899,,,عربات الأطفال,true\n" +
		",,10,,,عربات الأطفال,\n" +
		"مشاية,,120,150,,عربات الأطفال,false\n"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "products.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(csvBody)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res admin.ImportResult
	if rec := f.send(req, f.token, &res); rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	if res.Created != 2 || len(res.Failed) != 1 || res.Failed[0].Line != 3 {
		t.Fatalf("import result %+v", res)
	}
	if got := len(f.app.cat.Filter("عربات الأطفال")); got != 2 {
		t.Fatalf("catalog has %d imported products", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	if rec := f.send(req, f.token, &res); rec.Code != http.StatusOK || res.Created != 2 {
		t.Fatalf("raw import: %d %+v", rec.Code, res)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/products", validProduct(), nil)

	var opts []categoryOption
	f.do(http.MethodGet, "/categories", nil, &opts)
	if len(opts) != len(domain.Categories) {
		t.Fatalf("categories %+v", opts)
	}

	var summary struct {
		Summary catalog.Summary `json:"summary"`
		Loaded  bool            `json:"loaded"`
	}
	f.do(http.MethodGet, "/summary", nil, &summary)
	if !summary.Loaded || summary.Summary.Total != 1 || summary.Summary.Discounted != 1 {
		t.Fatalf("summary %+v", summary)
	}

	var reload map[string]int
	if rec := f.do(http.MethodPost, "/catalog/reload", nil, &reload); rec.Code != http.StatusOK || reload["count"] != 1 {
		t.Fatalf("reload: %d %+v", rec.Code, reload)
	}
}

func TestJobRoutes(t *testing.T) {
	f := newFixture(t)

	var jobs []Job
	f.do(http.MethodGet, "/jobs?name=cart", nil, &jobs)
	if len(jobs) != 1 || jobs[0].Name != "cart_sweep" {
		t.Fatalf("jobs %+v", jobs)
	}
	if rec := f.do(http.MethodPost, "/jobs/catalog_reload/run", nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("run: %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/jobs/nope/run", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job: %d", rec.Code)
	}
	if len(f.app.ran) != 1 || f.app.ran[0] != "catalog_reload" {
		t.Fatalf("ran %v", f.app.ran)
	}
}
