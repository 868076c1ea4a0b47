package store

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/domain"
)

// RestStore talks to a hosted PostgREST-style table API.
type RestStore struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewRestStore points at baseURL, e.g. https://xyz.example.co. Tables live
// under /rest/v1.
func NewRestStore(baseURL, apiKey string, timeout time.Duration) *RestStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RestStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *RestStore) tableURL(params url.Values) string {
	u := s.baseURL + "/rest/v1/products"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (s *RestStore) headers() gout.H {
	return gout.H{
		"apikey":        s.apiKey,
		"Authorization": "Bearer " + s.apiKey,
		"Content-Type":  "application/json",
		"Prefer":        "return=representation",
	}
}

// checkStatus turns a non-2xx reply into an error carrying the server message.
func checkStatus(op string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	var re restError
	if err := json.Unmarshal(body, &re); err == nil && re.Message != "" {
		return errors.Errorf("%s: %s (%d %s)", op, re.Message, code, re.Code)
	}
	return errors.Errorf("%s: %s", op, http.StatusText(code))
}

func (s *RestStore) List(ctx context.Context, q Query) ([]domain.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.Filters {
		params.Add(f.Column, "eq."+f.Value)
	}
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := ".asc"
			if o.Desc {
				dir = ".desc"
			}
			parts = append(parts, o.Column+dir)
		}
		params.Set("order", strings.Join(parts, ","))
	}

	var body []byte
	var code int
	err := gout.GET(s.tableURL(params)).
		WithContext(ctx).
		SetHeader(s.headers()).
		SetTimeout(s.timeout).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	if err := checkStatus("select products", code, body); err != nil {
		return nil, err
	}
	return DecodeRows(body)
}

func (s *RestStore) Insert(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return domain.Product{}, err
	}
	var body []byte
	var code int
	err = gout.POST(s.tableURL(nil)).
		WithContext(ctx).
		SetHeader(s.headers()).
		SetBody(payload).
		SetTimeout(s.timeout).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return domain.Product{}, errors.Wrap(err, "insert product")
	}
	if err := checkStatus("insert product", code, body); err != nil {
		return domain.Product{}, err
	}
	rows, err := DecodeRows(body)
	if err != nil {
		return domain.Product{}, err
	}
	if len(rows) == 0 {
		return domain.Product{}, errors.New("insert product: empty representation")
	}
	return rows[0], nil
}

func (s *RestStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	cols := patch.Columns()
	cols["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload, err := json.Marshal(cols)
	if err != nil {
		return domain.Product{}, err
	}
	var body []byte
	var code int
	err = gout.PATCH(s.tableURL(url.Values{"id": {"eq." + id}})).
		WithContext(ctx).
		SetHeader(s.headers()).
		SetBody(payload).
		SetTimeout(s.timeout).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return domain.Product{}, errors.Wrap(err, "update product")
	}
	if err := checkStatus("update product", code, body); err != nil {
		return domain.Product{}, err
	}
	rows, err := DecodeRows(body)
	if err != nil {
		return domain.Product{}, err
	}
	if len(rows) == 0 {
		return domain.Product{}, ErrNotFound
	}
	return rows[0], nil
}

func (s *RestStore) Delete(ctx context.Context, id string) error {
	var body []byte
	var code int
	err := gout.DELETE(s.tableURL(url.Values{"id": {"eq." + id}})).
		WithContext(ctx).
		SetHeader(s.headers()).
		SetTimeout(s.timeout).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	return checkStatus("delete product", code, body)
}

func (s *RestStore) Close() error { return nil }
