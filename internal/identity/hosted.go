package identity

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Hosted delegates to a GoTrue compatible server under {baseURL}/auth/v1.
type Hosted struct {
	baseURL    string
	apiKey     string
	redirectTo string
	timeout    time.Duration
	events
}

func NewHosted(baseURL, apiKey, redirectTo string, timeout time.Duration, bus EventBus.Bus) *Hosted {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Hosted{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:     apiKey,
		redirectTo: redirectTo,
		timeout:    timeout,
		events:     newEvents(bus),
	}
}

type hostedUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

func (u hostedUser) user() User {
	return User{ID: u.ID, Email: u.Email, Verified: u.EmailConfirmedAt != nil}
}

type hostedSession struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        hostedUser `json:"user"`
}

type hostedError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e hostedError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (h *Hosted) headers(token string) gout.H {
	bearer := h.apiKey
	if token != "" {
		bearer = token
	}
	return gout.H{
		"apikey":        h.apiKey,
		"Authorization": "Bearer " + bearer,
		"Content-Type":  "application/json",
	}
}

// do runs one request and maps auth failures onto the package errors.
func (h *Hosted) do(ctx context.Context, method, path, token string, body interface{}) ([]byte, error) {
	var out []byte
	var code int
	u := h.baseURL + path
	df := gout.POST(u)
	if method == http.MethodGet {
		df = gout.GET(u)
	}
	df = df.WithContext(ctx).
		SetHeader(h.headers(token)).
		SetTimeout(h.timeout).
		BindBody(&out).
		Code(&code)
	if body != nil {
		payload, err := jsoniter.Marshal(body)
		if err != nil {
			return nil, err
		}
		df = df.SetBody(payload)
	}
	if err := df.Do(); err != nil {
		return nil, errors.Wrap(err, "auth request")
	}
	if code >= 200 && code < 300 {
		return out, nil
	}

	var he hostedError
	_ = jsoniter.Unmarshal(out, &he)
	msg := he.text()
	switch {
	case strings.Contains(strings.ToLower(msg), "not confirmed"):
		return nil, ErrNotVerified
	case strings.Contains(strings.ToLower(msg), "already registered"):
		return nil, ErrEmailTaken
	case strings.Contains(strings.ToLower(msg), "at least"):
		return nil, ErrWeakPassword
	case he.Error == "invalid_grant":
		return nil, ErrInvalidCredentials
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, ErrInvalidToken
	}
	if msg == "" {
		msg = http.StatusText(code)
	}
	return nil, errors.Errorf("auth server: %s", msg)
}

func (h *Hosted) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	body, err := h.do(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": NormalizeEmail(email), "password": password})
	if err != nil {
		return Session{}, err
	}
	var hs hostedSession
	if err := jsoniter.Unmarshal(body, &hs); err != nil {
		return Session{}, errors.Wrap(err, "decode session")
	}
	s := Session{
		AccessToken: hs.AccessToken,
		TokenType:   hs.TokenType,
		ExpiresAt:   time.Now().Add(time.Duration(hs.ExpiresIn) * time.Second),
		User:        hs.User.user(),
	}
	h.publish(EventSignedIn, s.User)
	return s, nil
}

func (h *Hosted) SignUp(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLen {
		return ErrWeakPassword
	}
	path := "/signup"
	if h.redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(h.redirectTo)
	}
	body, err := h.do(ctx, http.MethodPost, path, "",
		map[string]string{"email": NormalizeEmail(email), "password": password})
	if err != nil {
		return err
	}
	var hu hostedUser
	_ = jsoniter.Unmarshal(body, &hu)
	h.publish(EventSignedUp, hu.user())
	return nil
}

// SignOut ends the session on the auth server. The signed out user is looked
// up first so subscribers learn who left.
func (h *Hosted) SignOut(ctx context.Context, token string) error {
	user, _ := h.CurrentUser(ctx, token)
	if _, err := h.do(ctx, http.MethodPost, "/logout", token, nil); err != nil {
		return err
	}
	h.publish(EventSignedOut, user)
	return nil
}

func (h *Hosted) CurrentUser(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrInvalidToken
	}
	body, err := h.do(ctx, http.MethodGet, "/user", token, nil)
	if err != nil {
		return User{}, err
	}
	var hu hostedUser
	if err := jsoniter.Unmarshal(body, &hu); err != nil {
		return User{}, errors.Wrap(err, "decode user")
	}
	return hu.user(), nil
}
