package identity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func hostedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
			switch {
			case strings.Contains(string(body), `"password":"secret1"`):
				_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600,
					"user":{"id":"u1","email":"a@example.com","email_confirmed_at":"2024-01-01T00:00:00Z"}}`)
			case strings.Contains(string(body), "pending@"):
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Email not confirmed"}`)
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			}
		case r.URL.Path == "/auth/v1/signup":
			if r.URL.Query().Get("redirect_to") != "http://shop.local/" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if strings.Contains(string(body), "taken@") {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, `{"code":422,"msg":"User already registered"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"u2","email":"new@example.com"}`)
		case r.URL.Path == "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"msg":"invalid JWT"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"u1","email":"a@example.com","email_confirmed_at":"2024-01-01T00:00:00Z"}`)
		case r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestHostedProvider(t *testing.T) {
	srv := hostedServer(t)
	defer srv.Close()
	ctx := context.Background()
	h := NewHosted(srv.URL, "anon", "http://shop.local/", 0, nil)

	var kinds []string
	var last Event
	_ = h.Subscribe(func(e Event) {
		kinds = append(kinds, e.Kind)
		last = e
	})

	s, err := h.SignInWithPassword(ctx, "A@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if s.AccessToken != "tok" || s.User.ID != "u1" || !s.User.Verified {
		t.Fatalf("unexpected session %+v", s)
	}

	if _, err := h.SignInWithPassword(ctx, "a@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := h.SignInWithPassword(ctx, "pending@example.com", "x"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}

	if err := h.SignUp(ctx, "new@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if err := h.SignUp(ctx, "taken@example.com", "secret1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	u, err := h.CurrentUser(ctx, "tok")
	if err != nil || u.Email != "a@example.com" {
		t.Fatalf("unexpected user %+v (%v)", u, err)
	}
	if _, err := h.CurrentUser(ctx, "stale"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if err := h.SignOut(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
	if strings.Join(kinds, ",") != "SIGNED_IN,SIGNED_UP,SIGNED_OUT" {
		t.Fatalf("unexpected events %v", kinds)
	}
	if last.User.ID != "u1" {
		t.Fatalf("sign out event should carry the user, got %+v", last.User)
	}
}
