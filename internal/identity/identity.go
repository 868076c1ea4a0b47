// Package identity authenticates shoppers and admins. Two providers are
// available: a local one backed by the users table and a hosted one that
// proxies a GoTrue compatible auth server.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("user already registered")
	ErrNotVerified        = errors.New("email not confirmed")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
)

// MinPasswordLen matches the hosted server default.
const MinPasswordLen = 6

// TopicAuth carries Event values.
const TopicAuth = "auth:state"

// Event kinds.
const (
	EventSignedIn  = "SIGNED_IN"
	EventSignedOut = "SIGNED_OUT"
	EventSignedUp  = "SIGNED_UP"
	EventVerified  = "USER_VERIFIED"
)

// User is the authenticated principal.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// Session is returned by a successful sign in.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// Event is published on every auth state change.
type Event struct {
	Kind string
	User User
}

// Provider is the identity collaborator.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (User, error)
	// Subscribe registers fn for auth state changes
	Subscribe(fn func(Event)) error
}

// Verifier is implemented by providers that confirm addresses themselves.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// events fans auth events out over an EventBus.
type events struct {
	bus EventBus.Bus
}

func newEvents(bus EventBus.Bus) events {
	if bus == nil {
		bus = EventBus.New()
	}
	return events{bus: bus}
}

func (e events) Subscribe(fn func(Event)) error {
	return e.bus.Subscribe(TopicAuth, fn)
}

func (e events) publish(kind string, u User) {
	e.bus.Publish(TopicAuth, Event{Kind: kind, User: u})
}
