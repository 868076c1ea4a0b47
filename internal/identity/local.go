package identity

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ummitifli/storefront/internal/domain"
)

// Claims are carried by local access tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalConfig configures the local provider.
type LocalConfig struct {
	Secret    string
	TokenTTL  time.Duration
	VerifyURL string // link base placed in verification mail, the token is appended as ?token=
	ShopName  string
}

// Local authenticates against the users table with bcrypt passwords and
// HS256 access tokens.
type Local struct {
	users  UserRepository
	mailer Mailer
	cfg    LocalConfig
	events

	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewLocal(users UserRepository, mailer Mailer, cfg LocalConfig, bus EventBus.Bus) *Local {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ShopName == "" {
		cfg.ShopName = "متجر أمي"
	}
	return &Local{
		users:   users,
		mailer:  mailer,
		cfg:     cfg,
		events:  newEvents(bus),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// SignUp creates an unverified account and mails a verification link. Signing
// up again before verification issues a new link.
func (l *Local) SignUp(ctx context.Context, email, password string) error {
	email = NormalizeEmail(email)
	if len(password) < MinPasswordLen {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	now := l.now()
	u := &domain.AuthUser{
		ID:          uuid.NewString(),
		Email:       email,
		Password:    string(hash),
		VerifyToken: random.String(32, random.Alphanumeric),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = l.users.Create(ctx, u)
	switch {
	case errors.Is(err, ErrEmailTaken):
		if u, err = l.reissue(ctx, email, string(hash)); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		l.publish(EventSignedUp, toUser(u))
	}
	if err := l.sendVerification(ctx, u); err != nil {
		zap.L().Error("send verification mail failed", zap.Error(err), zap.String("email", email),
			zap.String("namespace", "identity"))
		return errors.Wrap(err, "send verification mail")
	}
	return nil
}

// reissue replaces the password and verification token of an unverified
// account so a lost or failed verification mail can be sent again.
func (l *Local) reissue(ctx context.Context, email, hash string) (*domain.AuthUser, error) {
	u, err := l.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, ErrEmailTaken
	}
	u.Password = hash
	u.VerifyToken = random.String(32, random.Alphanumeric)
	u.UpdatedAt = l.now()
	if err := l.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (l *Local) sendVerification(ctx context.Context, u *domain.AuthUser) error {
	if l.mailer == nil {
		return nil
	}
	link := l.cfg.VerifyURL + "?token=" + url.QueryEscape(u.VerifyToken)
	return l.mailer.Send(ctx, Email{
		To:       u.Email,
		Subject:  "تأكيد البريد الإلكتروني - " + l.cfg.ShopName,
		TextBody: fmt.Sprintf("مرحباً،\n\nيرجى تأكيد بريدك الإلكتروني عبر الرابط التالي:\n%s\n", link),
		HTMLBody: fmt.Sprintf(`<p dir="rtl">يرجى تأكيد بريدك الإلكتروني: <a href="%s">تأكيد</a></p>`, link),
	})
}

// Verify confirms the address owning token.
func (l *Local) Verify(ctx context.Context, token string) (User, error) {
	u, err := l.users.GetByVerifyToken(ctx, token)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	u.Verified = true
	u.VerifyToken = ""
	u.UpdatedAt = l.now()
	if err := l.users.Update(ctx, u); err != nil {
		return User{}, err
	}
	l.publish(EventVerified, toUser(u))
	return toUser(u), nil
}

// SignInWithPassword checks credentials and issues an access token.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	u, err := l.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !u.Verified {
		return Session{}, ErrNotVerified
	}

	now := l.now()
	exp := now.Add(l.cfg.TokenTTL)
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(l.cfg.Secret))
	if err != nil {
		return Session{}, errors.Wrap(err, "sign token")
	}

	u.LastLogin = &now
	u.UpdatedAt = now
	if err := l.users.Update(ctx, u); err != nil {
		zap.L().Warn("update last login failed", zap.Error(err), zap.String("namespace", "identity"))
	}
	user := toUser(u)
	l.publish(EventSignedIn, user)
	return Session{AccessToken: token, TokenType: "bearer", ExpiresAt: exp, User: user}, nil
}

// ParseToken validates signature, expiry and revocation.
func (l *Local) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(l.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	l.mu.Lock()
	_, revoked := l.revoked[claims.ID]
	l.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CurrentUser resolves the account behind token.
func (l *Local) CurrentUser(ctx context.Context, token string) (User, error) {
	claims, err := l.ParseToken(token)
	if err != nil {
		return User{}, err
	}
	u, err := l.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	return toUser(u), nil
}

// SignOut revokes token until it would have expired anyway.
func (l *Local) SignOut(ctx context.Context, token string) error {
	claims, err := l.ParseToken(token)
	if err != nil {
		return err
	}
	exp := l.now().Add(l.cfg.TokenTTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	l.mu.Lock()
	l.revoked[claims.ID] = exp
	l.mu.Unlock()

	user := User{ID: claims.Subject, Email: claims.Email}
	if u, err := l.users.GetByID(ctx, claims.Subject); err == nil {
		user = toUser(u)
	}
	l.publish(EventSignedOut, user)
	return nil
}

// PurgeRevoked forgets revocations of tokens that have expired and returns
// how many were dropped.
func (l *Local) PurgeRevoked() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, exp := range l.revoked {
		if !exp.After(now) {
			delete(l.revoked, id)
			n++
		}
	}
	return n
}

func toUser(u *domain.AuthUser) User {
	return User{ID: u.ID, Email: u.Email, Verified: u.Verified}
}
