package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/identity"
)

const (
	// AppContextKey holds the application context in every echo.Context.
	AppContextKey = "appctx"
	// UserContextKey holds the authenticated identity.User on admin routes.
	UserContextKey = "user"
	// TokenContextKey holds the raw bearer token on admin routes.
	TokenContextKey = "token"
)

// Options wires the server to the application.
type Options struct {
	// AppContext is stored in each request under AppContextKey
	AppContext interface{}
	Identity   identity.Provider
	Validator  *validator.Validate
}

// WebServer is the HTTP front of the shop.
type WebServer struct {
	root   *echo.Echo
	pub    *echo.Group
	api    *echo.Group
	config *config.AppConfig
}

var server *WebServer

// CustomValidator adapts go-playground/validator to echo.
type CustomValidator struct {
	Validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.Validator.Struct(i)
}

// Init builds the global server. Route registration helpers act on it.
func Init(cfg *config.AppConfig, opts Options) *WebServer {
	server = NewWebServer(cfg, opts)
	return server
}

func NewWebServer(cfg *config.AppConfig, opts Options) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	e.Validator = &CustomValidator{Validator: opts.Validator}
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("namespace", "web"))
			return nil
		},
	}))
	if len(cfg.Web.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Web.AllowOrigins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.Secret))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, opts.AppContext)
			return next(c)
		}
	})

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	pub := e.Group("/api/v1")
	api := pub.Group("/admin")
	if opts.Identity != nil {
		api.Use(echojwt.WithConfig(echojwt.Config{
			ContextKey: UserContextKey,
			ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
				u, err := opts.Identity.CurrentUser(c.Request().Context(), auth)
				if err != nil {
					return nil, err
				}
				c.Set(TokenContextKey, auth)
				return u, nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "يجب تسجيل الدخول", nil)
			},
		}))
		api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				u, _ := c.Get(UserContextKey).(identity.User)
				if !cfg.IsAdmin(u.Email) {
					return Fail(c, http.StatusForbidden, "FORBIDDEN", "لا تملك صلاحية الإدارة", nil)
				}
				return next(c)
			}
		})
	}

	return &WebServer{root: e, pub: pub, api: api, config: cfg}
}

// Echo exposes the router, mostly for tests.
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *WebServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Web.Host, s.config.Web.Port)
	zap.S().Infof("Storefront web server listen on %s", addr)
	errc := make(chan error, 1)
	go func() {
		errc <- s.root.Start(addr)
	}()
	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.root.Shutdown(shutdownCtx)
	}
}

// Server returns the global server.
func Server() *WebServer {
	return server
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

func PubGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.pub.GET(path, h, m...)
}

func PubPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.pub.POST(path, h, m...)
}

func PubPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.pub.PUT(path, h, m...)
}

func PubDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.pub.DELETE(path, h, m...)
}

// CurrentUser returns the admin authenticated on this request.
func CurrentUser(c echo.Context) (identity.User, bool) {
	u, ok := c.Get(UserContextKey).(identity.User)
	return u, ok
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		zap.L().Error("unhandled error", zap.Error(err), zap.String("namespace", "web"))
	}
	_ = Fail(c, code, strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")), msg, nil)
}
