package storefront

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/identity"
	"github.com/ummitifli/storefront/internal/webserver"
)

type signInPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpPayload struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/auth/signin", signIn)
	webserver.PubPOST("/auth/signup", signUp)
	webserver.PubPOST("/auth/signout", signOut)
	webserver.PubGET("/auth/verify", verifyEmail)
	webserver.PubGET("/auth/me", me)
}

// authError maps provider errors onto statuses with the shop's wording.
func authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return webserver.Fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "البريد الإلكتروني أو كلمة المرور غير صحيحة", nil)
	case errors.Is(err, identity.ErrNotVerified):
		return webserver.Fail(c, http.StatusForbidden, "EMAIL_NOT_CONFIRMED", "يرجى تفعيل بريدك الإلكتروني أولاً", nil)
	case errors.Is(err, identity.ErrEmailTaken):
		return webserver.Fail(c, http.StatusConflict, "EMAIL_TAKEN", "البريد الإلكتروني مسجل مسبقاً", nil)
	case errors.Is(err, identity.ErrWeakPassword):
		return webserver.Fail(c, http.StatusBadRequest, "WEAK_PASSWORD", "كلمة المرور قصيرة جداً", nil)
	case errors.Is(err, identity.ErrInvalidToken):
		return webserver.Fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "انتهت الجلسة، يرجى تسجيل الدخول مجدداً", nil)
	}
	zap.L().Error("auth request failed", zap.Error(err), zap.String("namespace", "storefront"))
	return webserver.Fail(c, http.StatusBadGateway, "AUTH_ERROR", "حدث خطأ ما", err.Error())
}

func signIn(c echo.Context) error {
	var payload signInPayload
	if err := c.Bind(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return webserver.FailErr(c, admin.FromValidationError(err))
	}
	s, err := GetAppContext(c).Identity().SignInWithPassword(c.Request().Context(), payload.Email, payload.Password)
	if err != nil {
		return authError(c, err)
	}
	return webserver.OK(c, s)
}

func signUp(c echo.Context) error {
	var payload signUpPayload
	if err := c.Bind(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if err := c.Validate(&payload); err != nil {
		return webserver.FailErr(c, admin.FromValidationError(err))
	}
	if err := GetAppContext(c).Identity().SignUp(c.Request().Context(), payload.Email, payload.Password); err != nil {
		return authError(c, err)
	}
	return webserver.Created(c, map[string]string{"message": "تم إرسال رابط التفعيل إلى بريدك الإلكتروني"})
}

func signOut(c echo.Context) error {
	token := webserver.BearerToken(c)
	if token == "" {
		return authError(c, identity.ErrInvalidToken)
	}
	if err := GetAppContext(c).Identity().SignOut(c.Request().Context(), token); err != nil {
		return authError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// verifyEmail confirms the address and redirects to the shop when the link
// came from a browser
func verifyEmail(c echo.Context) error {
	v, supported := GetAppContext(c).Identity().(identity.Verifier)
	if !supported {
		return webserver.Fail(c, http.StatusNotFound, "NOT_SUPPORTED", "verification is handled by the auth server", nil)
	}
	u, err := v.Verify(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return authError(c, err)
	}
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.Redirect(http.StatusFound, "/")
	}
	return webserver.OK(c, u)
}

func me(c echo.Context) error {
	u, err := GetAppContext(c).Identity().CurrentUser(c.Request().Context(), webserver.BearerToken(c))
	if err != nil {
		return authError(c, err)
	}
	return webserver.OK(c, u)
}
