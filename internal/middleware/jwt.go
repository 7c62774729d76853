package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-booking/internal/utils"
)

// Context keys set by the identity middlewares.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func setIdentity(c echo.Context, cl utils.Claims) bool {
	uid, err := cl.UserID()
	if err != nil {
		return false
	}
	c.Set(CtxUserID, uid)
	c.Set(CtxRole, cl.Role)
	return true
}

// JWTAuth requires a valid Bearer access token and stores the caller's
// user ID (uint64) and role in the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			cl, err := utils.ParseAccessToken(secret, raw)
			if err != nil || !setIdentity(c, cl) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			return next(c)
		}
	}
}

// OptionalJWT identifies the caller when a Bearer token is present and
// lets anonymous requests through. A present but invalid token is still
// rejected so a client never books as a guest by accident.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return next(c)
			}
			cl, err := utils.ParseAccessToken(secret, raw)
			if err != nil || !setIdentity(c, cl) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			return next(c)
		}
	}
}
