package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

// AuthMiddleware validates a Bearer token against the configured gateway
// token.
func AuthMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				c.Response().Header().Set("WWW-Authenticate", `Bearer realm="gateway"`)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error: "missing authorization header",
					Code:  "UNAUTHORIZED",
				})
			}

			scheme, provided, ok := strings.Cut(auth, " ")
			if !ok || scheme != "Bearer" {
				return unauthorized(c)
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}

func unauthorized(c *echo.Context) error {
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="gateway"`)
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error: "invalid auth token",
		Code:  "UNAUTHORIZED",
	})
}
