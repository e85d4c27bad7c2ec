package middleware

import (
	"github.com/labstack/echo/v4"
)

// defaultSecurityHeaders are set on every response. The auth collaborator may
// override any of them, since its headers are copied afterwards.
var defaultSecurityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "no-referrer",
}

// SecurityHeaders returns an Echo middleware that adds security headers to
// responses. Request headers are left untouched: every inbound header is
// handed to the auth collaborator.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Headers must be in place before the handler writes the status line.
			header := c.Response().Header()
			for k, v := range defaultSecurityHeaders {
				header.Set(k, v)
			}

			return next(c)
		}
	}
}
