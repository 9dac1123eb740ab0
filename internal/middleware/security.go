package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every public response. Requests under adminPath are left alone so the
// admin screens can be framed by their own tooling.
//
// HSTS is only sent when the request arrived over TLS (directly or via a
// proxy setting X-Forwarded-Proto), otherwise a plain-HTTP dev server would
// pin browsers to HTTPS.
func SecurityHeaders(adminPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if adminPath != "" && strings.HasPrefix(c.Request().URL.Path, adminPath) {
				return next(c)
			}

			h := c.Response().Header()

			// Clickjacking: same-origin framing only. CSP frame-ancestors covers
			// modern browsers, X-Frame-Options the rest.
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Content-Security-Policy", "frame-ancestors 'self'")

			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			if c.Scheme() == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}

			return next(c)
		}
	}
}
