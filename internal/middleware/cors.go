package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests, typically the headless front-ends. ["*"] allows all.
	AllowedOrigins []string

	// AllowCredentials lets browsers send cookies cross-origin. Bearer
	// clients do not need it.
	AllowCredentials bool
}

// corsAllowedHeaders includes every header the bearer middleware reads.
var corsAllowedHeaders = []string{
	"Content-Type",
	"Authorization",
	"X-Authorization",
	"X-Forwarded-Authorization",
	"X-Requested-With",
	"X-CSRF-Token",
}

// CORS returns middleware that handles Cross-Origin Resource Sharing headers
// for GraphQL clients running on other origins. The admin screens are
// same-origin and never need it.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	// Wildcard plus credentials would let any site make authenticated calls.
	if allowAll && cfg.AllowCredentials {
		slog.Warn("CORS misconfiguration: wildcard origin with credentials; credentials disabled")
		cfg.AllowCredentials = false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get("Origin")

			if origin == "" {
				return next(c)
			}

			if !allowAll && !originSet[origin] {
				// The browser blocks the response client-side.
				return next(c)
			}

			res.Header().Set("Access-Control-Allow-Origin", origin)
			res.Header().Add("Vary", "Origin")

			if cfg.AllowCredentials {
				res.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Preflight.
			if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
				res.Header().Set("Access-Control-Allow-Methods",
					strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", "))
				res.Header().Set("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
				res.Header().Set("Access-Control-Max-Age", "3600")
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
