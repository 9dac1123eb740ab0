package lockdown

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/plugins/auth"
)

// RedirectSource supplies the configured site redirect URL ("" for none).
type RedirectSource interface {
	SiteRedirect(ctx context.Context) (string, error)
}

// Config holds the lockdown filter settings.
type Config struct {
	AdminPath           string
	LegacyLoginEndpoint string
}

// AdminLockdown returns middleware that redirects anonymous requests for
// the admin area to the site redirect (or "/"). Authenticated requests and
// requests whose URI contains an allow-listed fragment pass.
func AdminLockdown(cfg Config, list *AllowList, redirect RedirectSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if auth.IsAuthenticated(c) {
				return next(c)
			}

			uri := c.Request().RequestURI
			ctx := c.Request().Context()

			allowed, _ := list.Resolve(ctx)
			if containsAny(uri, allowed) {
				return next(c)
			}

			if !strings.Contains(uri, cfg.AdminPath) && !strings.Contains(uri, cfg.LegacyLoginEndpoint) {
				return next(c)
			}

			target := redirectTarget(ctx, redirect)
			slog.Debug("admin lockdown redirect",
				slog.String("uri", uri),
				slog.String("ip", c.RealIP()),
				slog.String("to", target),
			)
			return c.Redirect(http.StatusFound, target)
		}
	}
}

// LegacyLoginBlock returns middleware that sends every request for the
// legacy login endpoint home, except password reset actions.
func LegacyLoginBlock(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.Contains(c.Request().URL.Path, endpoint) {
				return next(c)
			}
			switch c.QueryParam("action") {
			case "resetpass", "rp":
				return next(c)
			}
			return c.Redirect(http.StatusFound, "/")
		}
	}
}

func containsAny(uri string, fragments []string) bool {
	for _, f := range fragments {
		if f != "" && strings.Contains(uri, f) {
			return true
		}
	}
	return false
}

func redirectTarget(ctx context.Context, src RedirectSource) string {
	if src == nil {
		return "/"
	}
	target, err := src.SiteRedirect(ctx)
	if err != nil {
		slog.Warn("reading site redirect", slog.Any("error", err))
		return "/"
	}
	if target == "" {
		return "/"
	}
	return target
}
