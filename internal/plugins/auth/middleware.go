package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
)

// Context keys for storing auth data in the Echo context. Other plugins
// use the exported getters below.
const (
	contextKeySession   = "auth_session"
	contextKeyPrincipal = "auth_principal"
)

// LoadSession returns middleware that resolves the session cookie, if any,
// into the request principal. It never rejects a request: a missing or
// stale session simply leaves the request unauthenticated, and a stale
// cookie is cleared.
func LoadSession(service SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return next(c)
			}

			session, err := service.Validate(c.Request().Context(), token)
			if err != nil {
				if apperror.SafeCode(err) == http.StatusInternalServerError {
					slog.Error("session lookup failed", slog.Any("error", err))
				}
				ClearSessionCookie(c)
				return next(c)
			}

			c.Set(contextKeySession, session)
			SetPrincipal(c, principalFromSession(session))
			return next(c)
		}
	}
}

// RequireAdministrator returns middleware for the admin screens. Anonymous
// requests are sent to loginPath; authenticated users without the
// administrator role get 403.
func RequireAdministrator(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := GetPrincipal(c)
			if p == nil {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			if !p.IsAdministrator() {
				return apperror.NewForbidden("Insufficient permissions")
			}
			return next(c)
		}
	}
}

// LogoutInterceptor returns middleware that handles ?action=logout on any
// path: every session of the current user is destroyed, the cookie is
// cleared, and the browser is sent to home.
func LogoutInterceptor(service SessionService, home string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.QueryParam("action") != "logout" {
				return next(c)
			}

			if session := GetSession(c); session != nil {
				if err := service.DestroyAll(c.Request().Context(), session.UserID); err != nil {
					slog.Error("failed to destroy sessions on logout",
						slog.Int64("user_id", session.UserID),
						slog.Any("error", err),
					)
				}
				slog.Info("user logged out", slog.Int64("user_id", session.UserID))
			}

			ClearSessionCookie(c)
			return c.Redirect(http.StatusFound, home)
		}
	}
}

// --- Exported getters for other plugins ---

// SetPrincipal records the authenticated identity for this request.
func SetPrincipal(c echo.Context, p *Principal) {
	c.Set(contextKeyPrincipal, p)
}

// GetPrincipal returns the authenticated identity, or nil.
func GetPrincipal(c echo.Context) *Principal {
	p, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// IsAuthenticated reports whether the request carries a valid session or
// bearer token.
func IsAuthenticated(c echo.Context) bool {
	return GetPrincipal(c) != nil
}

// GetSession retrieves the cookie session from the Echo context, or nil.
func GetSession(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}
