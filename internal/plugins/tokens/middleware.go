package tokens

import (
	"log/slog"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/plugins/auth"
)

// bearerLookup lists the headers a token may arrive in, in order. Proxies
// that strip Authorization can forward it under either alternative. The
// "Bearer " prefix is matched case-insensitively.
const bearerLookup = "header:Authorization:Bearer ," +
	"header:X-Forwarded-Authorization:Bearer ," +
	"header:X-Authorization:Bearer "

// contextKeyBearer holds the principal echo-jwt stores on success.
const contextKeyBearer = "bearer_principal"

// BearerAuth returns middleware that authenticates requests carrying a
// bearer token. It never rejects: a missing, malformed, expired or foreign
// token leaves the request unauthenticated. Requests that already have a
// session principal are left alone.
func BearerAuth(svc TokenService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:     auth.IsAuthenticated,
		TokenLookup: bearerLookup,
		ContextKey:  contextKeyBearer,
		ParseTokenFunc: func(c echo.Context, token string) (any, error) {
			p, err := svc.Authenticate(c.Request().Context(), token)
			if err != nil && !IsInvalid(err) {
				slog.Warn("bearer authentication failed", slog.Any("error", err))
			}
			return p, err
		},
		SuccessHandler: func(c echo.Context) {
			if p, ok := c.Get(contextKeyBearer).(*auth.Principal); ok {
				auth.SetPrincipal(c, p)
			}
		},
		ErrorHandler:           func(echo.Context, error) error { return nil },
		ContinueOnIgnoredError: true,
	})
}
