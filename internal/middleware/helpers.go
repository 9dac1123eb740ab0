package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout-relevant data from the Echo context (set by
// the session and CSRF middleware) into the Go context that page components
// read. Set once in app.New, so this package never
// imports plugin types.
var LayoutInjector func(echo.Context, context.Context) context.Context

// Render writes a templ component to the response with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

// NoCache marks the response as uncacheable. Used on responses that set or
// clear credentials.
func NoCache(c echo.Context) {
	h := c.Response().Header()
	h.Set("Cache-Control", "no-cache, must-revalidate, max-age=0, no-store, private")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "Wed, 11 Jan 1984 05:00:00 GMT")
}
