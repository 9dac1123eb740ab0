// Package middleware provides the HTTP middleware for the headless gate
// server. Middleware is applied globally in a fixed order; see
// internal/app/app.go for registration.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
)

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, and remote IP.
// Static asset requests are not logged.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if strings.HasPrefix(req.URL.Path, "/static/") {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			// The error handler has not run yet, so an error without a
			// committed response still reports Echo's pending status.
			res := c.Response()
			status := res.Status
			if err != nil && !res.Committed {
				status = errorStatus(err)
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}

			// The login hash lives in the query string; it is a one-time
			// credential and stays out of the request log.
			if req.URL.RawQuery != "" && !req.URL.Query().Has("login") {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return err
		}
	}
}

// errorStatus returns the status code the error handler will send for err.
func errorStatus(err error) int {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
