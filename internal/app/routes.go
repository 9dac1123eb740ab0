package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/plugins/gate"
	"github.com/keyxmakerx/headless/internal/plugins/settings"
	"github.com/keyxmakerx/headless/internal/plugins/tokens"
	"github.com/keyxmakerx/headless/internal/templates/layouts"
	"github.com/keyxmakerx/headless/internal/templates/pages"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo
	cfg := a.Config
	adminPath := cfg.Protection.AdminPath

	// --- Public Routes ---

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Home())
	})

	// Health check for container orchestration.
	e.GET("/healthz", a.healthz)

	// Console login gate.
	gate.RegisterRoutes(e, gate.NewHandler(a.Gate, cfg), cfg.Gate.Path)

	// --- Admin Routes (administrator role required) ---

	admin := e.Group(adminPath, auth.RequireAdministrator(cfg.Gate.Path))

	admin.GET("", a.dashboard)
	admin.GET("/", a.dashboard)

	settings.RegisterRoutes(admin,
		settings.NewHandler(a.Settings, cfg.Auth.SecretKey, adminPath+settings.ScreenPath))

	tokens.RegisterRoutes(e, admin,
		tokens.NewHandler(a.Tokens, a.Users, a.transients, cfg.Auth.SecretKey, adminPath+tokens.ScreenPath))
}

// adminScreens lists the admin screens under adminPath. The dashboard and
// the page shell nav both render from it.
func adminScreens(adminPath string) []pages.DashboardLink {
	return []pages.DashboardLink{
		{
			Title:       "Headless Settings",
			Description: "Site redirect and the URLs that stay reachable while the admin area is locked down.",
			URL:         adminPath + settings.ScreenPath,
		},
		{
			Title:       "GraphQL Tokens",
			Description: "Issue bearer tokens for API clients and manage the signing secret.",
			URL:         adminPath + tokens.ScreenPath,
		},
	}
}

// adminNav is the page shell nav: the dashboard followed by every screen.
func adminNav(adminPath string) []layouts.NavLink {
	nav := []layouts.NavLink{{Title: "Dashboard", URL: adminPath}}
	for _, s := range adminScreens(adminPath) {
		nav = append(nav, layouts.NavLink{Title: s.Title, URL: s.URL})
	}
	return nav
}

// dashboard links to the admin screens (GET /wp-admin).
func (a *App) dashboard(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.Dashboard(adminScreens(a.Config.Protection.AdminPath)))
}

// healthz reports whether MariaDB and Redis answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "mariadb": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		slog.Warn("health check: mariadb", slog.Any("error", err))
		status["mariadb"], status["status"], code = "unavailable", "degraded", http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		slog.Warn("health check: redis", slog.Any("error", err))
		status["redis"], status["status"], code = "unavailable", "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
