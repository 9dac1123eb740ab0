// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance) and wires together the plugins and the middleware chain.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/config"
	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/options"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/plugins/gate"
	"github.com/keyxmakerx/headless/internal/plugins/lockdown"
	"github.com/keyxmakerx/headless/internal/plugins/settings"
	"github.com/keyxmakerx/headless/internal/plugins/tokens"
	"github.com/keyxmakerx/headless/internal/plugins/users"
	"github.com/keyxmakerx/headless/internal/sanitize"
	"github.com/keyxmakerx/headless/internal/templates/layouts"
	"github.com/keyxmakerx/headless/internal/templates/pages"
	"github.com/keyxmakerx/headless/internal/transient"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool (users, options).
	DB *sql.DB

	// Redis is the Redis client (sessions, transients).
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Services shared between middleware and route handlers.
	Users     users.UserService
	Sessions  auth.SessionService
	Gate      gate.GateService
	Settings  settings.SettingsService
	Tokens    tokens.TokenService
	AllowList *lockdown.AllowList

	options       options.Store
	transients    *transient.Store
	settingsStore settings.SettingsRepository
}

// New creates a new App instance with the given dependencies, builds the
// plugin services, and configures the Echo server with the global
// middleware chain and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, accessLog gate.AccessLog) *App {
	return newApp(cfg, db, rdb, accessLog, nil)
}

// newApp is New with a preset hook that may fill in the options store or
// the user service before the remaining services are built from them.
func newApp(cfg *config.Config, db *sql.DB, rdb *redis.Client, accessLog gate.AccessLog, preset func(*App)) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Login links are bound to the client IP, so only trusted proxies may
	// set forwarding headers.
	proxies := cfg.TrustedProxies
	if len(proxies) == 0 {
		proxies = middleware.DefaultTrustedProxies
	}
	middleware.TrustedProxies(e, proxies)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
	}
	if preset != nil {
		preset(app)
	}
	app.wireServices(accessLog)

	app.setupMiddleware()
	middleware.LayoutInjector = app.layoutInjector

	e.HTTPErrorHandler = app.errorHandler

	return app
}

// wireServices builds every plugin service. Repositories are private to
// their plugins; other plugins only see service interfaces. The MariaDB
// backed options store and user service are built only when not preset.
func (a *App) wireServices(accessLog gate.AccessLog) {
	cfg := a.Config
	if a.options == nil {
		a.options = options.NewStore(a.DB)
	}
	opts := a.options
	a.transients = transient.NewStore(a.Redis)

	if a.Users == nil {
		a.Users = users.NewUserService(users.NewUserRepository(a.DB))
	}
	a.Sessions = auth.NewSessionService(a.Redis, cfg.Auth.SessionTTL)

	settingsFile := settings.NewFileStore(cfg.Protection.ConfigFile)
	a.settingsStore = settings.NewSettingsRepository(opts)
	a.Settings = settings.NewSettingsService(a.settingsStore, settingsFile)

	a.AllowList = lockdown.NewAllowList(settings.DefaultAllowedURLs,
		lockdown.Provider{Name: "file", Source: settingsFile},
		lockdown.Provider{Name: "option", Source: a.settingsStore},
	)

	a.Tokens = tokens.NewTokenService(opts, a.Users, cfg.Tokens)
	a.Gate = gate.NewGateService(cfg.Gate, cfg.Auth.SecretKey, a.transients, a.Users, a.Sessions, accessLog)
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, the lockdown filter runs
// last so it sees the principal from either the session or a bearer token.
func (a *App) setupMiddleware() {
	cfg := a.Config

	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers on everything outside the admin area.
	a.Echo.Use(middleware.SecurityHeaders(cfg.Protection.AdminPath))

	// CORS -- browser GraphQL clients on other origins.
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{cfg.BaseURL}
	}
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowCredentials: true,
	}))

	// CSRF -- double-submit cookie on state-changing requests.
	a.Echo.Use(middleware.CSRF(middleware.CSRFConfig{
		Skipper: csrfSkipper(cfg.Gate.Path),
	}))

	// Identity: the session cookie first, then bearer tokens.
	a.Echo.Use(auth.LoadSession(a.Sessions))
	a.Echo.Use(tokens.BearerAuth(a.Tokens))

	a.Echo.Use(auth.LogoutInterceptor(a.Sessions, "/"))
	a.Echo.Use(lockdown.LegacyLoginBlock(cfg.Protection.LegacyLoginEndpoint))

	if cfg.Protection.Enabled {
		a.Echo.Use(lockdown.AdminLockdown(lockdown.Config{
			AdminPath:           cfg.Protection.AdminPath,
			LegacyLoginEndpoint: cfg.Protection.LegacyLoginEndpoint,
		}, a.AllowList, a.settingsStore))
	} else {
		slog.Warn("admin lockdown disabled")
	}
}

// csrfSkipper exempts requests that carry no browser form: GraphQL calls
// (bearer-authenticated, no cookie) and a bare POST to the gate, which only
// issues a new link.
func csrfSkipper(gatePath string) func(echo.Context) bool {
	gatePath = "/" + strings.Trim(gatePath, "/")
	return func(c echo.Context) bool {
		path := c.Request().URL.Path
		if path == "/graphql" || strings.HasPrefix(path, "/graphql/") {
			return true
		}
		return strings.TrimRight(path, "/") == gatePath && !c.QueryParams().Has("login")
	}
}

// layoutInjector copies the principal, CSRF token, flash notice, admin nav
// and active path into the context read by the page shell.
func (a *App) layoutInjector(c echo.Context, ctx context.Context) context.Context {
	if p := auth.GetPrincipal(c); p != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserName(ctx, p.DisplayName)
		ctx = layouts.SetIsAdmin(ctx, p.IsAdministrator())
	}
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	if msg := sanitize.Text(c.QueryParam("message")); msg != "" {
		ctx = layouts.SetFlash(ctx, c.QueryParam("type"), msg)
	}
	ctx = layouts.SetNav(ctx, adminNav(a.Config.Protection.AdminPath))
	return layouts.SetActivePath(ctx, c.Request().URL.Path)
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to appropriate HTTP responses, and renders a halt page for
// browser requests or JSON for GraphQL and API requests.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	// Check if it's our domain error type.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = defaultErrorMessage(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
			)
		}
	}

	// Machine clients always get JSON.
	if isAPIRequest(c) {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	if err := middleware.Render(c, code, pages.ErrorPage(code, message)); err != nil {
		slog.Error("rendering error page", slog.Any("error", err))
	}
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to log in to access this page."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// isAPIRequest returns true if the request expects a JSON response.
func isAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/graphql" || strings.HasPrefix(path, "/graphql/") || strings.HasPrefix(path, "/api")
}

// Bootstrap prepares persistent state before serving: the first
// administrator account and the settings file.
func (a *App) Bootstrap(ctx context.Context) error {
	cfg := a.Config.Auth
	if err := a.Users.EnsureBootstrapAdmin(ctx, cfg.BootstrapLogin, cfg.BootstrapPassword, cfg.BootstrapEmail); err != nil {
		return fmt.Errorf("bootstrapping administrator: %w", err)
	}
	return a.Settings.EnsureFile(ctx)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting headless server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("gate", a.Config.Gate.Path),
	)
	return a.Echo.Start(addr)
}
