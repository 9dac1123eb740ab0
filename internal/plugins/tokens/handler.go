package tokens

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/plugins/users"
	"github.com/keyxmakerx/headless/internal/templates/layouts"
)

// Transients is the subset of transient.Store the admin screen uses to
// hand a freshly minted token to the next page load.
type Transients interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Handler serves the token admin screen and the viewer endpoint.
type Handler struct {
	service     TokenService
	users       users.UserService
	transients  Transients
	nonceSecret string
	path        string
}

// NewHandler creates a token handler. path is the admin screen's full URL
// path.
func NewHandler(service TokenService, us users.UserService, tr Transients, nonceSecret, path string) *Handler {
	return &Handler{
		service:     service,
		users:       us,
		transients:  tr,
		nonceSecret: nonceSecret,
		path:        path,
	}
}

func generatedTokenKey(adminID int64) string {
	return "graphql_generated_token_" + strconv.FormatInt(adminID, 10)
}

// Show renders the token screen (GET /wp-admin/jwt-tokens). A token
// generated by the previous POST is displayed once and then forgotten.
func (h *Handler) Show(c echo.Context) error {
	ctx := c.Request().Context()
	admin := auth.GetPrincipal(c)

	var generated *GeneratedToken
	key := generatedTokenKey(admin.UserID)
	var stored GeneratedToken
	found, err := h.transients.Get(ctx, key, &stored)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if found {
		generated = &stored
		if err := h.transients.Delete(ctx, key); err != nil {
			slog.Warn("failed to forget generated token", slog.Any("error", err))
		}
	}

	settings, err := h.service.Settings(ctx)
	if err != nil {
		return err
	}
	candidates, err := h.users.ListByRoles(ctx, pickerRoles...)
	if err != nil {
		return err
	}

	middleware.NoCache(c)
	return middleware.Render(c, http.StatusOK, TokensPage(pageView{
		Action:    h.path,
		CSRFToken: middleware.GetCSRFToken(c),
		Nonce:     middleware.CreateNonce(c, h.nonceSecret, nonceAction),
		Users:     candidates,
		Generated: generated,
		Settings:  *settings,
	}))
}

// Action dispatches the screen's POST actions (POST /wp-admin/jwt-tokens).
func (h *Handler) Action(c echo.Context) error {
	if !middleware.VerifyNonce(c, h.nonceSecret, nonceAction) {
		return apperror.NewForbidden("Security check failed")
	}

	switch c.FormValue("action") {
	case "generate_token":
		return h.generate(c)
	case "regenerate_secret":
		if err := h.service.RegenerateSecret(c.Request().Context()); err != nil {
			return err
		}
		return h.redirect(c, "Secret regenerated. All existing tokens are now invalid.", layouts.FlashSuccess)
	case "update_settings":
		days, _ := strconv.Atoi(c.FormValue("default_expiry"))
		if _, err := h.service.UpdateSettings(c.Request().Context(), days, c.FormValue("issuer")); err != nil {
			if apperror.SafeCode(err) != http.StatusUnprocessableEntity {
				return err
			}
			return h.redirect(c, apperror.SafeMessage(err), layouts.FlashError)
		}
		return h.redirect(c, "Settings updated.", layouts.FlashSuccess)
	default:
		return apperror.NewBadRequest("Unknown action")
	}
}

func (h *Handler) generate(c echo.Context) error {
	ctx := c.Request().Context()

	userID, _ := strconv.ParseInt(c.FormValue("user_id"), 10, 64)
	if userID <= 0 {
		return h.redirect(c, "Please select a user", layouts.FlashError)
	}
	days, err := strconv.Atoi(c.FormValue("expiry_days"))
	if err != nil || days <= 0 {
		days = 7
	}

	generated, err := h.service.Generate(ctx, userID, time.Duration(days)*24*time.Hour)
	if errors.Is(err, ErrUserNotFound) {
		return h.redirect(c, "Failed to generate token. User not found.", layouts.FlashError)
	}
	if err != nil {
		return err
	}

	admin := auth.GetPrincipal(c)
	if err := h.transients.Set(ctx, generatedTokenKey(admin.UserID), generated, generatedTokenTTL); err != nil {
		return apperror.NewInternal(err)
	}

	slog.Info("bearer token issued from admin screen",
		slog.Int64("admin_id", admin.UserID),
		slog.Int64("user_id", generated.User.ID),
		slog.Int("expiry_days", days),
	)
	return h.redirect(c, "Token generated successfully.", layouts.FlashSuccess)
}

func (h *Handler) redirect(c echo.Context, message, kind string) error {
	q := url.Values{"message": {message}, "type": {kind}}
	return c.Redirect(http.StatusSeeOther, h.path+"?"+q.Encode())
}

// Viewer returns the authenticated principal (GET /graphql/viewer).
func (h *Handler) Viewer(c echo.Context) error {
	p := auth.GetPrincipal(c)
	if p == nil {
		return apperror.NewUnauthorized("Authentication required")
	}
	return c.JSON(http.StatusOK, p)
}
