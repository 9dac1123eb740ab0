package settings

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/middleware"
)

// Handler serves the settings screen. Routes require the administrator
// role (applied by the caller via the admin group's middleware stack).
type Handler struct {
	service     SettingsService
	nonceSecret string
	path        string
}

// NewHandler creates a new settings handler. path is the screen's full URL
// path, used as the form action and redirect target.
func NewHandler(service SettingsService, nonceSecret, path string) *Handler {
	return &Handler{service: service, nonceSecret: nonceSecret, path: path}
}

// Show renders the settings form (GET /wp-admin/headless-settings).
func (h *Handler) Show(c echo.Context) error {
	s, err := h.service.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, s.SiteRedirect, joinLines(s.AllowedURLs), "")
}

// Save persists the submitted form (POST /wp-admin/headless-settings).
func (h *Handler) Save(c echo.Context) error {
	if !middleware.VerifyNonce(c, h.nonceSecret, nonceAction) {
		return apperror.NewForbidden("Security check failed")
	}

	redirect := c.FormValue("site_redirect")
	allowed := c.FormValue("allowed_urls")

	if _, err := h.service.Update(c.Request().Context(), redirect, allowed); err != nil {
		if apperror.SafeCode(err) != http.StatusUnprocessableEntity {
			return err
		}
		return h.render(c, http.StatusUnprocessableEntity, redirect, allowed, apperror.SafeMessage(err))
	}

	q := url.Values{"message": {"Settings saved."}, "type": {"success"}}
	return c.Redirect(http.StatusSeeOther, h.path+"?"+q.Encode())
}

func (h *Handler) render(c echo.Context, status int, redirect, allowed, errMsg string) error {
	return middleware.Render(c, status, SettingsPage(pageView{
		Action:       h.path,
		CSRFToken:    middleware.GetCSRFToken(c),
		Nonce:        middleware.CreateNonce(c, h.nonceSecret, nonceAction),
		SiteRedirect: redirect,
		AllowedURLs:  allowed,
		Error:        errMsg,
	}))
}
