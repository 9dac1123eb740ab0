package gate

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/config"
	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/sanitize"
)

// Handler serves the console gate. It is thin: the state transitions live
// in GateService.
type Handler struct {
	service     GateService
	nonceSecret string
	baseURL     string
	gatePath    string
	adminPath   string
	attempts    int
	linkTTL     time.Duration
	sessionTTL  time.Duration
}

// NewHandler creates a gate handler.
func NewHandler(service GateService, cfg *config.Config) *Handler {
	return &Handler{
		service:     service,
		nonceSecret: cfg.Auth.SecretKey,
		baseURL:     cfg.BaseURL,
		gatePath:    cfg.Gate.Path,
		adminPath:   cfg.Protection.AdminPath,
		attempts:    cfg.Gate.Attempts,
		linkTTL:     cfg.Gate.LinkTTL,
		sessionTTL:  cfg.Auth.SessionTTL,
	}
}

// Console handles GET and POST on the gate path.
func (h *Handler) Console(c echo.Context) error {
	if !c.QueryParams().Has("login") {
		return h.issueLink(c)
	}

	// A signed-in visitor goes straight to the admin area and leaves the
	// link's attempts untouched.
	if auth.IsAuthenticated(c) {
		return c.Redirect(http.StatusFound, h.adminPath)
	}

	ctx := c.Request().Context()
	ip := c.RealIP()
	hash := sanitize.Text(c.QueryParam("login"))

	remaining, err := h.service.Consume(ctx, hash, ip)
	if err != nil {
		return err
	}

	var errMsg, username string
	if c.Request().Method == http.MethodPost {
		h.service.RecordAttempt(ip, hash)

		if c.FormValue("login-form") != "" {
			if !middleware.VerifyNonce(c, h.nonceSecret, nonceAction) {
				return apperror.NewForbidden("Security check failed")
			}

			username = sanitize.Text(c.FormValue("log"))
			_, token, err := h.service.Login(ctx, hash, ip, username, c.FormValue("pwd"))
			if err == nil {
				auth.SetSessionCookie(c, token, h.sessionTTL)
				middleware.NoCache(c)
				return c.Redirect(http.StatusFound, h.adminPath)
			}
			if apperror.SafeCode(err) != http.StatusUnauthorized {
				return err
			}
			errMsg = apperror.SafeMessage(err)
		}
	}

	middleware.NoCache(c)
	return middleware.Render(c, http.StatusOK, FormPage(formView{
		Action:    h.gatePath + "?login=" + url.QueryEscape(hash),
		CSRFToken: middleware.GetCSRFToken(c),
		Nonce:     middleware.CreateNonce(c, h.nonceSecret, nonceAction),
		Username:  username,
		Error:     errMsg,
		Remaining: remaining + 1,
	}))
}

// issueLink handles the NO_HASH state.
func (h *Handler) issueLink(c echo.Context) error {
	hash, err := h.service.IssueLink(c.Request().Context(), c.RealIP())
	if err != nil {
		return err
	}

	auth.ClearSessionCookie(c)
	middleware.NoCache(c)
	return middleware.Render(c, http.StatusOK, LinkPage(linkView{
		LoginURL: h.baseURL + h.gatePath + "?login=" + url.QueryEscape(hash),
		ValidFor: humanDuration(h.linkTTL),
		Attempts: h.attempts,
	}))
}
