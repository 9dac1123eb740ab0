package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

// csrfTokenLength is the number of random bytes in a CSRF token (32 bytes = 64 hex chars).
const csrfTokenLength = 32

// csrfCookieName is the name of the cookie that stores the CSRF token.
const csrfCookieName = "headless_csrf"

// csrfHeaderName is the header AJAX clients send the CSRF token in.
const csrfHeaderName = "X-CSRF-Token"

// csrfFormField is the hidden form field name for form submissions.
const csrfFormField = "csrf_token"

// NonceField is the hidden form field carrying an action-scoped nonce.
const NonceField = "_wpnonce"

// nonceLength is the number of hex characters kept from the nonce HMAC.
const nonceLength = 20

// CSRFConfig holds configuration for the CSRF middleware.
type CSRFConfig struct {
	// Skipper returns true for requests that are exempt from validation.
	// Bearer-authenticated GraphQL calls carry no cookie and are skipped
	// this way. The cookie is still issued for skipped requests.
	Skipper func(c echo.Context) bool
}

// CSRF returns middleware that implements the double-submit cookie pattern
// for CSRF protection on all state-changing requests (POST, PUT, PATCH, DELETE).
//
// How it works:
//  1. On every request, if no CSRF cookie exists, generate one and set it.
//  2. On mutating requests, compare the cookie value with either the
//     X-CSRF-Token header or the csrf_token form field.
//  3. If they don't match, reject with 403 Forbidden.
//
// The cookie value is also the per-browser input to CreateNonce, so action
// nonces rendered into a form are only valid for the browser that loaded it.
func CSRF(cfg CSRFConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			cookie, err := req.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				token, genErr := generateCSRFToken()
				if genErr != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}

				c.SetCookie(&http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // Readable by JS so AJAX callers can echo it.
					Secure:   c.Scheme() == "https",
					SameSite: http.SameSiteLaxMode,
				})

				c.Set("csrf_token", token)
				cookie = nil
			} else {
				c.Set("csrf_token", cookie.Value)
			}

			if isSafeMethod(req.Method) {
				return next(c)
			}
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			// A freshly issued cookie can never match a submitted token.
			if cookie == nil {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			submittedToken := req.Header.Get(csrfHeaderName)
			if submittedToken == "" {
				submittedToken = req.FormValue(csrfFormField)
			}

			if submittedToken == "" || subtle.ConstantTimeCompare([]byte(submittedToken), []byte(cookie.Value)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken generates a cryptographically random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken retrieves the CSRF token from the Echo context.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get("csrf_token").(string); ok {
		return token
	}
	return ""
}

// CreateNonce returns the nonce for the named action, bound to this
// browser's CSRF cookie. Render it into forms under NonceField.
func CreateNonce(c echo.Context, secret, action string) string {
	return computeNonce(secret, action, GetCSRFToken(c))
}

// VerifyNonce reports whether the request's NonceField value is the nonce
// for the named action.
func VerifyNonce(c echo.Context, secret, action string) bool {
	submitted := c.FormValue(NonceField)
	token := GetCSRFToken(c)
	if submitted == "" || token == "" {
		return false
	}
	expected := computeNonce(secret, action, token)
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}

func computeNonce(secret, action, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(action))
	mac.Write([]byte{0})
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))[:nonceLength]
}
