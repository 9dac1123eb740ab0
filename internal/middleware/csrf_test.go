package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret-key-for-nonces-000000"

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func formRequest(target string, form url.Values, cookie string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
	}
	return req
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError with %d, got %T: %v", want, err, err)
	}
	if he.Code != want {
		t.Errorf("expected status %d, got %d", want, he.Code)
	}
}

func TestCSRF_IssuesCookieOnGet(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/console", nil), rec)

	if err := CSRF(CSRFConfig{})(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), csrfCookieName+"=") {
		t.Error("expected CSRF cookie to be set")
	}
	if len(GetCSRFToken(c)) != csrfTokenLength*2 {
		t.Errorf("expected %d char token in context, got %q", csrfTokenLength*2, GetCSRFToken(c))
	}
}

func TestCSRF_RejectsMismatchedToken(t *testing.T) {
	e := echo.New()
	req := formRequest("/wp-admin/headless-settings", url.Values{csrfFormField: {"wrong"}}, "right")
	c := e.NewContext(req, httptest.NewRecorder())

	err := CSRF(CSRFConfig{})(okHandler)(c)
	assertHTTPStatus(t, err, http.StatusForbidden)
}

func TestCSRF_RejectsPostWithoutCookie(t *testing.T) {
	e := echo.New()
	req := formRequest("/wp-admin/headless-settings", url.Values{csrfFormField: {"anything"}}, "")
	c := e.NewContext(req, httptest.NewRecorder())

	err := CSRF(CSRFConfig{})(okHandler)(c)
	assertHTTPStatus(t, err, http.StatusForbidden)
}

func TestCSRF_AcceptsMatchingFormToken(t *testing.T) {
	e := echo.New()
	req := formRequest("/wp-admin/headless-settings", url.Values{csrfFormField: {"tok"}}, "tok")
	c := e.NewContext(req, httptest.NewRecorder())

	if err := CSRF(CSRFConfig{})(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCSRF_AcceptsHeaderToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/wp-admin/jwt-tokens", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	req.Header.Set(csrfHeaderName, "tok")
	c := e.NewContext(req, httptest.NewRecorder())

	if err := CSRF(CSRFConfig{})(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCSRF_SkipperBypassesValidation(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	mw := CSRF(CSRFConfig{Skipper: func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, "/graphql")
	}})
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNonce_RoundTrip(t *testing.T) {
	e := echo.New()

	get := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	get.Set("csrf_token", "browser-a")
	nonce := CreateNonce(get, testSecret, "headless_settings")
	if len(nonce) != nonceLength {
		t.Fatalf("expected %d char nonce, got %q", nonceLength, nonce)
	}

	post := e.NewContext(formRequest("/", url.Values{NonceField: {nonce}}, ""), httptest.NewRecorder())
	post.Set("csrf_token", "browser-a")
	if !VerifyNonce(post, testSecret, "headless_settings") {
		t.Error("expected nonce to verify for the same action and browser")
	}
}

func TestNonce_ScopedToActionAndBrowser(t *testing.T) {
	e := echo.New()

	get := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	get.Set("csrf_token", "browser-a")
	nonce := CreateNonce(get, testSecret, "console_login")

	otherAction := e.NewContext(formRequest("/", url.Values{NonceField: {nonce}}, ""), httptest.NewRecorder())
	otherAction.Set("csrf_token", "browser-a")
	if VerifyNonce(otherAction, testSecret, "graphql_token_action") {
		t.Error("expected nonce to fail for a different action")
	}

	otherBrowser := e.NewContext(formRequest("/", url.Values{NonceField: {nonce}}, ""), httptest.NewRecorder())
	otherBrowser.Set("csrf_token", "browser-b")
	if VerifyNonce(otherBrowser, testSecret, "console_login") {
		t.Error("expected nonce to fail for a different browser")
	}
}

func TestNonce_MissingField(t *testing.T) {
	e := echo.New()
	c := e.NewContext(formRequest("/", url.Values{}, ""), httptest.NewRecorder())
	c.Set("csrf_token", "browser-a")
	if VerifyNonce(c, testSecret, "console_login") {
		t.Error("expected missing nonce to fail")
	}
}
