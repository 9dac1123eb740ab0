package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/plugins/users"
)

// mockSessionService implements SessionService for testing.
type mockSessionService struct {
	createFn     func(ctx context.Context, user *users.User) (string, error)
	validateFn   func(ctx context.Context, token string) (*Session, error)
	destroyFn    func(ctx context.Context, token string) error
	destroyAllFn func(ctx context.Context, userID int64) error
}

func (m *mockSessionService) Create(ctx context.Context, user *users.User) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return "token", nil
}

func (m *mockSessionService) Validate(ctx context.Context, token string) (*Session, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, token)
	}
	return nil, apperror.NewUnauthorized("session expired or invalid")
}

func (m *mockSessionService) Destroy(ctx context.Context, token string) error {
	if m.destroyFn != nil {
		return m.destroyFn(ctx, token)
	}
	return nil
}

func (m *mockSessionService) DestroyAll(ctx context.Context, userID int64) error {
	if m.destroyAllFn != nil {
		return m.destroyAllFn(ctx, userID)
	}
	return nil
}

func withSessionCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	return req
}

func TestLoadSession_ValidCookie(t *testing.T) {
	svc := &mockSessionService{
		validateFn: func(ctx context.Context, token string) (*Session, error) {
			if token != "good" {
				t.Errorf("unexpected token %q", token)
			}
			return &Session{UserID: 7, Login: "admin", Roles: []string{users.RoleAdministrator}}, nil
		},
	}

	e := echo.New()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/wp-admin", nil), "good")
	c := e.NewContext(req, httptest.NewRecorder())

	var seen *Principal
	err := LoadSession(svc)(func(c echo.Context) error {
		seen = GetPrincipal(c)
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.UserID != 7 || seen.Method != MethodSession {
		t.Fatalf("expected session principal, got %+v", seen)
	}
	if !seen.IsAdministrator() {
		t.Error("expected administrator principal")
	}
}

func TestLoadSession_StaleCookieCleared(t *testing.T) {
	e := echo.New()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/", nil), "stale")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := LoadSession(&mockSessionService{})(func(c echo.Context) error {
		called = true
		if IsAuthenticated(c) {
			t.Error("expected unauthenticated request")
		}
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("expected request to continue, err=%v", err)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("expected cookie to be cleared, got %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestLoadSession_NoCookie(t *testing.T) {
	svc := &mockSessionService{
		validateFn: func(ctx context.Context, token string) (*Session, error) {
			t.Error("Validate must not be called without a cookie")
			return nil, nil
		},
	}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := LoadSession(svc)(func(c echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireAdministrator(t *testing.T) {
	tests := []struct {
		name       string
		principal  *Principal
		wantStatus int
		wantErr    int
	}{
		{"anonymous redirected", nil, http.StatusSeeOther, 0},
		{"editor forbidden", &Principal{UserID: 2, Roles: []string{users.RoleEditor}}, 0, 403},
		{"administrator allowed", &Principal{UserID: 1, Roles: []string{users.RoleAdministrator}}, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/wp-admin", nil), rec)
			if tt.principal != nil {
				SetPrincipal(c, tt.principal)
			}

			err := RequireAdministrator("/console")(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)

			if tt.wantErr != 0 {
				assertAppError(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusSeeOther && rec.Header().Get("Location") != "/console" {
				t.Errorf("expected redirect to /console, got %q", rec.Header().Get("Location"))
			}
		})
	}
}

func TestLogoutInterceptor_DestroysAllSessions(t *testing.T) {
	var destroyed int64
	svc := &mockSessionService{
		destroyAllFn: func(ctx context.Context, userID int64) error {
			destroyed = userID
			return nil
		},
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/anything?action=logout", nil), rec)
	c.Set(contextKeySession, &Session{UserID: 7})

	err := LogoutInterceptor(svc, "/")(func(c echo.Context) error {
		t.Error("next must not run on logout")
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if destroyed != 7 {
		t.Errorf("expected sessions of user 7 destroyed, got %d", destroyed)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("expected 302 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLogoutInterceptor_PassThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/wp-admin?action=edit", nil), httptest.NewRecorder())

	called := false
	_ = LogoutInterceptor(&mockSessionService{}, "/")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if !called {
		t.Error("expected non-logout request to pass through")
	}
}
