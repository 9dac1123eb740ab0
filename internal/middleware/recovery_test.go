package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/apperror"
)

func TestRecovery_PanicBecomesInternalError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/console", nil), httptest.NewRecorder())

	err := Recovery()(func(echo.Context) error { panic("boom") })(c)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T (%v)", err, err)
	}
	if appErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", appErr.Code)
	}
	if appErr.Message == "boom" {
		t.Error("panic value must not reach the client message")
	}
}

func TestRecovery_PassesThroughErrors(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	want := apperror.NewForbidden("Security check failed")

	if err := Recovery()(func(echo.Context) error { return want })(c); err != want {
		t.Errorf("expected handler error to pass through, got %v", err)
	}
}
