package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/plugins/users"
)

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func newTestSessionService(t *testing.T) (*sessionService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &sessionService{redis: rdb, sessionTTL: time.Hour}, mr
}

var testAdmin = &users.User{
	ID:          7,
	Login:       "admin",
	Email:       "admin@example.com",
	DisplayName: "Site Admin",
	Roles:       []string{users.RoleAdministrator},
}

func TestSession_CreateValidate(t *testing.T) {
	svc, mr := newTestSessionService(t)
	ctx := context.Background()

	token, err := svc.Create(ctx, testAdmin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != sessionTokenBytes*2 {
		t.Errorf("expected %d char token, got %d", sessionTokenBytes*2, len(token))
	}
	if ttl := mr.TTL(sessionKeyPrefix + token); ttl != time.Hour {
		t.Errorf("expected 1h session TTL, got %s", ttl)
	}

	s, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.UserID != 7 || s.Name != "Site Admin" || len(s.Roles) != 1 {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestSession_ValidateUnknown(t *testing.T) {
	svc, _ := newTestSessionService(t)
	_, err := svc.Validate(context.Background(), "missing")
	assertAppError(t, err, 401)
}

func TestSession_ValidateExpired(t *testing.T) {
	svc, mr := newTestSessionService(t)
	ctx := context.Background()

	token, _ := svc.Create(ctx, testAdmin)
	mr.FastForward(2 * time.Hour)

	_, err := svc.Validate(ctx, token)
	assertAppError(t, err, 401)
}

func TestSession_Destroy(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()

	token, _ := svc.Create(ctx, testAdmin)
	if err := svc.Destroy(ctx, token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	_, err := svc.Validate(ctx, token)
	assertAppError(t, err, 401)
}

func TestSession_DestroyAll(t *testing.T) {
	svc, mr := newTestSessionService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, testAdmin)
	b, _ := svc.Create(ctx, testAdmin)
	other, _ := svc.Create(ctx, &users.User{ID: 8, Login: "ed"})

	if err := svc.DestroyAll(ctx, testAdmin.ID); err != nil {
		t.Fatalf("DestroyAll: %v", err)
	}
	for _, tok := range []string{a, b} {
		if _, err := svc.Validate(ctx, tok); err == nil {
			t.Errorf("expected session %s to be gone", tok[:8])
		}
	}
	if _, err := svc.Validate(ctx, other); err != nil {
		t.Errorf("other user's session must survive: %v", err)
	}
	if mr.Exists(userSessionsKey(testAdmin.ID)) {
		t.Error("expected per-user index to be removed")
	}
}

func TestSession_DestroyAllWithoutSessions(t *testing.T) {
	svc, _ := newTestSessionService(t)
	if err := svc.DestroyAll(context.Background(), 99); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
