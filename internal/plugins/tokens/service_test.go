package tokens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/config"
	"github.com/keyxmakerx/headless/internal/options"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/plugins/users"
)

// --- Mocks ---

// memOptions implements options.Store in memory.
type memOptions struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemOptions() *memOptions {
	return &memOptions{values: make(map[string]string)}
}

func (m *memOptions) Get(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	if !ok {
		return "", apperror.NewNotFound("option not found")
	}
	return v, nil
}

func (m *memOptions) Set(ctx context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

func (m *memOptions) Add(ctx context.Context, name, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[name]; ok {
		return false, nil
	}
	m.values[name] = value
	return true, nil
}

func (m *memOptions) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

// mockUserService implements users.UserService for testing.
type mockUserService struct {
	users         map[int64]*users.User
	listByRolesFn func(ctx context.Context, roles ...string) ([]users.User, error)
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*users.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserService) CheckCredentials(ctx context.Context, username, password string) (*users.User, error) {
	return nil, apperror.NewUnauthorized("Invalid username or password.")
}

func (m *mockUserService) ListByRoles(ctx context.Context, roles ...string) ([]users.User, error) {
	if m.listByRolesFn != nil {
		return m.listByRolesFn(ctx, roles...)
	}
	return nil, nil
}

func (m *mockUserService) RecordLogin(ctx context.Context, id int64) {}

func (m *mockUserService) EnsureBootstrapAdmin(ctx context.Context, login, password, email string) error {
	return nil
}

// --- Test Helpers ---

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

var testAdmin = &users.User{
	ID:          1,
	Login:       "admin",
	Email:       "admin@example.com",
	DisplayName: "Site Admin",
	Roles:       []string{users.RoleAdministrator},
}

var testTokensConfig = config.TokensConfig{
	DefaultExpiry: 7 * 24 * time.Hour,
	Issuer:        "https://cms.example.com",
}

type tokenFixture struct {
	svc   *tokenService
	opts  *memOptions
	users *mockUserService
	clock time.Time
}

func newTokenFixture() *tokenFixture {
	f := &tokenFixture{
		opts:  newMemOptions(),
		users: &mockUserService{users: map[int64]*users.User{1: testAdmin}},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewTokenService(f.opts, f.users, testTokensConfig).(*tokenService)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func decodeSegment(t *testing.T, seg string, dest any) {
	t.Helper()
	data, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		t.Fatalf("segment is not base64url: %v", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("segment is not JSON: %v", err)
	}
}

// --- Generate ---

func TestGenerate_WireFormat(t *testing.T) {
	f := newTokenFixture()

	got, err := f.svc.Generate(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := strings.Split(got.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(parts))
	}

	var header map[string]string
	decodeSegment(t, parts[0], &header)
	if header["alg"] != "HS256" || header["typ"] != "JWT" {
		t.Errorf("unexpected header %v", header)
	}

	var payload map[string]any
	decodeSegment(t, parts[1], &payload)
	if payload["iss"] != "https://cms.example.com" {
		t.Errorf("unexpected iss %v", payload["iss"])
	}
	if payload["sub"] != float64(1) {
		t.Errorf("expected numeric sub 1, got %v", payload["sub"])
	}
	if payload["iat"] != float64(f.clock.Unix()) {
		t.Errorf("unexpected iat %v", payload["iat"])
	}
	if payload["exp"] != float64(f.clock.Add(7*24*time.Hour).Unix()) {
		t.Errorf("expected default 7 day expiry, got %v", payload["exp"])
	}
	user := payload["data"].(map[string]any)["user"].(map[string]any)
	if user["login"] != "admin" || user["display_name"] != "Site Admin" {
		t.Errorf("unexpected user snapshot %v", user)
	}

	if got.ExpiresIn != 7*86400 || !got.IssuedAt.Equal(f.clock) {
		t.Errorf("unexpected metadata %+v", got)
	}
}

func TestGenerate_ExplicitExpiry(t *testing.T) {
	f := newTokenFixture()

	got, err := f.svc.Generate(context.Background(), 1, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ExpiresIn != 30*86400 {
		t.Errorf("expected 30 days, got %d seconds", got.ExpiresIn)
	}
}

func TestGenerate_UnknownUser(t *testing.T) {
	f := newTokenFixture()

	got, err := f.svc.Generate(context.Background(), 99, 0)
	if !errors.Is(err, ErrUserNotFound) || got != nil {
		t.Errorf("expected ErrUserNotFound, got %v, %v", got, err)
	}
}

func TestGenerate_CreatesSecretOnce(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()

	if _, err := f.svc.Generate(ctx, 1, 0); err != nil {
		t.Fatal(err)
	}
	first := f.opts.values[options.TokenSecret]
	if len(first) != 2+64 {
		t.Errorf("expected a quoted 64-char hex secret, got %s", first)
	}

	if _, err := f.svc.Generate(ctx, 1, 0); err != nil {
		t.Fatal(err)
	}
	if f.opts.values[options.TokenSecret] != first {
		t.Error("secret must not change between generations")
	}
}

// --- Validate ---

func TestValidate_RoundTrip(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	got, _ := f.svc.Generate(ctx, 1, 0)

	claims, err := f.svc.Validate(ctx, got.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != 1 || claims.Data.User.Email != "admin@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestValidate_FailsClosed(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	good, _ := f.svc.Generate(ctx, 1, 0)
	parts := strings.Split(good.Token, ".")

	// Re-signed with a different key.
	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Subject: 1, IssuedAt: f.clock.Unix(), ExpiresAt: f.clock.Add(time.Hour).Unix(),
	}).SignedString([]byte("not-the-secret"))

	// Correct key, wrong algorithm.
	secret := []byte(strings.Trim(f.opts.values[options.TokenSecret], `"`))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		Subject: 1, IssuedAt: f.clock.Unix(), ExpiresAt: f.clock.Add(time.Hour).Unix(),
	}).SignedString(secret)

	// Correct key, no exp.
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 1}).SignedString(secret)

	tests := map[string]string{
		"empty":            "",
		"two segments":     parts[0] + "." + parts[1],
		"four segments":    good.Token + ".x",
		"tampered payload": parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":2}`)) + "." + parts[2],
		"bad signature":    parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2])),
		"foreign key":      foreign,
		"wrong algorithm":  hs512,
		"missing exp":      noExp,
		"garbage payload":  parts[0] + ".!!!." + parts[2],
	}
	for name, token := range tests {
		if _, err := f.svc.Validate(ctx, token); !IsInvalid(err) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestValidate_Expiry(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	got, _ := f.svc.Generate(ctx, 1, time.Hour)

	f.clock = f.clock.Add(59 * time.Minute)
	if _, err := f.svc.Validate(ctx, got.Token); err != nil {
		t.Errorf("expected token valid before exp: %v", err)
	}

	f.clock = got.ExpiresAt
	if _, err := f.svc.Validate(ctx, got.Token); err != nil {
		t.Errorf("expected token valid at exp: %v", err)
	}

	f.clock = got.ExpiresAt.Add(999 * time.Millisecond)
	if _, err := f.svc.Validate(ctx, got.Token); err != nil {
		t.Errorf("expected token valid within the exp second: %v", err)
	}

	f.clock = got.ExpiresAt.Add(time.Second)
	if _, err := f.svc.Validate(ctx, got.Token); !IsInvalid(err) {
		t.Errorf("expected token invalid once exp is in the past, got %v", err)
	}
}

func TestRegenerateSecret_InvalidatesTokens(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	got, _ := f.svc.Generate(ctx, 1, 0)

	if err := f.svc.RegenerateSecret(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Validate(ctx, got.Token); !IsInvalid(err) {
		t.Errorf("expected old token rejected, got %v", err)
	}

	fresh, _ := f.svc.Generate(ctx, 1, 0)
	if _, err := f.svc.Validate(ctx, fresh.Token); err != nil {
		t.Errorf("expected new token valid: %v", err)
	}
}

// --- Authenticate ---

func TestAuthenticate_ResolvesLiveUser(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	got, _ := f.svc.Generate(ctx, 1, 0)

	p, err := f.svc.Authenticate(ctx, got.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != 1 || p.Method != auth.MethodBearer || !p.IsAdministrator() {
		t.Errorf("unexpected principal %+v", p)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	got, _ := f.svc.Generate(ctx, 1, 0)

	delete(f.users.users, 1)
	if _, err := f.svc.Authenticate(ctx, got.Token); !IsInvalid(err) {
		t.Errorf("expected token for a deleted user to be invalid, got %v", err)
	}
}

// --- Settings ---

func TestSettings_Defaults(t *testing.T) {
	f := newTokenFixture()

	s, err := f.svc.Settings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TokenExpiry != 7*86400 || s.Issuer != "https://cms.example.com" {
		t.Errorf("unexpected defaults %+v", s)
	}
}

func TestUpdateSettings(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()

	if _, err := f.svc.UpdateSettings(ctx, 30, "<b>My API</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := f.svc.Settings(ctx)
	if s.TokenExpiry != 30*86400 || s.Issuer != "My API" {
		t.Errorf("unexpected settings %+v", s)
	}

	got, _ := f.svc.Generate(ctx, 1, 0)
	claims, _ := f.svc.Validate(ctx, got.Token)
	if claims.Issuer != "My API" || got.ExpiresIn != 30*86400 {
		t.Errorf("expected generation to use saved settings, got iss=%q exp=%d", claims.Issuer, got.ExpiresIn)
	}
}

func TestUpdateSettings_RejectsZeroDays(t *testing.T) {
	f := newTokenFixture()

	_, err := f.svc.UpdateSettings(context.Background(), 0, "")
	assertAppError(t, err, 422)
}
