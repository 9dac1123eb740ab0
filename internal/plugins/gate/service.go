package gate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/config"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/plugins/users"
	"github.com/keyxmakerx/headless/internal/transient"
)

// Transients is the subset of transient.Store the gate uses.
type Transients interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Update(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Count(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// failedLoginWindow is how long the per-IP failed-login counter lives.
const failedLoginWindow = time.Hour

// GateService defines the login gate's state transitions.
type GateService interface {
	// IssueLink applies the per-IP issuance limit and mints a new hash.
	IssueLink(ctx context.Context, ip string) (hash string, err error)

	// Consume checks the hash for ip and spends one attempt. It returns the
	// attempts left after this one.
	Consume(ctx context.Context, hash, ip string) (remaining int, err error)

	// RecordAttempt logs a form submission against hash.
	RecordAttempt(ip, hash string)

	// Login verifies credentials presented with a live hash. On success
	// every existing session of the user is ended, a new one is created,
	// and the hash is invalidated.
	Login(ctx context.Context, hash, ip, username, password string) (*users.User, string, error)
}

// gateService implements GateService.
type gateService struct {
	cfg        config.GateConfig
	secret     []byte
	transients Transients
	users      users.UserService
	sessions   auth.SessionService
	access     AccessLog
}

// NewGateService creates the gate service.
func NewGateService(cfg config.GateConfig, secret string, tr Transients, us users.UserService, ss auth.SessionService, al AccessLog) GateService {
	return &gateService{
		cfg:        cfg,
		secret:     []byte(secret),
		transients: tr,
		users:      us,
		sessions:   ss,
		access:     al,
	}
}

// IssueLink mints a login hash for ip.
func (s *gateService) IssueLink(ctx context.Context, ip string) (string, error) {
	key := issuanceKey(ip)
	count, err := s.transients.Count(ctx, key)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	if count >= int64(s.cfg.RateLimit) {
		s.access.Record(ip, EventRateLimitExceeded, "")
		slog.Warn("login link rate limit exceeded", slog.String("ip", ip))
		return "", apperror.NewTooManyRequests("Too many login attempts. Please try again later.")
	}
	if _, err := s.transients.Increment(ctx, key, s.cfg.RateWindow); err != nil {
		return "", apperror.NewInternal(err)
	}

	hash := s.mintHash(ip)
	record := LinkRecord{Attempts: s.cfg.Attempts, IP: ip}
	if err := s.transients.Set(ctx, linkKey(hash), record, s.cfg.LinkTTL); err != nil {
		return "", apperror.NewInternal(err)
	}

	s.access.Record(ip, EventHashGenerated, hash)
	return hash, nil
}

// mintHash derives an unguessable hash from a random UUID, the current time
// and the requester's IP.
func (s *gateService) mintHash(ip string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(uuid.NewString()))
	mac.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))[:hashLength]
}

func errInvalidLink() error {
	return apperror.NewForbidden("Invalid or expired login link.")
}

// Consume validates hash for ip and decrements its attempt counter without
// extending the link's lifetime.
func (s *gateService) Consume(ctx context.Context, hash, ip string) (int, error) {
	var record LinkRecord
	found, err := s.transients.Get(ctx, linkKey(hash), &record)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	if !found || record.IP != ip {
		s.access.Record(ip, EventInvalidHash, hash)
		return 0, errInvalidLink()
	}

	if record.Attempts <= 0 {
		if err := s.transients.Delete(ctx, linkKey(hash)); err != nil {
			return 0, apperror.NewInternal(err)
		}
		s.access.Record(ip, EventAttemptsExceeded, hash)
		return 0, apperror.NewForbidden("Login attempts exceeded.")
	}

	record.Attempts--
	err = s.transients.Update(ctx, linkKey(hash), record)
	if errors.Is(err, transient.ErrNotFound) {
		s.access.Record(ip, EventInvalidHash, hash)
		return 0, errInvalidLink()
	}
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	return record.Attempts, nil
}

// RecordAttempt logs a credential submission.
func (s *gateService) RecordAttempt(ip, hash string) {
	s.access.Record(ip, EventLoginAttempt, hash)
}

// Login checks credentials and starts a fresh session.
func (s *gateService) Login(ctx context.Context, hash, ip, username, password string) (*users.User, string, error) {
	user, err := s.users.CheckCredentials(ctx, username, password)
	if err != nil {
		if apperror.SafeCode(err) != http.StatusUnauthorized {
			return nil, "", err
		}
		if _, incErr := s.transients.Increment(ctx, failedLoginKey(ip), failedLoginWindow); incErr != nil {
			slog.Warn("failed to count failed login", slog.Any("error", incErr))
		}
		s.access.Record(ip, EventLoginFailed, hash)
		return nil, "", err
	}

	if err := s.sessions.DestroyAll(ctx, user.ID); err != nil {
		return nil, "", err
	}
	token, err := s.sessions.Create(ctx, user)
	if err != nil {
		return nil, "", err
	}

	if err := s.transients.Delete(ctx, linkKey(hash)); err != nil {
		slog.Error("failed to delete used login hash", slog.Any("error", err))
	}
	s.users.RecordLogin(ctx, user.ID)
	s.access.Record(ip, EventLoginSuccess, hash)

	slog.Info("console login",
		slog.Int64("user_id", user.ID),
		slog.String("login", user.Login),
		slog.String("ip", ip),
	)
	return user, token, nil
}
