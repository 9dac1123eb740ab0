package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/plugins/users"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// userSessionsPrefix is the Redis key prefix for the per-user set of
// session tokens, used to end every session of a user at once.
const userSessionsPrefix = "user_sessions:"

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// SessionService defines the contract for console sessions.
type SessionService interface {
	Create(ctx context.Context, user *users.User) (token string, err error)
	Validate(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
	DestroyAll(ctx context.Context, userID int64) error
}

// sessionService implements SessionService on Redis.
type sessionService struct {
	redis      *redis.Client
	sessionTTL time.Duration
}

// NewSessionService creates a session service with the given Redis client.
func NewSessionService(rdb *redis.Client, sessionTTL time.Duration) SessionService {
	return &sessionService{redis: rdb, sessionTTL: sessionTTL}
}

// Create stores a new session for user and returns its token.
func (s *sessionService) Create(ctx context.Context, user *users.User) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating session token: %w", err))
	}

	data, err := json.Marshal(Session{
		UserID:    user.ID,
		Login:     user.Login,
		Email:     user.Email,
		Name:      user.Name(),
		Roles:     user.Roles,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("marshaling session: %w", err))
	}

	indexKey := userSessionsKey(user.ID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+token, data, s.sessionTTL)
		pipe.SAdd(ctx, indexKey, token)
		pipe.Expire(ctx, indexKey, s.sessionTTL)
		return nil
	})
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("storing session in Redis: %w", err))
	}
	return token, nil
}

// Validate looks up a session token and returns the session data if it
// exists and hasn't expired.
func (s *sessionService) Validate(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}
	return &session, nil
}

// Destroy removes a single session.
func (s *sessionService) Destroy(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session from Redis: %w", err))
	}
	return nil
}

// DestroyAll removes every session belonging to userID.
func (s *sessionService) DestroyAll(ctx context.Context, userID int64) error {
	indexKey := userSessionsKey(userID)
	tokens, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("listing sessions for user %d: %w", userID, err))
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKeyPrefix+t)
	}
	keys = append(keys, indexKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting sessions for user %d: %w", userID, err))
	}
	return nil
}

func userSessionsKey(userID int64) string {
	return userSessionsPrefix + strconv.FormatInt(userID, 10)
}

// generateSessionToken creates a cryptographically random hex-encoded token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
