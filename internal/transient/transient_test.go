package transient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type record struct {
	Attempts int    `json:"attempts"`
	IP       string `json:"ip"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestStore_SetGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "login_hash_abc", record{Attempts: 4, IP: "1.2.3.4"}, 30*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL(keyPrefix + "login_hash_abc"); ttl != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %s", ttl)
	}

	var got record
	found, err := s.Get(ctx, "login_hash_abc", &got)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.Attempts != 4 || got.IP != "1.2.3.4" {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	var got record
	found, err := s.Get(context.Background(), "nope", &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected missing record")
	}
}

func TestStore_GetExpired(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "short", record{Attempts: 1}, time.Minute)
	mr.FastForward(2 * time.Minute)

	var got record
	if found, _ := s.Get(ctx, "short", &got); found {
		t.Error("expected record to have expired")
	}
}

func TestStore_UpdateKeepsTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "login_hash_abc", record{Attempts: 4}, 30*time.Minute)
	mr.FastForward(10 * time.Minute)

	if err := s.Update(ctx, "login_hash_abc", record{Attempts: 3}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ttl := mr.TTL(keyPrefix + "login_hash_abc"); ttl != 20*time.Minute {
		t.Errorf("expected remaining 20m TTL, got %s", ttl)
	}

	var got record
	_, _ = s.Get(ctx, "login_hash_abc", &got)
	if got.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", got.Attempts)
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	s, mr := newTestStore(t)

	err := s.Update(context.Background(), "gone", record{Attempts: 3})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists(keyPrefix + "gone") {
		t.Error("Update must not recreate an expired record")
	}
}

func TestStore_Delete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "k", record{}, time.Minute)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists(keyPrefix + "k") {
		t.Error("expected key to be removed")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestStore_IncrementRefreshesWindow(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	n, err := s.Increment(ctx, "ip_attempts_x", time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("first Increment: n=%d err=%v", n, err)
	}
	mr.FastForward(50 * time.Minute)

	n, _ = s.Increment(ctx, "ip_attempts_x", time.Hour)
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	if ttl := mr.TTL(keyPrefix + "ip_attempts_x"); ttl != time.Hour {
		t.Errorf("expected window refreshed to 1h, got %s", ttl)
	}

	count, err := s.Count(ctx, "ip_attempts_x")
	if err != nil || count != 2 {
		t.Errorf("Count: got %d err=%v", count, err)
	}
}

func TestStore_CountMissing(t *testing.T) {
	s, _ := newTestStore(t)
	n, err := s.Count(context.Background(), "none")
	if err != nil || n != 0 {
		t.Errorf("expected 0, nil; got %d, %v", n, err)
	}
}
