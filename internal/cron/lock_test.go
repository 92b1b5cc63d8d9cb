package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oddspool/oddspool-backend/pkg/instance"
)

type memoryRedis struct {
	values map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: make(map[string]string)}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) DeleteIfEquals(_ context.Context, key, expected string) (bool, error) {
	if v, ok := m.values[key]; ok && v == expected {
		delete(m.values, key)
		return true, nil
	}
	return false, nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := newMemoryRedis()
	first, _ := NewRedisLock(store, "lock:cron", time.Minute)
	second, _ := NewRedisLock(store, "lock:cron", time.Minute)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if !strings.HasPrefix(store.values["lock:cron"], instance.GetID()+":") {
		t.Fatalf("expected owner prefixed with instance id, got %q", store.values["lock:cron"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second replica must not acquire a held lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected lock free after release")
	}
}

func TestRedisLockReleaseKeepsForeignOwner(t *testing.T) {
	store := newMemoryRedis()
	lock, _ := NewRedisLock(store, "lock:cron", time.Minute)
	ctx := context.Background()

	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("expected acquire")
	}
	// TTL expired and another replica took over.
	store.values["lock:cron"] = "other-owner"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["lock:cron"] != "other-owner" {
		t.Fatalf("release must not delete a lock held by another owner")
	}
	if lock.token != "" {
		t.Fatalf("token should be cleared after release")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewRedisLock(newMemoryRedis(), "", 0); err == nil {
		t.Fatalf("expected error for empty key")
	}
	lock, err := NewRedisLock(newMemoryRedis(), "k", 0)
	if err != nil || lock.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v %v", lock, err)
	}
}
