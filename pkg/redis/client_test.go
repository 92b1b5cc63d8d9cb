package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddspool/oddspool-backend/pkg/config"
)

func TestHashRoundTripRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.PoolKey("mkt-1")
	if err := client.HSetWithTTL(ctx, key, map[string]any{"yes": int64(10), "no": int64(20)}, 5*time.Second); err != nil {
		t.Fatalf("hset failed: %v", err)
	}
	vals, err := client.HGetAll(ctx, key)
	if err != nil {
		t.Fatalf("hgetall failed: %v", err)
	}
	if vals["yes"] != "10" || vals["no"] != "20" {
		t.Fatalf("unexpected hash values %v", vals)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != 5*time.Second {
		t.Fatalf("expected ttl refresh, got %+v", mock.expireCalls)
	}

	empty, err := client.HGetAll(ctx, client.PoolKey("missing"))
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing hash should be empty, got %v err=%v", empty, err)
	}
}

func TestPublishRecordsChannel(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	if err := client.Publish(context.Background(), "market-events", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if got := mock.published["market-events"]; len(got) != 1 || got[0] != `{"ok":true}` {
		t.Fatalf("unexpected published payloads %v", got)
	}
}

func TestDeleteIfEqualsChecksOwner(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	ctx := context.Background()
	mock.data["op:lock:cron"] = "worker-a"

	removed, err := client.DeleteIfEquals(ctx, "op:lock:cron", "worker-b")
	if err != nil || removed {
		t.Fatalf("foreign owner must not delete: removed=%v err=%v", removed, err)
	}
	removed, err = client.DeleteIfEquals(ctx, "op:lock:cron", "worker-a")
	if err != nil || !removed {
		t.Fatalf("owner should delete: removed=%v err=%v", removed, err)
	}
	if _, ok := mock.data["op:lock:cron"]; ok {
		t.Fatalf("key should be gone")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without raw client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("stakes", "abc"); got != "op:idempotency:stakes:abc" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("market-settlement"); got != "op:lock:market-settlement" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.PoolKey("mkt"); got != "op:pool:mkt" {
		t.Fatalf("unexpected pool key %s", got)
	}
	if got := client.IdempotencyKey("stakes", ""); got != "op:idempotency:stakes" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected missing url/address to fail")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options db=%d pool=%d", opts.DB, opts.PoolSize)
	}
}

type mockCmdable struct {
	data        map[string]string
	hashes      map[string]map[string]string
	published   map[string][]string
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:      make(map[string]string),
		hashes:    make(map[string]map[string]string),
		published: make(map[string][]string),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.hashes, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) HSet(ctx context.Context, key string, values ...any) *redis.IntCmd {
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for _, v := range values {
		if fields, ok := v.(map[string]any); ok {
			for f, val := range fields {
				h[f] = fmt.Sprint(val)
			}
		}
	}
	return redis.NewIntResult(int64(len(h)), nil)
}

func (m *mockCmdable) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	out := make(map[string]string)
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	switch v := message.(type) {
	case []byte:
		m.published[channel] = append(m.published[channel], string(v))
	default:
		m.published[channel] = append(m.published[channel], fmt.Sprint(v))
	}
	return redis.NewIntResult(1, nil)
}

// Eval understands only the compare-and-delete script.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != compareAndDelete || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if v, ok := m.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}
