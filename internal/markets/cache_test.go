package markets

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oddspool/oddspool-backend/internal/pricing"
)

type fakeHashStore struct {
	hashes map[string]map[string]string
	ttls   map[string]time.Duration
}

func newFakeHashStore() *fakeHashStore {
	return &fakeHashStore{hashes: map[string]map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeHashStore) HSetWithTTL(_ context.Context, key string, fields map[string]any, ttl time.Duration) error {
	h := map[string]string{}
	for k, v := range fields {
		h[k] = strconv.FormatInt(v.(int64), 10)
	}
	f.hashes[key] = h
	f.ttls[key] = ttl
	return nil
}

func (f *fakeHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if h, ok := f.hashes[key]; ok {
		return h, nil
	}
	return map[string]string{}, nil
}

func (f *fakeHashStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.hashes, k)
	}
	return nil
}

func (f *fakeHashStore) PoolKey(marketID string) string {
	return "op:pool:" + marketID
}

func TestRedisPoolCacheRoundTrip(t *testing.T) {
	store := newFakeHashStore()
	cache := NewRedisPoolCache(store, 0)
	ctx := context.Background()
	id := uuid.New()

	_, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, id, pricing.Pool{Yes: 10, No: 20}))
	require.Equal(t, 5*time.Second, store.ttls["op:pool:"+id.String()])

	pool, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pricing.Pool{Yes: 10, No: 20}, pool)

	require.NoError(t, cache.Invalidate(ctx, id))
	_, ok, err = cache.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisPoolCacheIgnoresCorruptEntries(t *testing.T) {
	store := newFakeHashStore()
	cache := NewRedisPoolCache(store, time.Second)
	id := uuid.New()
	store.hashes["op:pool:"+id.String()] = map[string]string{"yes": "abc", "no": "1"}

	_, ok, err := cache.Get(context.Background(), id)
	require.NoError(t, err)
	require.False(t, ok)
}
