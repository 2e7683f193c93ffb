package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) GetBytes(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value.([]byte)
	return nil
}

func (m *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func TestGetOrFetchCachesBody(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemBackend(), time.Minute, m)

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte(`{"ok":true}`), nil
	}

	body, hit, err := c.GetOrFetch(ctx, "/r/IAmA/hot.json?limit=10", fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	body, hit, err = c.GetOrFetch(ctx, "/r/IAmA/hot.json?limit=10", fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCacheHits))
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c := New(newMemBackend(), time.Minute, nil)
	boom := errors.New("status 503")

	_, _, err := c.GetOrFetch(ctx, "req", func() ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	body, hit, err := c.GetOrFetch(ctx, "req", func() ([]byte, error) { return []byte("x"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "x", string(body))
}

func TestRedisOutageFallsThroughToFetch(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	backend.err = errors.New("connection refused")
	c := New(backend, time.Minute, nil)

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		body, hit, err := c.GetOrFetch(ctx, "req", func() ([]byte, error) {
			calls.Add(1)
			return []byte("fresh"), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "fresh", string(body))
	}
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, "open", c.breaker.State().String())
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))

	require.NoError(t, c.Invalidate(ctx))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}
