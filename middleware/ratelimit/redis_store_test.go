package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newMiniRedisStore(t)
	reset := time.Now().Add(time.Minute)

	_, _, exists, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := store.Increment(ctx, "k", reset)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ttl := mr.TTL("barae:k")
	assert.Positive(t, ttl, "the window is opened together with the first hit")
	assert.LessOrEqual(t, ttl, time.Minute)

	count, err = store.Increment(ctx, "k", reset.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.LessOrEqual(t, mr.TTL("barae:k"), time.Minute, "later hits keep the open window")

	value, err := mr.Get("barae:k")
	require.NoError(t, err)
	assert.Equal(t, "2", value)

	count, resetTime, exists, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 2, count)
	assert.WithinDuration(t, reset, resetTime, 2*time.Second)

	t.Run("window expiry starts a new count", func(t *testing.T) {
		mr.FastForward(61 * time.Second)

		_, _, exists, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)

		count, err := store.Increment(ctx, "k", time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Positive(t, mr.TTL("barae:k"))
	})

	t.Run("reset time in the past still expires", func(t *testing.T) {
		count, err := store.Increment(ctx, "stale", time.Now().Add(-time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Positive(t, mr.TTL("barae:stale"))
	})
}

func TestRedisStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store, mr := newMiniRedisStore(t)
	reset := time.Now().Add(time.Minute)

	const hits = 25
	var wg sync.WaitGroup
	for range hits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "burst", reset)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _, exists, err := store.Get(ctx, "burst")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, hits, count)
	assert.Positive(t, mr.TTL("barae:burst"))
}

func TestRedisStore_Middleware(t *testing.T) {
	store, mr := newMiniRedisStore(t)

	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, Middleware(&Config{Store: store, Rate: 2, Period: time.Minute}))

	for range 2 {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/").Code)
	}
	rec := serve(e, http.MethodGet, "/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/").Code)
}
