package cache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the same contract against any store.
func exercise(t *testing.T, s IdempotencyStore) {
	ctx := context.Background()
	key := uuid.NewString()

	ok, err := s.Begin(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Begin(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail")

	_, done, err := s.Result(ctx, key)
	require.NoError(t, err)
	assert.False(t, done, "reserved key has no result yet")

	require.NoError(t, s.Complete(ctx, key, []byte(`{"status":"completed"}`), time.Minute))
	res, done, err := s.Result(ctx, key)
	require.NoError(t, err)
	assert.True(t, done)
	assert.JSONEq(t, `{"status":"completed"}`, string(res))

	ok, err = s.Begin(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "completed key cannot be reserved")

	other := uuid.NewString()
	ok, err = s.Begin(ctx, other, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Release(ctx, other))
	ok, err = s.Begin(ctx, other, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be reserved again")
}

func TestInMemoryIdempotencyStore_Contract(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Hour)
	defer s.Close()
	exercise(t, s)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Hour)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	ok, err := s.Begin(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, err = s.Begin(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired reservation is replaced")

	now = now.Add(2 * time.Second)
	s.sweep()
	assert.Equal(t, 0, s.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentBegin(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Hour)
	defer s.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Begin(context.Background(), "same", time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestRedisIdempotencyStore_Contract(t *testing.T) {
	addr := os.Getenv("FRESHCART_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FRESHCART_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisIdempotencyStore(context.Background(), RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}
