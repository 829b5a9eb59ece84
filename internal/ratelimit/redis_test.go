package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/pantrychef/backend/internal/testhelpers"
)

func TestRedisStore_RollingWindow(t *testing.T) {
	client := testhelpers.SetupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	key := Key("auth:login", "10.0.0.1")

	for i := 0; i < 5; i++ {
		d, err := store.Admit(ctx, key, 5, time.Minute, epoch.Add(time.Duration(i)*10*time.Second))
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 4-i, d.Remaining)
	}

	d, err := store.Admit(ctx, key, 5, time.Minute, epoch.Add(50*time.Second))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 10*time.Second, d.RetryAfter)

	d, err = store.Peek(ctx, key, 5, time.Minute, epoch.Add(50*time.Second))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = store.Admit(ctx, key, 5, time.Minute, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStore_ConcurrentLastSlot(t *testing.T) {
	client := testhelpers.SetupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	key := Key(ScopeRecipeGenerate, "user-1")
	now := time.Now()

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := store.Admit(ctx, key, 1, time.Hour, now)
			if err == nil && d.Allowed {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
}
