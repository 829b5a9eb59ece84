package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/pantrychef/backend/internal/clock"
	"github.com/pageza/pantrychef/backend/internal/metrics"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestLimiter(opts ...Option) (*Limiter, *MemoryStore, *clock.Mock) {
	store := NewMemoryStore()
	mock := clock.NewMock(epoch)
	opts = append([]Option{WithClock(mock)}, opts...)
	return NewLimiter(store, opts...), store, mock
}

func TestLimiter_RollingWindow(t *testing.T) {
	limiter, _, mock := newTestLimiter()
	ctx := context.Background()

	// Five admissions spread over the first 40 seconds.
	for i := 0; i < 5; i++ {
		d, err := limiter.Admit(ctx, "auth:login", "10.0.0.1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "admission %d", i+1)
		assert.Equal(t, 4-i, d.Remaining)
		mock.Advance(10 * time.Second)
	}

	// t=50s: sixth request inside the window is denied.
	d, err := limiter.Admit(ctx, "auth:login", "10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 10*time.Second, d.RetryAfter)

	// t=59.999s: still inside the window of the oldest admission.
	mock.Set(epoch.Add(time.Minute - time.Millisecond))
	d, err = limiter.Admit(ctx, "auth:login", "10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// t=60s: the oldest admission has fully elapsed.
	mock.Set(epoch.Add(time.Minute))
	d, err = limiter.Admit(ctx, "auth:login", "10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Only one slot freed up.
	d, err = limiter.Admit(ctx, "auth:login", "10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestLimiter_DeniedRequestsDoNotConsume(t *testing.T) {
	limiter, _, mock := newTestLimiter()
	ctx := context.Background()
	p := RecipeGenerationPolicy()

	d, _ := limiter.AdmitPolicy(ctx, p, "user-1")
	require.True(t, d.Allowed)

	for i := 0; i < 10; i++ {
		mock.Advance(5 * time.Minute)
		d, _ = limiter.AdmitPolicy(ctx, p, "user-1")
		assert.False(t, d.Allowed)
	}

	// 50 minutes in: the first admission expires at 60 minutes regardless of denials.
	mock.Set(epoch.Add(time.Hour))
	d, _ = limiter.AdmitPolicy(ctx, p, "user-1")
	assert.True(t, d.Allowed)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	ctx := context.Background()
	p := RecipeGenerationPolicy()

	d, _ := limiter.AdmitPolicy(ctx, p, "user-1")
	assert.True(t, d.Allowed)
	d, _ = limiter.AdmitPolicy(ctx, p, "user-2")
	assert.True(t, d.Allowed)
	d, _ = limiter.Admit(ctx, "auth:login", "user-1", 1, time.Hour)
	assert.True(t, d.Allowed)
}

func TestLimiter_BypassNeverConsumes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsWithRegistry(reg)
	limiter, store, _ := newTestLimiter(WithBypass(true), WithMetrics(m))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		d, err := limiter.AdmitPolicy(ctx, RecipeGenerationPolicy(), "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, float64(20), testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues(ScopeRecipeGenerate, "bypassed")))

	// The same store used without bypass still has full quota.
	strict := NewLimiter(store, WithClock(clock.NewMock(epoch)))
	d, _ := strict.AdmitPolicy(ctx, RecipeGenerationPolicy(), "user-1")
	assert.True(t, d.Allowed)
}

func TestLimiter_ConcurrentLastSlot(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	ctx := context.Background()

	// Leave exactly one slot.
	for i := 0; i < 2; i++ {
		d, _ := limiter.Admit(ctx, "auth:login", "10.0.0.9", 3, time.Minute)
		require.True(t, d.Allowed)
	}

	var admitted int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := limiter.Admit(ctx, "auth:login", "10.0.0.9", 3, time.Minute)
			if err == nil && d.Allowed {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
}

func TestLimiter_Peek(t *testing.T) {
	limiter, _, mock := newTestLimiter()
	ctx := context.Background()
	p := RecipeGenerationPolicy()

	d, err := limiter.Peek(ctx, p, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	_, _ = limiter.AdmitPolicy(ctx, p, "user-1")
	mock.Advance(15 * time.Minute)

	for i := 0; i < 3; i++ {
		d, err = limiter.Peek(ctx, p, "user-1")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 45*time.Minute, d.RetryAfter)
	}
}

func TestLimiter_InvalidPolicy(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	_, err := limiter.Admit(context.Background(), "x", "id", 0, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	_, err = limiter.Peek(context.Background(), Policy{Scope: "x", Limit: 1}, "id")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

type failingStore struct{}

func (failingStore) Admit(context.Context, string, int, time.Duration, time.Time) (Decision, error) {
	return Decision{}, errors.New("connection refused")
}

func (failingStore) Peek(context.Context, string, int, time.Duration, time.Time) (Decision, error) {
	return Decision{}, errors.New("connection refused")
}

func TestLimiter_StoreFailureFailsOpen(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsWithRegistry(reg)
	limiter := NewLimiter(failingStore{}, WithMetrics(m))

	d, err := limiter.AdmitPolicy(context.Background(), RecipeGenerationPolicy(), "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitErrors.WithLabelValues(ScopeRecipeGenerate)))
}

func TestLimiter_CanceledContextIsNotAStoreFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsWithRegistry(reg)
	limiter, store, _ := newTestLimiter(WithMetrics(m))
	policy := RecipeGenerationPolicy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := limiter.AdmitPolicy(ctx, policy, "user-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, d.Allowed)

	_, err = limiter.Peek(ctx, policy, "user-1")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.RateLimitErrors.WithLabelValues(ScopeRecipeGenerate)))
	assert.Equal(t, 0, store.Len())

	// The slot is still available to a live request.
	d, err = limiter.AdmitPolicy(context.Background(), policy, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryStore_SweepsExpiredKeys(t *testing.T) {
	store := NewMemoryStore()
	store.sweepEvery = 4
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := store.Admit(ctx, key, 1, time.Minute, epoch)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())

	// Fourth admission two minutes later triggers the inline sweep.
	_, err := store.Admit(ctx, "d", 1, time.Minute, epoch.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Admit(ctx, "a", 1, time.Minute, epoch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKey(t *testing.T) {
	k := Key("auth:login", "192.168.1.10")
	assert.Equal(t, k, Key("auth:login", "192.168.1.10"))
	assert.NotEqual(t, k, Key("auth:login", "192.168.1.11"))
	assert.NotContains(t, k, "192.168.1.10")
	assert.Contains(t, k, "ratelimit:auth:login:")
	assert.Equal(t, "auth:api", AuthPolicy("api", 10, time.Minute).Scope)
}
