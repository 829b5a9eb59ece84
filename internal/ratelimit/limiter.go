// Package ratelimit provides a rolling-window admission controller shared by
// the authentication guard and the recipe generation cap.
//
// Window state lives in a Store. The in-memory store is process-local and is
// lost on restart: after a restart every key starts with an empty window. The
// Redis store survives application restarts but not a Redis flush.
package ratelimit

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/pageza/pantrychef/backend/internal/clock"
	"github.com/pageza/pantrychef/backend/internal/metrics"
)

// Scopes used by the named policies.
const (
	ScopeRecipeGenerate = "recipe:generate"
	scopeAuthPrefix     = "auth:"
)

// ErrInvalidPolicy is returned when a limit or window is not positive.
var ErrInvalidPolicy = errors.New("rate limit policy requires a positive limit and window")

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	Limit      int
}

// Store holds rolling-window state per key. Admit must check and record as a
// single atomic step per key.
type Store interface {
	// Admit records now for key when fewer than limit timestamps fall inside
	// the trailing window.
	Admit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)

	// Peek reports what Admit would decide without recording anything.
	Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// Policy names a scope with its limit and window.
type Policy struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RecipeGenerationPolicy allows one generation per user per rolling hour.
func RecipeGenerationPolicy() Policy {
	return Policy{Scope: ScopeRecipeGenerate, Limit: 1, Window: time.Hour}
}

// AuthPolicy throttles failed authentication attempts per client IP and route.
func AuthPolicy(route string, limit int, window time.Duration) Policy {
	return Policy{Scope: scopeAuthPrefix + route, Limit: limit, Window: window}
}

// Limiter admits requests against a Store.
type Limiter struct {
	store   Store
	clock   clock.Clock
	bypass  bool
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithBypass enables test mode: every call is admitted without touching the store.
func WithBypass(bypass bool) Option {
	return func(l *Limiter) { l.bypass = bypass }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithMetrics enables decision counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// NewLimiter creates a limiter backed by store.
func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit checks and records one request for (scope, identity). Store failures
// are logged and the request is allowed through. A canceled or expired ctx is
// returned as an error and nothing is recorded.
func (l *Limiter) Admit(ctx context.Context, scope, identity string, limit int, window time.Duration) (Decision, error) {
	if l.bypass {
		l.count(scope, "bypassed")
		return Decision{Allowed: true, Remaining: limit, Limit: limit}, nil
	}
	if limit <= 0 || window <= 0 {
		return Decision{}, fmt.Errorf("%s: %w", scope, ErrInvalidPolicy)
	}

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	d, err := l.store.Admit(ctx, Key(scope, identity), limit, window, l.clock.Now())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		l.storeFailed(scope, err)
		return Decision{Allowed: true, Remaining: limit - 1, Limit: limit}, nil
	}

	if d.Allowed {
		l.count(scope, "allowed")
	} else {
		l.count(scope, "denied")
		l.logger.Info("rate limit exceeded",
			zap.String("scope", scope),
			zap.Int("limit", limit),
			zap.Duration("window", window),
			zap.Duration("retry_after", d.RetryAfter),
		)
	}
	return d, nil
}

// AdmitPolicy is Admit with the limit and window taken from p.
func (l *Limiter) AdmitPolicy(ctx context.Context, p Policy, identity string) (Decision, error) {
	return l.Admit(ctx, p.Scope, identity, p.Limit, p.Window)
}

// Peek reports the current state for (p.Scope, identity) without consuming quota.
func (l *Limiter) Peek(ctx context.Context, p Policy, identity string) (Decision, error) {
	if l.bypass {
		return Decision{Allowed: true, Remaining: p.Limit, Limit: p.Limit}, nil
	}
	if p.Limit <= 0 || p.Window <= 0 {
		return Decision{}, fmt.Errorf("%s: %w", p.Scope, ErrInvalidPolicy)
	}

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	d, err := l.store.Peek(ctx, Key(p.Scope, identity), p.Limit, p.Window, l.clock.Now())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		l.storeFailed(p.Scope, err)
		return Decision{Allowed: true, Remaining: p.Limit, Limit: p.Limit}, nil
	}
	return d, nil
}

func (l *Limiter) storeFailed(scope string, err error) {
	l.logger.Warn("rate limit store failed, allowing request",
		zap.String("scope", scope),
		zap.Error(err),
	)
	if l.metrics != nil {
		l.metrics.RateLimitErrors.WithLabelValues(scope).Inc()
	}
}

func (l *Limiter) count(scope, outcome string) {
	if l.metrics != nil {
		l.metrics.RateLimitDecisions.WithLabelValues(scope, outcome).Inc()
	}
}

// Key builds the store key for (scope, identity). Identities are hashed so
// client IPs and user ids are not kept in clear text.
func Key(scope, identity string) string {
	sum := blake2b.Sum256([]byte(identity))
	return "ratelimit:" + scope + ":" + hex.EncodeToString(sum[:16])
}
