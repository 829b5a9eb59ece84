package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
	"github.com/pageza/pantrychef/backend/internal/ratelimit"
)

// AuthGuard throttles failed authentication attempts per client IP.
type AuthGuard struct {
	limiter *ratelimit.Limiter
	policy  ratelimit.Policy
	logger  *zap.Logger
}

// NewAuthGuard creates a guard applying policy to client IPs.
func NewAuthGuard(limiter *ratelimit.Limiter, policy ratelimit.Policy, logger *zap.Logger) *AuthGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthGuard{limiter: limiter, policy: policy, logger: logger}
}

// Check reports whether the client may attempt authentication. A refused
// client gets a 429 response.
func (g *AuthGuard) Check(c *gin.Context) bool {
	d, err := g.limiter.Peek(c.Request.Context(), g.policy, c.ClientIP())
	if err != nil {
		g.logger.Warn("auth guard check failed", zap.Error(err))
		return true
	}
	if d.Allowed {
		return true
	}
	RespondError(c, apperrors.RateLimited(g.policy.Scope, d.RetryAfter))
	return false
}

// RecordFailure counts one failed attempt against the client's budget.
func (g *AuthGuard) RecordFailure(c *gin.Context) {
	d, err := g.limiter.AdmitPolicy(c.Request.Context(), g.policy, c.ClientIP())
	if err != nil {
		g.logger.Warn("auth guard record failed", zap.Error(err))
		return
	}
	SetRateLimitHeaders(c, d)
}

// SetRateLimitHeaders exposes a decision to the client.
func SetRateLimitHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
}
