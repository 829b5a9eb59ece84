package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// admitScript purges expired members, then records now only if the window has
// room. Scores are unix microseconds.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, math.ceil(window / 1000))
	return {1, limit - count - 1, 0}
end

local idx = count - limit
local oldest = redis.call('ZRANGE', key, idx, idx, 'WITHSCORES')
local retry = tonumber(oldest[2]) + window - now
if retry < 0 then
	retry = 0
end
return {0, 0, retry}
`)

var peekScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
	return {1, limit - count, 0}
end

local idx = count - limit
local oldest = redis.call('ZRANGE', key, idx, idx, 'WITHSCORES')
local retry = tonumber(oldest[2]) + window - now
if retry < 0 then
	retry = 0
end
return {0, 0, retry}
`)

// RedisStore keeps rolling windows in Redis sorted sets so every API replica
// shares the same admission state.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store on top of an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Admit implements Store.
func (s *RedisStore) Admit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())
	res, err := admitScript.Run(ctx, s.client, []string{key},
		now.UnixMicro(), window.Microseconds(), limit, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to run admit script: %w", err)
	}
	return decodeDecision(res, limit)
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	res, err := peekScript.Run(ctx, s.client, []string{key},
		now.UnixMicro(), window.Microseconds(), limit).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to run peek script: %w", err)
	}
	return decodeDecision(res, limit)
}

func decodeDecision(res []int64, limit int) (Decision, error) {
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply length %d", len(res))
	}
	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Microsecond,
		Limit:      limit,
	}, nil
}
