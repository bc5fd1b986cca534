package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: bump the account's key, stamp the window TTL on the
// first hit, and report both so the caller can compute Retry-After.
var createLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimiter throttles transaction creation per debit account with a
// fixed window in Redis, so the limit holds across service replicas.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRateLimiter creates a limiter keyed under the given prefix.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "txflow:rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

// ConsumeRateLimit counts one creation attempt for the account and returns the
// window's running total plus the seconds until the window resets. A missing
// client, account, or limit disables the check rather than erroring.
func (r *RedisRateLimiter) ConsumeRateLimit(ctx context.Context, account string, limit int, window time.Duration) (int, int, error) {
	account = strings.TrimSpace(account)
	if r == nil || r.client == nil || account == "" || limit <= 0 || window < time.Second {
		return 0, 0, nil
	}

	key := fmt.Sprintf("%s:create:%s", r.prefix, account)
	values, err := createLimitScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected limiter reply length %d", len(values))
	}

	ttlMs := values[1]
	if ttlMs < 0 {
		ttlMs = window.Milliseconds()
	}
	retryAfter := int((ttlMs + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(values[0]), retryAfter, nil
}

var _ RateLimiter = (*RedisRateLimiter)(nil)
