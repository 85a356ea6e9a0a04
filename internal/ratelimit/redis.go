package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/flexprice/taxsync/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

// RedisLimiter shares token buckets across server instances
type RedisLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
	rate   float64
	burst  int
}

func NewRedisLimiter(client redis.UniversalClient, cfg *config.Configuration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		prefix: cfg.Redis.KeyPrefix,
		rate:   cfg.RateLimit.RequestsPerSecond,
		burst:  cfg.RateLimit.Burst,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if key == "" {
		return Decision{}, errors.New("rate limiter key is empty")
	}
	if l.rate <= 0 || l.burst <= 0 {
		return Decision{}, errors.New("rate limiter rate and burst must be positive")
	}

	res, err := l.script.Run(ctx, l.client,
		[]string{l.prefix + ":ratelimit:" + key},
		l.rate,
		l.burst,
		bucketTTL(l.rate, l.burst).Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) < 2 {
		return Decision{}, errors.New("invalid rate limit script response")
	}

	allowed, _ := res[0].(int64)
	raw, _ := res[1].(string)
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Allowed: allowed == 1, Limit: l.burst, Remaining: int(tokens)}
	if !d.Allowed {
		d.RetryAfter = time.Duration((1 - tokens) / l.rate * float64(time.Second))
	}
	return d, nil
}

// bucketTTL keeps an idle bucket twice as long as a full refill takes
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
