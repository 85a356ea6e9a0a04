package lease

import (
	"context"
	"errors"
	"time"

	"github.com/flexprice/taxsync/internal/config"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// RedisManager shares leases across server instances using SET NX PX
type RedisManager struct {
	client  redis.UniversalClient
	prefix  string
	release *redis.Script
	renew   *redis.Script
}

func NewRedisClient(cfg *config.Configuration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func NewRedisManager(client redis.UniversalClient, cfg *config.Configuration) *RedisManager {
	return &RedisManager{
		client:  client,
		prefix:  cfg.Redis.KeyPrefix,
		release: redis.NewScript(releaseScript),
		renew:   redis.NewScript(renewScript),
	}
}

func (m *RedisManager) redisKey(key string) string {
	if m.prefix == "" {
		return key
	}
	return m.prefix + ":" + key
}

func (m *RedisManager) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if m == nil || m.client == nil {
		return nil, false, errors.New("lease client not configured")
	}
	if key == "" {
		return nil, false, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return nil, false, errors.New("lease ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.redisKey(key), token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{manager: m, key: key, token: token}, true, nil
}

type redisLease struct {
	manager *RedisManager
	key     string
	token   string
}

func (l *redisLease) Key() string   { return l.key }
func (l *redisLease) Token() string { return l.token }

func (l *redisLease) Renew(ctx context.Context, ttl time.Duration) error {
	res, err := l.manager.renew.Run(ctx, l.manager.client, []string{l.manager.redisKey(l.key)}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrNotHeld
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	return l.manager.release.Run(ctx, l.manager.client, []string{l.manager.redisKey(l.key)}, l.token).Err()
}
