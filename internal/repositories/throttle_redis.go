package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cesde/internal/models"
)

const throttleKeyPrefix = "login_attempts:"

// Restart the counter when the last failure fell out of the window, then
// count this one. The key expires with the window so idle clients vanish.
var incrementScript = redis.NewScript(`
local last = redis.call("HGET", KEYS[1], "last")
if last and (tonumber(ARGV[1]) - tonumber(last)) > tonumber(ARGV[2]) then
  redis.call("DEL", KEYS[1])
end
local count = redis.call("HINCRBY", KEYS[1], "count", 1)
redis.call("HSET", KEYS[1], "last", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return count
`)

// RedisThrottleStore shares failure counters between instances.
type RedisThrottleStore struct {
	client redis.UniversalClient
}

func NewRedisThrottleStore(client redis.UniversalClient) *RedisThrottleStore {
	return &RedisThrottleStore{client: client}
}

func (s *RedisThrottleStore) Get(ctx context.Context, key string) (*models.AttemptCounter, error) {
	vals, err := s.client.HMGet(ctx, throttleKeyPrefix+key, "count", "last").Result()
	if err != nil {
		return nil, fmt.Errorf("throttle get: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, nil
	}
	count, err := strconv.Atoi(fmt.Sprint(vals[0]))
	if err != nil {
		return nil, fmt.Errorf("throttle get: bad count %v: %w", vals[0], err)
	}
	lastMs, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("throttle get: bad timestamp %v: %w", vals[1], err)
	}
	return &models.AttemptCounter{Count: count, LastFailure: time.UnixMilli(lastMs)}, nil
}

func (s *RedisThrottleStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	n, err := incrementScript.Run(ctx, s.client,
		[]string{throttleKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("throttle increment: %w", err)
	}
	return n, nil
}

func (s *RedisThrottleStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, throttleKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("throttle delete: %w", err)
	}
	return nil
}
