package displayid

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const sequenceKeyPrefix = "displayid:"

// advanceScript raises the counter to ARGV[1] without ever lowering it.
var advanceScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local target = tonumber(ARGV[1])
if target > current then
	redis.call("SET", KEYS[1], target)
	return target
end
return current
`)

// RedisSequence implements Sequence with INCR on displayid:<prefix>.
type RedisSequence struct {
	client redis.UniversalClient
}

func NewRedisSequence(client redis.UniversalClient) *RedisSequence {
	return &RedisSequence{client: client}
}

func (s *RedisSequence) Next(ctx context.Context, prefix string) (int64, error) {
	n, err := s.client.Incr(ctx, sequenceKeyPrefix+prefix).Result()
	if err != nil {
		return 0, fmt.Errorf("incr display id sequence: %w", err)
	}
	return n, nil
}

func (s *RedisSequence) Advance(ctx context.Context, prefix string, n int64) error {
	if err := advanceScript.Run(ctx, s.client, []string{sequenceKeyPrefix + prefix}, n).Err(); err != nil {
		return fmt.Errorf("advance display id sequence: %w", err)
	}
	return nil
}
