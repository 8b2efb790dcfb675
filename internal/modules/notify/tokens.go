// README: Device token registry backed by Redis.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mandado/internal/types"
)

const tokenKeyPrefix = "notify:token:%s"

// RedisTokens stores each actor's current device token. Registration happens
// on login from the mobile clients; missing keys simply mean no device.
type RedisTokens struct {
	redis *redis.Client
}

func NewRedisTokens(rdb *redis.Client) *RedisTokens {
	return &RedisTokens{redis: rdb}
}

func (t *RedisTokens) Register(ctx context.Context, actorID types.ID, token string) error {
	return t.redis.Set(ctx, tokenKey(actorID), token, 0).Err()
}

func (t *RedisTokens) Token(ctx context.Context, actorID types.ID) (string, error) {
	val, err := t.redis.Get(ctx, tokenKey(actorID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func tokenKey(actorID types.ID) string {
	return fmt.Sprintf(tokenKeyPrefix, string(actorID))
}
