package service

import (
	"context"
	"errors"

	"securechat-service/utils"

	"github.com/redis/go-redis/v9"
)

// RedisPresence is the production PresenceCache.
type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

func presenceKey(id uint) string {
	return "presence:" + utils.FormatID(id)
}

func (p *RedisPresence) Get(ctx context.Context, id uint) (bool, bool, error) {
	val, err := p.client.Get(ctx, presenceKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, err
	}
	return val == "1", true, nil
}

func (p *RedisPresence) Set(ctx context.Context, id uint, online bool) error {
	val := "0"
	if online {
		val = "1"
	}
	return p.client.Set(ctx, presenceKey(id), val, 0).Err()
}

func (p *RedisPresence) Delete(ctx context.Context, id uint) error {
	return p.client.Del(ctx, presenceKey(id)).Err()
}
