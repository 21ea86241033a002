package revocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport or command failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	defaultPrefix = "rv"
	clearBatch    = 256
)

// Redis is a Registry backed by one Redis key per revoked jti. Revoke relies on
// SETNX, so concurrent revocations of the same jti across processes report true
// exactly once.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a registry storing keys as "<prefix>:<jti>". An empty prefix
// defaults to "rv".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(jti string) string {
	return r.prefix + ":" + jti
}

func (r *Redis) Revoke(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	inserted, err := r.client.SetNX(ctx, r.key(jti), 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return inserted, nil
}

func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Clear deletes every key under the registry prefix.
func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+":*", clearBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
