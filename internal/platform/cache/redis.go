package cache

import (
	"context"
	"errors"

	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "fixture_scheduler"

// RedisStore keeps one string value per key, without expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	payload, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, crerr.Wrapf(err, "redis get %s", key)
	}
	return payload, true, nil
}

func (s *RedisStore) Write(ctx context.Context, key string, payload []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.dataKey(key), payload, 0).Err(); err != nil {
		return crerr.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	n, err := s.client.Exists(ctx, s.dataKey(key)).Result()
	if err != nil {
		return false, crerr.Wrapf(err, "redis exists %s", key)
	}
	return n > 0, nil
}

func (s *RedisStore) dataKey(key string) string {
	return s.prefix + ":" + key
}
