package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	BackendLocal  = "local"
	BackendMinio  = "minio"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type StoreConfig struct {
	Backend  string
	LocalDir string
	Minio    MinioConfig
	Redis    RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewStore builds the backend named by cfg.Backend. The returned close func is never nil.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		store, err := NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case BackendMinio:
		store, err := NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.Prefix), client.Close, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
