package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fixture-scheduler/internal/config"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-scheduler/internal/infrastructure/repository/blob"
	"github.com/riskibarqy/fixture-scheduler/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fixture-scheduler/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
)

type storage struct {
	statuses   fixturestatus.Repository
	dispatches jobscheduler.Repository
}

func (a *App) openCacheStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	store, closeStore, err := cache.NewStore(ctx, cache.StoreConfig{
		Backend:  cfg.CacheBackend,
		LocalDir: cfg.CacheLocalDir,
		Minio: cache.MinioConfig{
			Endpoint:  cfg.CacheMinioEndpoint,
			AccessKey: cfg.CacheMinioAccessKey,
			SecretKey: cfg.CacheMinioSecretKey,
			Bucket:    cfg.CacheMinioBucket,
			Region:    cfg.CacheMinioRegion,
			Prefix:    cfg.CacheMinioPrefix,
			UseSSL:    cfg.CacheMinioUseSSL,
		},
		Redis: cache.RedisConfig{
			Addr:     cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
			Prefix:   cfg.CacheRedisPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open cache store backend=%s: %w", cfg.CacheBackend, err)
	}
	a.onClose(closeStore)
	a.logger.Info("cache store ready", "backend", cfg.CacheBackend)
	return store, nil
}

func loadTTLPolicy(cfg config.Config) (cache.Policy, error) {
	if cfg.CacheTTLPolicyFile == "" {
		return cache.DefaultPolicy(), nil
	}
	policy, err := cache.LoadPolicyFile(cfg.CacheTTLPolicyFile)
	if err != nil {
		return cache.Policy{}, fmt.Errorf("load ttl policy file %s: %w", cfg.CacheTTLPolicyFile, err)
	}
	return policy, nil
}

// openStorage picks the status repository and, when enabled, the job dispatch
// log. Postgres is opened only when one of them needs it.
func (a *App) openStorage(ctx context.Context, cfg config.Config, cacheStore cache.Store) (storage, error) {
	var db *sqlx.DB
	if cfg.StatusBackend == config.StatusBackendPostgres || cfg.DispatchLogEnabled {
		var err error
		if db, err = a.openDB(ctx, cfg); err != nil {
			return storage{}, err
		}
	}

	out := storage{dispatches: jobscheduler.NoopRepository{}}
	switch cfg.StatusBackend {
	case config.StatusBackendPostgres:
		out.statuses = postgres.NewFixtureStatusRepository(db)
	case config.StatusBackendMemory:
		out.statuses = memory.NewFixtureStatusRepository()
	default:
		out.statuses = blob.NewFixtureStatusRepository(cacheStore, cfg.StatusBlobKey)
	}
	if cfg.DispatchLogEnabled {
		out.dispatches = postgres.NewJobDispatchRepository(db)
	}

	a.logger.Info("status store ready", "backend", cfg.StatusBackend, "dispatch_log", cfg.DispatchLogEnabled)
	return out, nil
}
