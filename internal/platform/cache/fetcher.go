package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/resilience"
)

// FetchFunc performs the real provider call and returns its JSON payload.
type FetchFunc func(ctx context.Context) ([]byte, error)

type envelope struct {
	CachedAt     time.Time       `json:"cached_at"`
	ResourceType string          `json:"resource_type,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// Fetcher puts a TTL-keyed cache in front of provider calls. Store failures
// never fail a Get: a read error is a miss and a write error is logged.
type Fetcher struct {
	store   Store
	policy  Policy
	logger  *logging.Logger
	now     func() time.Time
	flight  resilience.SingleFlight
	stats   *statsRecorder
	metrics *fetcherMetrics
}

type FetcherOption func(*Fetcher)

func WithLogger(logger *logging.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher builds a Fetcher. A nil store runs permanently in degraded mode.
func NewFetcher(store Store, policy Policy, opts ...FetcherOption) *Fetcher {
	if policy.rules == nil {
		policy = DefaultPolicy()
	}
	f := &Fetcher{
		store:   store,
		policy:  policy,
		logger:  logging.Default(),
		now:     time.Now,
		stats:   newStatsRecorder(),
		metrics: newFetcherMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type getOptions struct {
	budget *quota.Budget
}

type GetOption func(*getOptions)

// WithBudget charges one unit per real fetch. Cache hits are free.
func WithBudget(budget *quota.Budget) GetOption {
	return func(o *getOptions) {
		o.budget = budget
	}
}

func (f *Fetcher) Policy() Policy {
	return f.policy
}

// Get returns the payload for (resourceType, params), from cache when fresh,
// otherwise from fetch. A failed fetch is returned as is and never cached.
func (f *Fetcher) Get(ctx context.Context, resourceType string, params map[string]string, fetch FetchFunc, opts ...GetOption) ([]byte, error) {
	if fetch == nil {
		return nil, fmt.Errorf("fetch func is required")
	}

	options := getOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	resourceType = normalizeResourceType(resourceType)
	key := Key(resourceType, params)
	ttl := f.policy.Lookup(resourceType, params)

	if ttl.Cacheable() {
		if payload, ok := f.readFresh(ctx, resourceType, key, ttl); ok {
			f.record(ctx, resourceType, resultHit)
			return payload, nil
		}
	}
	f.record(ctx, resourceType, resultMiss)

	value, err, shared := f.flight.Do(key, func() (any, error) {
		if ttl.Cacheable() {
			if payload, ok := f.readFresh(ctx, resourceType, key, ttl); ok {
				return payload, nil
			}
		}

		if !options.budget.TryConsume(1) {
			return nil, quota.ErrExhausted
		}

		f.record(ctx, resourceType, resultFetch)
		payload, err := fetch(ctx)
		if err != nil {
			f.record(ctx, resourceType, resultFetchError)
			return nil, err
		}

		if ttl.Cacheable() {
			f.write(ctx, resourceType, key, payload)
		}
		return payload, nil
	})
	if err != nil {
		if errors.Is(err, quota.ErrExhausted) {
			f.logger.WarnContext(ctx, "provider quota exhausted, fetch skipped", "resource_type", resourceType, "key", key)
		}
		return nil, err
	}
	if shared {
		f.record(ctx, resourceType, resultShared)
	}

	payload, _ := value.([]byte)
	return payload, nil
}

func (f *Fetcher) readFresh(ctx context.Context, resourceType, key string, ttl TTL) ([]byte, bool) {
	if f.store == nil {
		return nil, false
	}

	raw, found, err := f.store.Read(ctx, key)
	if err != nil {
		f.record(ctx, resourceType, resultStoreError)
		f.logger.WarnContext(ctx, "cache read failed, fetching directly", "resource_type", resourceType, "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil || len(env.Payload) == 0 || env.CachedAt.IsZero() {
		f.logger.WarnContext(ctx, "cache entry unreadable, treating as miss", "resource_type", resourceType, "key", key)
		return nil, false
	}
	if !ttl.Fresh(env.CachedAt, f.now()) {
		return nil, false
	}
	return []byte(env.Payload), true
}

func (f *Fetcher) write(ctx context.Context, resourceType, key string, payload []byte) {
	if f.store == nil {
		return
	}
	if !sonic.Valid(payload) {
		f.logger.WarnContext(ctx, "fetched payload is not json, not caching", "resource_type", resourceType, "key", key)
		return
	}

	raw, err := sonic.Marshal(envelope{
		CachedAt:     f.now().UTC(),
		ResourceType: resourceType,
		Payload:      json.RawMessage(payload),
	})
	if err != nil {
		f.record(ctx, resourceType, resultStoreError)
		f.logger.WarnContext(ctx, "encode cache entry failed", "resource_type", resourceType, "key", key, "error", err)
		return
	}
	if err := f.store.Write(ctx, key, raw); err != nil {
		f.record(ctx, resourceType, resultStoreError)
		f.logger.WarnContext(ctx, "cache write failed, returning fetched payload", "resource_type", resourceType, "key", key, "error", err)
	}
}

func (f *Fetcher) record(ctx context.Context, resourceType string, result fetchResult) {
	f.stats.add(resourceType, result)
	f.metrics.add(ctx, resourceType, result)
}

// Stats returns per-resource counters since process start.
func (f *Fetcher) Stats() map[string]ResourceStats {
	return f.stats.snapshot()
}
