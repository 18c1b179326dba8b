package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type fetchResult string

const (
	resultHit        fetchResult = "hit"
	resultMiss       fetchResult = "miss"
	resultFetch      fetchResult = "fetch"
	resultFetchError fetchResult = "fetch_error"
	resultStoreError fetchResult = "store_error"
	resultShared     fetchResult = "shared"
)

type ResourceStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Fetches     int64 `json:"fetches"`
	FetchErrors int64 `json:"fetch_errors"`
	StoreErrors int64 `json:"store_errors"`
	Shared      int64 `json:"shared"`
}

type statsRecorder struct {
	mu        sync.Mutex
	resources map[string]*ResourceStats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{resources: make(map[string]*ResourceStats)}
}

func (r *statsRecorder) add(resourceType string, result fetchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.resources[resourceType]
	if !ok {
		s = &ResourceStats{}
		r.resources[resourceType] = s
	}
	switch result {
	case resultHit:
		s.Hits++
	case resultMiss:
		s.Misses++
	case resultFetch:
		s.Fetches++
	case resultFetchError:
		s.FetchErrors++
	case resultStoreError:
		s.StoreErrors++
	case resultShared:
		s.Shared++
	}
}

func (r *statsRecorder) snapshot() map[string]ResourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]ResourceStats, len(r.resources))
	for name, s := range r.resources {
		out[name] = *s
	}
	return out
}

type fetcherMetrics struct {
	requests metric.Int64Counter
}

func newFetcherMetrics() *fetcherMetrics {
	m := &fetcherMetrics{}
	meter := otel.Meter("github.com/riskibarqy/fixture-scheduler/internal/platform/cache")
	if counter, err := meter.Int64Counter("fixture_scheduler.cache.requests",
		metric.WithDescription("Caching fetcher events by resource type and result"),
		metric.WithUnit("{request}")); err == nil {
		m.requests = counter
	}
	return m
}

func (m *fetcherMetrics) add(ctx context.Context, resourceType string, result fetchResult) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource_type", resourceType),
		attribute.String("result", string(result)),
	))
}
