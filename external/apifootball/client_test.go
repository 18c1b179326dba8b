package apifootball

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/resilience"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "secret-key"

func newTestClient(t *testing.T, baseURL string, mutate func(*ClientConfig)) *Client {
	t.Helper()

	cfg := ClientConfig{
		HTTPClient:        &http.Client{Timeout: 2 * time.Second},
		BaseURL:           baseURL,
		APIKey:            testAPIKey,
		MaxRetries:        2,
		RetryBaseDelay:    time.Millisecond,
		RequestsPerMinute: 6000,
		Leagues:           []League{{ID: 39, Name: "Premier League"}},
		Fetcher:           cache.NewFetcher(cache.NewMemoryStore(), cache.DefaultPolicy()),
		Logger:            logging.NewNop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg)
}

func TestClient_FetchCandidateFixtures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get(apiKeyHeader))
		assert.Equal(t, "39", r.URL.Query().Get("league"))
		assert.Equal(t, "2025", r.URL.Query().Get("season"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("date") != "2026-03-14" {
			_, _ = w.Write([]byte(`{"errors":[],"response":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":[],"response":[
			{"fixture":{"id":1208021,"date":"2026-03-14T15:00:00+00:00","venue":{"name":"Emirates Stadium"},"status":{"short":"NS"}},
			 "league":{"id":39,"name":"Premier League"},
			 "teams":{"home":{"id":42,"name":"Arsenal"},"away":{"id":49,"name":"Chelsea"}}},
			{"fixture":{"id":1208022,"date":"2026-03-14T23:30:00+00:00","venue":{"name":"Anfield"},"status":{"short":"PST"}},
			 "league":{"id":39,"name":"Premier League"},
			 "teams":{"home":{"id":40,"name":"Liverpool"},"away":{"id":50,"name":"Manchester City"}}}
		]}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil)
	from := time.Date(2026, time.March, 13, 16, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 14, 17, 0, 0, 0, time.UTC)

	items, err := client.FetchCandidateFixtures(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "1208021", items[0].ID)
	require.Equal(t, "Arsenal", items[0].HomeTeam)
	require.Equal(t, "49", items[0].AwayTeamID)
	require.Equal(t, "NS", items[0].Status)
	require.True(t, items[0].KickoffAt.Equal(time.Date(2026, time.March, 14, 15, 0, 0, 0, time.UTC)))
	require.EqualValues(t, 2, hits.Load())

	_, err = client.FetchCandidateFixtures(context.Background(), from, to)
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load(), "fixture lists are served from cache")
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set(remainingHeader, "55")
		_, _ = w.Write([]byte(`{"errors":[],"response":[{"team":{"id":42,"name":"Arsenal"},"players":[{"id":1100},{"id":1101},{"id":0}]}]}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil)
	budget := quota.NewBudget(100, 90, 30)

	ids, err := client.FetchSquad(context.Background(), "42", budget)
	require.NoError(t, err)
	require.Equal(t, []string{"1100", "1101"}, ids)
	require.EqualValues(t, 3, hits.Load())

	snap := budget.Snapshot()
	require.Equal(t, 1, snap.Consumed)
	require.Equal(t, 55, snap.Remaining, "remaining header lowers the budget")
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil)
	err := client.FetchPlayer(context.Background(), "1100", 2025, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=403")
	require.EqualValues(t, 1, hits.Load())
}

func TestClient_BodyErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"errors":{"requests":"You have reached the request limit for the day"},"response":[]}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil)
	for i := 0; i < 2; i++ {
		err := client.FetchPlayer(context.Background(), "1100", 2025, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "request limit")
	}
	require.EqualValues(t, 2, hits.Load())
}

func TestClient_BudgetExhaustedSkipsRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil)
	err := client.FetchPlayer(context.Background(), "1100", 2025, quota.NewBudget(100, 30, 30))
	require.ErrorIs(t, err, quota.ErrExhausted)
	require.Zero(t, hits.Load())
}

func TestClient_FetchQuotaStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"errors":[],"response":{"account":{"firstname":"x"},"requests":{"current":37,"limit_day":100}}}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil)
	for i := 0; i < 2; i++ {
		status, err := client.FetchQuotaStatus(context.Background())
		require.NoError(t, err)
		require.Equal(t, quota.Status{LimitDay: 100, Current: 37}, status)
	}
	require.EqualValues(t, 2, hits.Load(), "status is never cached")
}

func TestClient_CircuitBreakerOpensOnTransientFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, func(cfg *ClientConfig) {
		cfg.MaxRetries = 0
		cfg.CircuitBreaker = resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		}
	})

	for i := 0; i < 2; i++ {
		err := client.FetchPlayer(context.Background(), "1100", 2025, nil)
		require.Error(t, err)
		require.False(t, errors.Is(err, usecase.ErrDependencyUnavailable))
	}

	err := client.FetchPlayer(context.Background(), "1100", 2025, nil)
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
	require.EqualValues(t, 2, hits.Load())
}
