package apifootball

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/resilience"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        = "https://v3.football.api-sports.io"
	defaultRetryBaseDelay = time.Second
	defaultRatePerMinute  = 30
	apiKeyHeader          = "x-apisports-key"
	remainingHeader       = "x-ratelimit-requests-remaining"
	maxResponseBytes      = 8 << 20
)

var errAPIFootballTransient = crerr.New("api-football transient failure")

type League struct {
	ID   int
	Name string
}

func DefaultLeagues() []League {
	return []League{
		{ID: 39, Name: "Premier League"},
		{ID: 2, Name: "UEFA Champions League"},
		{ID: 140, Name: "La Liga"},
		{ID: 45, Name: "FA Cup"},
		{ID: 143, Name: "Copa del Rey"},
		{ID: 48, Name: "League Cup"},
	}
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	// RequestsPerMinute throttles outgoing calls; <= 0 uses the default.
	RequestsPerMinute int
	Leagues           []League
	Fetcher           *cache.Fetcher
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client reads API-Football through the caching fetcher. Every method charges
// the supplied budget only for requests that actually reach the provider.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	retryBaseDelay time.Duration
	limiter        *rate.Limiter
	leagues        []League
	fetcher        *cache.Fetcher
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	leagues := cfg.Leagues
	if len(leagues) == 0 {
		leagues = DefaultLeagues()
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = cache.NewFetcher(nil, cache.DefaultPolicy(), cache.WithLogger(logger))
	}

	breaker := cfg.CircuitBreaker.Build()
	if breaker != nil {
		breaker.OnStateChange(func(from, to resilience.CircuitState) {
			logger.Warn("api-football circuit breaker state changed", "from", from, "to", to)
		})
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBaseDelay: retryBaseDelay,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		leagues:        append([]League(nil), leagues...),
		fetcher:        fetcher,
		logger:         logger,
		breaker:        breaker,
	}
}

func (c *Client) Leagues() []League {
	return append([]League(nil), c.leagues...)
}

// get serves resourceType through the fetcher and falls through to the
// provider on a miss.
func (c *Client) get(ctx context.Context, resourceType, path string, params map[string]string, budget *quota.Budget) ([]byte, error) {
	fetch := func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, path, params, budget)
	}
	raw, err := c.fetcher.Get(ctx, resourceType, params, fetch, cache.WithBudget(budget))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params map[string]string, budget *quota.Budget) ([]byte, error) {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var raw []byte
	err := c.breaker.Execute(func() error {
		var reqErr error
		raw, reqErr = c.executeRequest(ctx, fullURL, budget)
		return reqErr
	}, isTransient)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "path", path)
		return nil, fmt.Errorf("%w: football data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return nil, err
	}
	if err := checkEnvelopeErrors(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string, budget *quota.Budget) ([]byte, error) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = c.retryBaseDelay
	retry.MaxInterval = 30 * c.retryBaseDelay

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Mark(fmt.Errorf("send request: %s", sanitizeSensitiveText(err.Error(), c.apiKey)), errAPIFootballTransient)
		} else {
			observeRemaining(resp.Header, budget)
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(fmt.Errorf("read response body: %w", readErr), errAPIFootballTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw)), errAPIFootballTransient)
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		sleep := retry.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func observeRemaining(header http.Header, budget *quota.Budget) {
	raw := strings.TrimSpace(header.Get(remainingHeader))
	if raw == "" {
		return
	}
	if remaining, err := strconv.Atoi(raw); err == nil {
		budget.Observe(remaining)
	}
}

func isTransient(err error) bool {
	return err != nil && crerr.Is(err, errAPIFootballTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return value
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
