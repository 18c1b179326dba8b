package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/resilience"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 5 * time.Minute

var errEnrichmentTransient = crerr.New("enrichment transient failure")

type ClientConfig struct {
	URL            string
	Token          string
	Timeout        time.Duration
	MaxConns       int
	Dial           fasthttp.DialFunc
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client triggers the enrichment pipeline for one fixture over HTTP and maps
// its answer to an Outcome.
type Client struct {
	client  *fasthttp.Client
	url     string
	token   string
	timeout time.Duration
	logger  *logging.Logger
	breaker *resilience.CircuitBreaker
}

type runRequest struct {
	FixtureID string `json:"fixture_id"`
}

type runResponse struct {
	Status  string   `json:"status"`
	Reason  string   `json:"reason"`
	Missing []string `json:"missing"`
	Error   string   `json:"error"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("enrichment url is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 16
	}

	return &Client{
		client: &fasthttp.Client{
			Name:                "fixture-scheduler",
			MaxConnsPerHost:     maxConns,
			ReadTimeout:         timeout,
			WriteTimeout:        30 * time.Second,
			MaxIdleConnDuration: time.Minute,
			Dial:                cfg.Dial,
		},
		url:     url,
		token:   strings.TrimSpace(cfg.Token),
		timeout: timeout,
		logger:  logger,
		breaker: cfg.CircuitBreaker.Build(),
	}, nil
}

func (c *Client) RunEnrichment(ctx context.Context, fixtureID string) fixturestatus.Outcome {
	if err := ctx.Err(); err != nil {
		return fixturestatus.Failure{Err: err}
	}

	body, err := sonic.Marshal(runRequest{FixtureID: fixtureID})
	if err != nil {
		return fixturestatus.Failure{Err: fmt.Errorf("encode enrichment request: %w", err)}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
	req.SetBodyRaw(body)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	err = c.breaker.Execute(func() error {
		if err := c.client.DoTimeout(req, resp, timeout); err != nil {
			return crerr.Mark(fmt.Errorf("call enrichment pipeline: %w", err), errEnrichmentTransient)
		}
		if code := resp.StatusCode(); code >= fasthttp.StatusInternalServerError {
			return crerr.Mark(fmt.Errorf("enrichment pipeline status=%d", code), errEnrichmentTransient)
		}
		return nil
	}, func(err error) bool { return crerr.Is(err, errEnrichmentTransient) })
	if err != nil {
		c.logger.WarnContext(ctx, "enrichment call failed", "fixture_id", fixtureID, "error", err)
		return fixturestatus.Failure{Err: err}
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fixturestatus.Failure{Err: fmt.Errorf("enrichment pipeline status=%d body=%s", code, abbreviate(resp.Body()))}
	}

	var out runResponse
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		return fixturestatus.Failure{Err: fmt.Errorf("decode enrichment response: %w", err)}
	}
	return out.outcome()
}

func (r runResponse) outcome() fixturestatus.Outcome {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "complete", "completed", "success":
		return fixturestatus.Success{}
	case "partial":
		reason := strings.TrimSpace(r.Reason)
		if reason == "" && len(r.Missing) > 0 {
			reason = strings.Join(r.Missing, ", ")
		}
		return fixturestatus.Partial{Reason: reason}
	case "failed", "error":
		msg := strings.TrimSpace(r.Error)
		if msg == "" {
			msg = "enrichment failed"
		}
		return fixturestatus.Failure{Err: errors.New(msg)}
	default:
		return fixturestatus.Failure{Err: fmt.Errorf("unknown enrichment status %q", r.Status)}
	}
}

func abbreviate(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
