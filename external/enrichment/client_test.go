package enrichment

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newInmemoryClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() {
		_ = server.Shutdown()
		_ = ln.Close()
	})

	client, err := NewClient(ClientConfig{
		URL:     "http://enrichment.local/v1/enrich",
		Token:   "pipeline-token",
		Timeout: 2 * time.Second,
		Dial:    func(string) (net.Conn, error) { return ln.Dial() },
		Logger:  logging.NewNop(),
	})
	require.NoError(t, err)
	return client
}

func TestClient_RunEnrichmentMapsStatuses(t *testing.T) {
	t.Parallel()

	responses := map[string]string{
		"1": `{"status":"complete"}`,
		"2": `{"status":"partial","missing":["lineups","ratings"]}`,
		"3": `{"status":"failed","error":"llm timeout"}`,
		"4": `{"status":"weird"}`,
	}
	client := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)) != "Bearer pipeline-token" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		var req runRequest
		if err := sonic.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(responses[req.FixtureID])
	})

	ctx := context.Background()
	require.Equal(t, fixturestatus.Success{}, client.RunEnrichment(ctx, "1"))

	partial, ok := client.RunEnrichment(ctx, "2").(fixturestatus.Partial)
	require.True(t, ok)
	require.Equal(t, "Missing: lineups, ratings", partial.Message())

	failure, ok := client.RunEnrichment(ctx, "3").(fixturestatus.Failure)
	require.True(t, ok)
	require.Equal(t, "llm timeout", failure.Message())

	unknown, ok := client.RunEnrichment(ctx, "4").(fixturestatus.Failure)
	require.True(t, ok)
	require.Contains(t, unknown.Message(), "weird")
}

func TestClient_RunEnrichmentReportsHTTPFailure(t *testing.T) {
	t.Parallel()

	client := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})

	failure, ok := client.RunEnrichment(context.Background(), "1").(fixturestatus.Failure)
	require.True(t, ok)
	require.Contains(t, failure.Message(), "status=502")
}

func TestClient_RunEnrichmentHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	client := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"status":"complete"}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := client.RunEnrichment(ctx, "1").(fixturestatus.Failure)
	require.True(t, ok)
}

func TestNewClient_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{})
	require.Error(t, err)
}
