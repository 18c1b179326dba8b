package httpapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
)

type PassRunner interface {
	Run(ctx context.Context, input usecase.PassInput) (usecase.PassResult, error)
}

type CacheWarmRunner interface {
	WarmCache(ctx context.Context, dispatchID string) (usecase.WarmResult, error)
}

type StatusReader interface {
	Get(ctx context.Context, fixtureID string) (fixturestatus.Record, bool, error)
	List(ctx context.Context, filter fixturestatus.ListFilter) ([]fixturestatus.Record, error)
}

type CacheStatsProvider interface {
	Stats() map[string]cache.ResourceStats
}

// HandlerDependencies lists the services behind the operator API. Any of them may
// be nil; the matching endpoints then answer 503.
type HandlerDependencies struct {
	Passes     PassRunner
	Warmer     CacheWarmRunner
	Statuses   StatusReader
	CacheStats CacheStatsProvider
}

type Handler struct {
	passes     PassRunner
	warmer     CacheWarmRunner
	statuses   StatusReader
	cacheStats CacheStatsProvider
	logger     *logging.Logger
	validator  *validator.Validate
}

func NewHandler(deps HandlerDependencies, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		passes:     deps.Passes,
		warmer:     deps.Warmer,
		statuses:   deps.Statuses,
		cacheStats: deps.CacheStats,
		logger:     logger,
		validator:  validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
