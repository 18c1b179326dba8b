package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST "+usecase.RunPassPath, RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunPassJob)))
	mux.Handle("POST "+usecase.WarmCachePath, RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunWarmCacheJob)))
}

func registerInternalAuditRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("GET /v1/internal/fixtures/status", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListFixtureStatuses)))
	mux.Handle("GET /v1/internal/fixtures/status/{fixtureID}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetFixtureStatus)))
	mux.Handle("GET /v1/internal/cache/stats", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetCacheStats)))
}
