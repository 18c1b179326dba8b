package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
)

const (
	defaultStatusListLimit = 100
	maxStatusListLimit     = 500
)

type fixtureStatusDTO struct {
	FixtureID      string     `json:"fixture_id"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         string     `json:"status"`
	FirstAttemptAt *time.Time `json:"first_attempt_at,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	AttemptCount   int        `json:"attempt_count"`
	LastError      string     `json:"last_error,omitempty"`
	League         string     `json:"league,omitempty"`
	HomeTeam       string     `json:"home_team,omitempty"`
	AwayTeam       string     `json:"away_team,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func fixtureStatusToDTO(rec fixturestatus.Record) fixtureStatusDTO {
	return fixtureStatusDTO{
		FixtureID:      rec.FixtureID,
		ScheduledAt:    rec.ScheduledAt,
		Status:         string(rec.Status),
		FirstAttemptAt: rec.FirstAttemptAt,
		LastAttemptAt:  rec.LastAttemptAt,
		AttemptCount:   rec.AttemptCount,
		LastError:      rec.LastError,
		League:         rec.League,
		HomeTeam:       rec.HomeTeam,
		AwayTeam:       rec.AwayTeam,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func (h *Handler) ListFixtureStatuses(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtureStatuses")
	defer span.End()

	if h.statuses == nil {
		writeError(ctx, w, fmt.Errorf("%w: fixture status store is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	filter, err := parseStatusListFilter(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.statuses.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list fixture statuses failed", "status", filter.Status, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]fixtureStatusDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, fixtureStatusToDTO(rec))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFixtureStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixtureStatus")
	defer span.End()

	if h.statuses == nil {
		writeError(ctx, w, fmt.Errorf("%w: fixture status store is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	rec, ok, err := h.statuses.Get(ctx, fixtureID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get fixture status failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: fixture %s has no status record", usecase.ErrNotFound, fixtureID))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, fixtureStatusToDTO(rec))
}

func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCacheStats")
	defer span.End()

	if h.cacheStats == nil {
		writeError(ctx, w, fmt.Errorf("%w: caching fetcher is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, h.cacheStats.Stats())
}

func parseStatusListFilter(r *http.Request) (fixturestatus.ListFilter, error) {
	query := r.URL.Query()
	filter := fixturestatus.ListFilter{Limit: defaultStatusListLimit}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := fixturestatus.ParseStatus(raw)
		if !ok {
			return fixturestatus.ListFilter{}, fmt.Errorf("%w: unknown status %q", usecase.ErrInvalidInput, raw)
		}
		if status == fixturestatus.StatusPending {
			return fixturestatus.ListFilter{}, fmt.Errorf("%w: pending fixtures have no status record", usecase.ErrInvalidInput)
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxStatusListLimit {
			return fixturestatus.ListFilter{}, fmt.Errorf("%w: limit must be between 1 and %d", usecase.ErrInvalidInput, maxStatusListLimit)
		}
		filter.Limit = limit
	}

	return filter, nil
}
