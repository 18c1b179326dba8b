package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
)

type runPassRequest struct {
	DispatchID  string `json:"dispatch_id" validate:"omitempty,max=128"`
	MaxFixtures int    `json:"max_fixtures" validate:"omitempty,min=1,max=50"`
	EnqueueNext bool   `json:"enqueue_next"`
}

type warmCacheRequest struct {
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=128"`
}

func (h *Handler) RunPassJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPassJob")
	defer span.End()

	if h.passes == nil {
		writeError(ctx, w, fmt.Errorf("%w: pass service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req runPassRequest
	if err := decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	result, err := h.passes.Run(ctx, usecase.PassInput{
		DispatchID:  strings.TrimSpace(req.DispatchID),
		MaxFixtures: req.MaxFixtures,
		EnqueueNext: req.EnqueueNext,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run pass job failed", "dispatch_id", req.DispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunWarmCacheJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunWarmCacheJob")
	defer span.End()

	if h.warmer == nil {
		writeError(ctx, w, fmt.Errorf("%w: cache warmer is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req warmCacheRequest
	if err := decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	result, err := h.warmer.WarmCache(ctx, strings.TrimSpace(req.DispatchID))
	if err != nil {
		h.logger.WarnContext(ctx, "warm cache job failed", "dispatch_id", req.DispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

// decodeJobRequest accepts an empty body as the zero request.
func decodeJobRequest(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
