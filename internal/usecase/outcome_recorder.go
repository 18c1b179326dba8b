package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutcomeRecorder folds enrichment outcomes into the status store.
type OutcomeRecorder struct {
	store    *FixtureStatusStore
	logger   *logging.Logger
	now      func() time.Time
	outcomes metric.Int64Counter
}

func NewOutcomeRecorder(store *FixtureStatusStore, logger *logging.Logger) *OutcomeRecorder {
	if logger == nil {
		logger = logging.Default()
	}
	r := &OutcomeRecorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	if counter, err := otel.Meter("fixture-scheduler/internal/usecase").Int64Counter("fixture_scheduler.outcomes",
		metric.WithDescription("Recorded enrichment outcomes by result"),
		metric.WithUnit("{fixture}")); err == nil {
		r.outcomes = counter
	}
	return r
}

// Record applies outcome to an in_progress fixture. A missing row maps to
// ErrNotFound; a complete or otherwise settled row to ErrInvalidInput.
func (r *OutcomeRecorder) Record(ctx context.Context, fixtureID string, outcome fixturestatus.Outcome) (fixturestatus.Record, error) {
	name := fixturestatus.OutcomeName(outcome)
	ctx, span := startUsecaseSpan(ctx, "usecase.OutcomeRecorder.Record",
		attribute.String("fixture_id", fixtureID),
		attribute.String("outcome", name),
	)
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return fixturestatus.Record{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}
	if outcome == nil {
		return fixturestatus.Record{}, fmt.Errorf("%w: outcome is required", ErrInvalidInput)
	}

	policy := r.store.Policy()
	now := r.now().UTC()
	written, err := r.store.Update(ctx, []string{fixtureID}, func(_ string, cur fixturestatus.Record, exists bool) (fixturestatus.Record, bool, error) {
		next, err := policy.Apply(cur, exists, outcome, now)
		if err != nil {
			return fixturestatus.Record{}, false, err
		}
		return next, true, nil
	})
	if err != nil {
		recordSpanError(span, err)
		return fixturestatus.Record{}, mapRecordError(fixtureID, err)
	}
	if len(written) != 1 {
		return fixturestatus.Record{}, fmt.Errorf("%w: record fixture=%s wrote %d rows", ErrStatusStoreUnavailable, fixtureID, len(written))
	}

	rec := written[0]
	if r.outcomes != nil {
		r.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", name)))
	}

	switch o := outcome.(type) {
	case fixturestatus.Success:
		r.logger.InfoContext(ctx, "fixture completed", "fixture_id", fixtureID)
	case fixturestatus.Partial:
		r.logger.InfoContext(ctx, "fixture partially processed, will retry", "fixture_id", fixtureID, "reason", o.Message())
	case fixturestatus.Failure:
		level := r.logger.WarnContext
		if rec.AttemptCount >= policy.MaxRetries {
			level = r.logger.ErrorContext
		}
		level(ctx, "fixture processing failed",
			"fixture_id", fixtureID,
			"attempt_count", rec.AttemptCount,
			"max_retries", policy.MaxRetries,
			"error", o.Message(),
		)
	}
	return rec, nil
}

func mapRecordError(fixtureID string, err error) error {
	switch {
	case errors.Is(err, fixturestatus.ErrRecordNotFound):
		return fmt.Errorf("%w: fixture=%s: %w", ErrNotFound, fixtureID, err)
	case errors.Is(err, fixturestatus.ErrTerminal),
		errors.Is(err, fixturestatus.ErrNotInProgress):
		return fmt.Errorf("fixture=%s: %w", fixtureID, err)
	case errors.Is(err, fixturestatus.ErrUnknownOutcome):
		return fmt.Errorf("%w: fixture=%s: %w", ErrInvalidInput, fixtureID, err)
	default:
		return err
	}
}
