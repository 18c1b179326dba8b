package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/resilience"
	"go.opentelemetry.io/otel/attribute"
)

// FixtureStatusStore guards a fixturestatus.Repository with per-fixture locks
// and applies retention on every write.
type FixtureStatusStore struct {
	repo   fixturestatus.Repository
	policy fixturestatus.Policy
	locks  resilience.KeyedMutex
	logger *logging.Logger
	now    func() time.Time
}

func NewFixtureStatusStore(repo fixturestatus.Repository, policy fixturestatus.Policy, logger *logging.Logger) *FixtureStatusStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &FixtureStatusStore{
		repo:   repo,
		policy: policy.Normalize(),
		logger: logger,
		now:    time.Now,
	}
}

func (s *FixtureStatusStore) Policy() fixturestatus.Policy {
	return s.policy
}

func (s *FixtureStatusStore) Get(ctx context.Context, fixtureID string) (fixturestatus.Record, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureStatusStore.Get", attribute.String("fixture_id", fixtureID))
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return fixturestatus.Record{}, false, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	rec, ok, err := s.repo.Get(ctx, fixtureID)
	if err != nil {
		err = fmt.Errorf("%w: get fixture=%s: %w", ErrStatusStoreUnavailable, fixtureID, err)
		recordSpanError(span, err)
		return fixturestatus.Record{}, false, err
	}
	return rec, ok, nil
}

func (s *FixtureStatusStore) List(ctx context.Context, filter fixturestatus.ListFilter) ([]fixturestatus.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureStatusStore.List")
	defer span.End()

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		err = fmt.Errorf("%w: list: %w", ErrStatusStoreUnavailable, err)
		recordSpanError(span, err)
		return nil, err
	}
	return items, nil
}

func (s *FixtureStatusStore) IsProcessable(ctx context.Context, fixtureID string, now time.Time) (bool, error) {
	rec, exists, err := s.Get(ctx, fixtureID)
	if err != nil {
		return false, err
	}
	return s.policy.IsProcessable(rec, exists, now), nil
}

// Update runs fn for each id while holding their locks. Errors returned by fn
// pass through untouched; any other failure is reported as ErrStatusStoreUnavailable.
func (s *FixtureStatusStore) Update(ctx context.Context, fixtureIDs []string, fn fixturestatus.UpdateFunc) ([]fixturestatus.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureStatusStore.Update", attribute.Int("fixture_count", len(fixtureIDs)))
	defer span.End()

	if len(fixtureIDs) == 0 {
		return nil, nil
	}

	unlock := s.locks.Lock(fixtureIDs...)
	defer unlock()

	var fnErr error
	guarded := func(id string, cur fixturestatus.Record, exists bool) (fixturestatus.Record, bool, error) {
		rec, write, err := fn(id, cur, exists)
		if err != nil {
			fnErr = err
		}
		return rec, write, err
	}

	written, err := s.repo.Update(ctx, fixtureIDs, s.policy.PruneBefore(s.now()), guarded)
	if err != nil {
		if fnErr == nil {
			err = fmt.Errorf("%w: %w", ErrStatusStoreUnavailable, err)
		}
		recordSpanError(span, err)
		return nil, err
	}
	return written, nil
}
