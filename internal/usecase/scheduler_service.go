package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxFixturesPerPass = 5

// Ranker orders candidates by priority. It may drop candidates.
type Ranker interface {
	Rank(items []fixture.Summary) []fixture.Summary
}

type SchedulerConfig struct {
	Window fixture.Window
	// MaxFixturesPerPass caps the ids returned per call; <= 0 disables the cap.
	MaxFixturesPerPass int
}

type FixtureScheduler struct {
	store  *FixtureStatusStore
	cfg    SchedulerConfig
	logger *logging.Logger
}

func NewFixtureScheduler(store *FixtureStatusStore, cfg SchedulerConfig, logger *logging.Logger) *FixtureScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Window.Before <= 0 && cfg.Window.After <= 0 {
		cfg.Window = fixture.DefaultWindow()
	}
	return &FixtureScheduler{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

type scheduleOptions struct {
	ranker          Ranker
	limit           int
	budget          *quota.Budget
	callsPerFixture int
}

type ScheduleOption func(*scheduleOptions)

func WithRanker(r Ranker) ScheduleOption {
	return func(o *scheduleOptions) {
		o.ranker = r
	}
}

// WithLimit overrides the configured cap; n <= 0 removes it.
func WithLimit(n int) ScheduleOption {
	return func(o *scheduleOptions) {
		o.limit = n
	}
}

// WithScheduleBudget caps the set to what the budget can pay for, at
// callsPerFixture provider calls per fixture.
func WithScheduleBudget(b *quota.Budget, callsPerFixture int) ScheduleOption {
	return func(o *scheduleOptions) {
		o.budget = b
		o.callsPerFixture = callsPerFixture
	}
}

func (s *FixtureScheduler) Window() fixture.Window {
	return s.cfg.Window
}

// GetActionableFixtures filters candidates by window and eligibility, moves the
// survivors to in_progress and returns their ids in priority order. The
// eligibility check and the transition happen in one atomic store update: if
// the store fails, nothing is transitioned and the error is returned.
func (s *FixtureScheduler) GetActionableFixtures(ctx context.Context, now time.Time, candidates []fixture.Summary, opts ...ScheduleOption) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureScheduler.GetActionableFixtures", attribute.Int("candidate_count", len(candidates)))
	defer span.End()

	options := scheduleOptions{limit: s.cfg.MaxFixturesPerPass}
	for _, opt := range opts {
		opt(&options)
	}

	// Row stores keep microseconds; claims must compare equal after a round trip.
	now = now.UTC().Truncate(time.Microsecond)

	inWindow := make([]fixture.Summary, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, item := range candidates {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		if !s.cfg.Window.InWindow(now, item.KickoffAt) {
			continue
		}
		inWindow = append(inWindow, item)
	}
	if options.ranker != nil {
		inWindow = options.ranker.Rank(inWindow)
	}

	limit := capFor(options)
	if len(inWindow) == 0 || limit == 0 {
		if limit == 0 && len(inWindow) > 0 {
			s.logger.WarnContext(ctx, "provider budget cannot cover any fixture, nothing scheduled",
				"in_window", len(inWindow),
				"budget", options.budget.Snapshot(),
			)
		}
		return []string{}, nil
	}

	byID := make(map[string]fixture.Summary, len(inWindow))
	ids := make([]string, 0, len(inWindow))
	for _, item := range inWindow {
		byID[item.ID] = item
		ids = append(ids, item.ID)
	}

	policy := s.store.Policy()
	selected := make([]string, 0, len(ids))
	_, err := s.store.Update(ctx, ids, func(id string, cur fixturestatus.Record, exists bool) (fixturestatus.Record, bool, error) {
		if limit > 0 && len(selected) >= limit {
			return cur, false, nil
		}
		if claimedAt(cur, exists, now) {
			selected = append(selected, id)
			return cur, false, nil
		}
		if !policy.IsProcessable(cur, exists, now) {
			return cur, false, nil
		}

		item := byID[id]
		if policy.IsStale(cur, now) {
			s.logger.WarnContext(ctx, "recovering stale in_progress fixture",
				"fixture_id", id,
				"last_attempt_at", cur.LastAttemptAt,
				"attempt_count", cur.AttemptCount,
			)
		}
		selected = append(selected, id)
		return policy.Begin(cur, exists, fixturestatus.Candidate{
			FixtureID:   id,
			ScheduledAt: item.KickoffAt,
			League:      item.League,
			HomeTeam:    item.HomeTeam,
			AwayTeam:    item.AwayTeam,
		}, now), true, nil
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("actionable_count", len(selected)))
	s.logger.InfoContext(ctx, "actionable fixtures selected",
		"candidates", len(candidates),
		"in_window", len(inWindow),
		"selected", len(selected),
		"limit", limit,
	)
	return selected, nil
}

// claimedAt is true for a row this scheduler moved to in_progress at exactly
// now, so a repeated call within the same instant yields the same set.
func claimedAt(rec fixturestatus.Record, exists bool, now time.Time) bool {
	return exists &&
		rec.Status == fixturestatus.StatusInProgress &&
		rec.LastAttemptAt != nil &&
		rec.LastAttemptAt.Equal(now)
}

// capFor returns -1 for no cap.
func capFor(o scheduleOptions) int {
	limit := -1
	if o.limit > 0 {
		limit = o.limit
	}
	if o.budget != nil {
		affordable := o.budget.Affordable(o.callsPerFixture)
		if limit < 0 || affordable < limit {
			limit = affordable
		}
	}
	return limit
}
