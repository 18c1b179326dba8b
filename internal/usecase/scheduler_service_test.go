package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/infrastructure/repository/memory"
	fixturestatusmock "github.com/riskibarqy/fixture-scheduler/internal/mocks/domain/fixturestatus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var kickoff = time.Date(2026, time.March, 14, 15, 0, 0, 0, time.UTC)

type schedulerHarness struct {
	repo      *memory.FixtureStatusRepository
	store     *FixtureStatusStore
	scheduler *FixtureScheduler
	recorder  *OutcomeRecorder
	clock     time.Time
}

func newSchedulerHarness(t *testing.T, seed ...fixturestatus.Record) *schedulerHarness {
	t.Helper()

	h := &schedulerHarness{
		repo:  memory.NewFixtureStatusRepository(seed...),
		clock: kickoff.Add(-30 * time.Minute),
	}
	h.store = NewFixtureStatusStore(h.repo, fixturestatus.DefaultPolicy(), nil)
	h.store.now = func() time.Time { return h.clock }
	h.scheduler = NewFixtureScheduler(h.store, SchedulerConfig{MaxFixturesPerPass: 5}, nil)
	h.recorder = NewOutcomeRecorder(h.store, nil)
	h.recorder.now = func() time.Time { return h.clock }
	return h
}

func (h *schedulerHarness) schedule(t *testing.T, candidates []fixture.Summary, opts ...ScheduleOption) []string {
	t.Helper()
	ids, err := h.scheduler.GetActionableFixtures(context.Background(), h.clock, candidates, opts...)
	require.NoError(t, err)
	return ids
}

func (h *schedulerHarness) record(t *testing.T, fixtureID string, outcome fixturestatus.Outcome) fixturestatus.Record {
	t.Helper()
	rec, err := h.recorder.Record(context.Background(), fixtureID, outcome)
	require.NoError(t, err)
	return rec
}

func summary(id string, at time.Time) fixture.Summary {
	return fixture.Summary{ID: id, KickoffAt: at, League: "Premier League", HomeTeam: "Arsenal", AwayTeam: "Chelsea"}
}

func TestFixtureScheduler_ExhaustsRetriesAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	candidates := []fixture.Summary{summary("1001", kickoff)}

	for attempt := 1; attempt <= 3; attempt++ {
		ids := h.schedule(t, candidates)
		require.Equal(t, []string{"1001"}, ids, "attempt %d", attempt)

		rec := h.record(t, "1001", fixturestatus.Failure{Err: errors.New("lineup endpoint timeout")})
		require.Equal(t, fixturestatus.StatusFailed, rec.Status)
		require.Equal(t, attempt, rec.AttemptCount)
		h.clock = h.clock.Add(3 * time.Hour)
	}

	ids := h.schedule(t, candidates)
	require.Empty(t, ids)

	rec, ok, err := h.store.Get(context.Background(), "1001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fixturestatus.StatusFailed, rec.Status)
	require.Equal(t, 3, rec.AttemptCount)
	require.Equal(t, "lineup endpoint timeout", rec.LastError)
}

func TestFixtureScheduler_PartialStaysEligibleWithoutCountingAttempts(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	candidates := []fixture.Summary{summary("2002", kickoff)}

	for run := 1; run <= 5; run++ {
		ids := h.schedule(t, candidates)
		require.Equal(t, []string{"2002"}, ids, "run %d", run)

		rec := h.record(t, "2002", fixturestatus.Partial{Reason: "lineups"})
		require.Equal(t, fixturestatus.StatusPartial, rec.Status)
		require.Equal(t, 0, rec.AttemptCount)
		require.Equal(t, "Missing: lineups", rec.LastError)
		h.clock = h.clock.Add(time.Hour)
	}
}

func TestFixtureScheduler_PrunesExpiredRowsOnNextWrite(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t, fixturestatus.Record{
		FixtureID:   "old",
		ScheduledAt: kickoff.Add(-31 * 24 * time.Hour),
		Status:      fixturestatus.StatusComplete,
	})

	_, ok, err := h.store.Get(context.Background(), "old")
	require.NoError(t, err)
	require.True(t, ok)

	ids := h.schedule(t, []fixture.Summary{summary("3003", kickoff)})
	require.Equal(t, []string{"3003"}, ids)

	_, ok, err = h.store.Get(context.Background(), "old")
	require.NoError(t, err)
	require.False(t, ok, "row past retention must be deleted on write")
}

func TestFixtureScheduler_RepeatCallAtSameInstantIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	candidates := []fixture.Summary{
		summary("a", kickoff),
		summary("b", kickoff.Add(-2*time.Hour)),
	}

	first := h.schedule(t, candidates)
	second := h.schedule(t, candidates)
	require.ElementsMatch(t, []string{"a", "b"}, first)
	require.Equal(t, first, second)

	rec, _, err := h.store.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, fixturestatus.StatusInProgress, rec.Status)
	require.Equal(t, 0, rec.AttemptCount)

	h.clock = h.clock.Add(time.Minute)
	require.Empty(t, h.schedule(t, candidates), "in_progress rows are not re-selected by a later pass")
}

func TestFixtureScheduler_RecoversStaleInProgress(t *testing.T) {
	t.Parallel()

	lastAttempt := kickoff.Add(-4 * time.Hour)
	h := newSchedulerHarness(t, fixturestatus.Record{
		FixtureID:     "stuck",
		ScheduledAt:   kickoff,
		Status:        fixturestatus.StatusInProgress,
		LastAttemptAt: &lastAttempt,
		AttemptCount:  1,
	})

	ids := h.schedule(t, []fixture.Summary{summary("stuck", kickoff)})
	require.Equal(t, []string{"stuck"}, ids)

	rec, _, err := h.store.Get(context.Background(), "stuck")
	require.NoError(t, err)
	require.Equal(t, 1, rec.AttemptCount, "stale recovery must not consume an attempt")
	require.True(t, rec.LastAttemptAt.Equal(h.clock))
}

func TestFixtureScheduler_FiltersWindowAndSkipsComplete(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t, fixturestatus.Record{
		FixtureID:   "done",
		ScheduledAt: kickoff,
		Status:      fixturestatus.StatusComplete,
	})

	ids := h.schedule(t, []fixture.Summary{
		summary("done", kickoff),
		summary("future", h.clock.Add(2*time.Hour)),
		summary("ancient", h.clock.Add(-25*time.Hour)),
		summary("soon", h.clock.Add(45*time.Minute)),
		summary("soon", h.clock.Add(45*time.Minute)),
		{ID: "  "},
	})
	require.Equal(t, []string{"soon"}, ids)
}

func TestFixtureScheduler_CapsByLimitAndBudget(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	candidates := make([]fixture.Summary, 0, 7)
	for i, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		candidates = append(candidates, summary(id, kickoff.Add(-time.Duration(i)*time.Minute)))
	}

	ids := h.schedule(t, candidates)
	require.Len(t, ids, 5)

	h.clock = h.clock.Add(time.Second)
	budget := quota.NewBudget(100, 40, 30)
	ids = h.schedule(t, candidates, WithScheduleBudget(budget, 4))
	require.Equal(t, []string{"6", "7"}, ids, "budget of 10 above reserve affords two fixtures at 4 calls")
}

func TestFixtureScheduler_ZeroBudgetSchedulesNothing(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	ids := h.schedule(t, []fixture.Summary{summary("x", kickoff)}, WithScheduleBudget(quota.NewBudget(100, 30, 30), 1))
	require.Empty(t, ids)

	_, ok, err := h.store.Get(context.Background(), "x")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFixtureScheduler_AppliesRankerOrder(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	ranker := NewTeamPriorityRanker(TeamPriorityConfig{
		STeams:           []string{"Manchester City"},
		ATeams:           []string{"Arsenal", "Liverpool"},
		PreferredLeagues: []string{"UEFA Champions League", "Premier League"},
	})
	candidates := []fixture.Summary{
		{ID: "burnley", KickoffAt: kickoff, League: "Premier League", HomeTeam: "Burnley", AwayTeam: "Fulham"},
		{ID: "arsenal-epl", KickoffAt: kickoff, League: "Premier League", HomeTeam: "Arsenal", AwayTeam: "Fulham"},
		{ID: "city", KickoffAt: kickoff, League: "Premier League", HomeTeam: "Brentford", AwayTeam: "Manchester City"},
		{ID: "liverpool-cl", KickoffAt: kickoff, League: "UEFA Champions League", HomeTeam: "Liverpool", AwayTeam: "PSV"},
	}

	ids := h.schedule(t, candidates, WithRanker(ranker), WithLimit(3))
	require.Equal(t, []string{"city", "liverpool-cl", "arsenal-epl"}, ids)
}

func TestFixtureScheduler_StoreFailureTransitionsNothing(t *testing.T) {
	t.Parallel()

	repo := fixturestatusmock.NewRepository(t)
	store := NewFixtureStatusStore(repo, fixturestatus.DefaultPolicy(), nil)
	scheduler := NewFixtureScheduler(store, SchedulerConfig{}, nil)

	repo.
		On("Update", mock.Anything, []string{"9"}, mock.AnythingOfType("time.Time"), mock.Anything).
		Return(nil, errors.New("connection refused")).
		Once()

	ids, err := scheduler.GetActionableFixtures(context.Background(), kickoff, []fixture.Summary{summary("9", kickoff)})
	require.ErrorIs(t, err, ErrStatusStoreUnavailable)
	require.Nil(t, ids)
}
