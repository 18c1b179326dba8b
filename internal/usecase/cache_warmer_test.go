package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/stretchr/testify/require"
)

type stubSquadProvider struct {
	mu      sync.Mutex
	squads  map[string][]string
	players []string
	seasons []int
	failFor map[string]bool
}

func (p *stubSquadProvider) FetchSquad(_ context.Context, teamID string, budget *quota.Budget) ([]string, error) {
	if err := budget.Consume(1); err != nil {
		return nil, err
	}
	if p.failFor[teamID] {
		return nil, errors.New("squad unavailable")
	}
	return p.squads[teamID], nil
}

func (p *stubSquadProvider) FetchPlayer(_ context.Context, playerID string, season int, budget *quota.Budget) error {
	if err := budget.Consume(1); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.players = append(p.players, playerID)
	p.seasons = append(p.seasons, season)
	return nil
}

func newTestWarmer(provider SquadProvider, cfg WarmConfig) *CacheWarmer {
	w := NewCacheWarmer(provider, nil, nil, cfg, nil)
	w.now = func() time.Time { return time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC) }
	return w
}

func TestCacheWarmer_SkipsWhenDisabled(t *testing.T) {
	t.Parallel()

	w := newTestWarmer(&stubSquadProvider{}, WarmConfig{Enabled: false})
	result, err := w.Run(context.Background(), quota.Unlimited())
	require.NoError(t, err)
	require.True(t, result.Skipped)
}

func TestCacheWarmer_SkipsAtThreshold(t *testing.T) {
	t.Parallel()

	provider := &stubSquadProvider{}
	w := newTestWarmer(provider, WarmConfig{Enabled: true, Teams: []WarmTeam{{ID: "40"}}})
	result, err := w.Run(context.Background(), quota.NewBudget(100, 30, 30))
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Empty(t, provider.players)
}

func TestCacheWarmer_WarmsSquadsAndPlayersOnce(t *testing.T) {
	t.Parallel()

	provider := &stubSquadProvider{
		squads: map[string][]string{
			"40": {"p1", "p2"},
			"42": {"p2", "p3"},
		},
		failFor: map[string]bool{"49": true},
	}
	w := newTestWarmer(provider, WarmConfig{
		Enabled: true,
		Teams:   []WarmTeam{{ID: "40", Name: "Liverpool"}, {ID: "42", Name: "Arsenal"}, {ID: "40", Name: "Liverpool"}, {ID: "49", Name: "Chelsea"}},
	})

	result, err := w.Run(context.Background(), quota.Unlimited())
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, 2, result.TeamsProcessed)
	require.Equal(t, 3, result.PlayersProcessed)
	require.Equal(t, 1, result.Errors)
	require.ElementsMatch(t, []string{"p1", "p2", "p3"}, provider.players)
	for _, season := range provider.seasons {
		require.Equal(t, 2025, season)
	}
}

func TestCacheWarmer_StopsWhenBudgetRunsOut(t *testing.T) {
	t.Parallel()

	provider := &stubSquadProvider{
		squads: map[string][]string{"40": {"p1", "p2", "p3", "p4", "p5"}},
	}
	w := newTestWarmer(provider, WarmConfig{Enabled: true, Season: 2024, Teams: []WarmTeam{{ID: "40"}}})

	budget := quota.NewBudget(100, 34, 30)
	result, err := w.Run(context.Background(), budget)
	require.NoError(t, err)
	require.Equal(t, 1, result.TeamsProcessed)
	require.Equal(t, 3, result.PlayersProcessed)
	require.Zero(t, result.Errors)
	require.Equal(t, 30, result.Budget.Remaining)
}
