package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
)

func TestTeamPriorityRanker_Tier(t *testing.T) {
	t.Parallel()

	ranker := NewTeamPriorityRanker(TeamPriorityConfig{
		STeams: []string{"Manchester City"},
		ATeams: []string{"Arsenal", "Manchester United"},
	})

	tests := []struct {
		name string
		home string
		away string
		want Tier
	}{
		{name: "s team at home", home: "Manchester City", away: "Everton", want: TierS},
		{name: "s beats a", home: "Arsenal", away: "manchester city", want: TierS},
		{name: "a team away", home: "Everton", away: "Manchester United", want: TierA},
		{name: "unranked", home: "Everton", away: "Wolves", want: TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ranker.Tier(fixture.Summary{HomeTeam: tt.home, AwayTeam: tt.away})
			if got != tt.want {
				t.Fatalf("unexpected tier: got=%s want=%s", got, tt.want)
			}
		})
	}
}

func TestTeamPriorityRanker_RankOrdersByTierLeagueKickoff(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.April, 1, 19, 0, 0, 0, time.UTC)
	ranker := NewTeamPriorityRanker(TeamPriorityConfig{
		ATeams:           []string{"Chelsea", "Barcelona"},
		PreferredLeagues: []string{"2", "39"},
	})

	got := ranker.Rank([]fixture.Summary{
		{ID: "none", LeagueID: "2", HomeTeam: "Celtic", AwayTeam: "Benfica", KickoffAt: base},
		{ID: "laliga", LeagueID: "140", HomeTeam: "Barcelona", AwayTeam: "Getafe", KickoffAt: base},
		{ID: "epl-late", LeagueID: "39", HomeTeam: "Chelsea", AwayTeam: "Wolves", KickoffAt: base.Add(time.Hour)},
		{ID: "epl-early", LeagueID: "39", HomeTeam: "Chelsea", AwayTeam: "Spurs", KickoffAt: base},
		{ID: "cl", LeagueID: "2", HomeTeam: "Barcelona", AwayTeam: "Inter", KickoffAt: base.Add(2 * time.Hour)},
	})

	want := []string{"cl", "epl-early", "epl-late", "laliga", "none"}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("unexpected order at %d: got=%s want=%s", i, got[i].ID, want[i])
		}
	}
}

func TestTeamPriorityRanker_DropUnranked(t *testing.T) {
	t.Parallel()

	ranker := NewTeamPriorityRanker(TeamPriorityConfig{
		STeams:       []string{"Manchester City"},
		DropUnranked: true,
	})

	got := ranker.Rank([]fixture.Summary{
		{ID: "1", HomeTeam: "Brentford", AwayTeam: "Fulham"},
		{ID: "2", HomeTeam: "Manchester City", AwayTeam: "Fulham"},
	})
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected only ranked fixture, got %+v", got)
	}
}
