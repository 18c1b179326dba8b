package usecase

import (
	"sort"
	"strings"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
)

type Tier int

const (
	TierS Tier = iota
	TierA
	TierNone
)

func (t Tier) String() string {
	switch t {
	case TierS:
		return "S"
	case TierA:
		return "A"
	default:
		return "None"
	}
}

type TeamPriorityConfig struct {
	STeams []string
	ATeams []string
	// PreferredLeagues break ties inside a tier, earliest entry first.
	PreferredLeagues []string
	DropUnranked     bool
}

// TeamPriorityRanker orders fixtures by the best tier of either team, then by
// league preference, then by kickoff.
type TeamPriorityRanker struct {
	sTeams       []string
	aTeams       []string
	leagueOrder  map[string]int
	dropUnranked bool
}

func NewTeamPriorityRanker(cfg TeamPriorityConfig) *TeamPriorityRanker {
	order := make(map[string]int, len(cfg.PreferredLeagues))
	for i, league := range cfg.PreferredLeagues {
		key := strings.ToLower(strings.TrimSpace(league))
		if _, exists := order[key]; key != "" && !exists {
			order[key] = i
		}
	}
	return &TeamPriorityRanker{
		sTeams:       normalizeNames(cfg.STeams),
		aTeams:       normalizeNames(cfg.ATeams),
		leagueOrder:  order,
		dropUnranked: cfg.DropUnranked,
	}
}

func (r *TeamPriorityRanker) Tier(item fixture.Summary) Tier {
	home := strings.ToLower(item.HomeTeam)
	away := strings.ToLower(item.AwayTeam)
	if containsAny(home, r.sTeams) || containsAny(away, r.sTeams) {
		return TierS
	}
	if containsAny(home, r.aTeams) || containsAny(away, r.aTeams) {
		return TierA
	}
	return TierNone
}

func (r *TeamPriorityRanker) Rank(items []fixture.Summary) []fixture.Summary {
	out := make([]fixture.Summary, 0, len(items))
	for _, item := range items {
		if r.dropUnranked && r.Tier(item) == TierNone {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := r.Tier(out[i]), r.Tier(out[j])
		if ti != tj {
			return ti < tj
		}
		li, lj := r.leagueRank(out[i]), r.leagueRank(out[j])
		if li != lj {
			return li < lj
		}
		return out[i].KickoffAt.Before(out[j].KickoffAt)
	})
	return out
}

func (r *TeamPriorityRanker) leagueRank(item fixture.Summary) int {
	for _, key := range []string{item.League, item.LeagueID} {
		if rank, ok := r.leagueOrder[strings.ToLower(strings.TrimSpace(key))]; ok {
			return rank
		}
	}
	return len(r.leagueOrder)
}

func normalizeNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// containsAny matches by substring, so "Manchester City" also covers
// "Manchester City W".
func containsAny(name string, teams []string) bool {
	if name == "" {
		return false
	}
	for _, team := range teams {
		if strings.Contains(name, team) {
			return true
		}
	}
	return false
}
