package apifootball

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
)

type errorsEnvelope struct {
	Errors any `json:"errors"`
}

// checkEnvelopeErrors surfaces errors the provider reports with a 200 status,
// as either an object or a list.
func checkEnvelopeErrors(raw []byte) error {
	var env errorsEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	switch v := env.Errors.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		parts := make([]string, 0, len(v))
		for key, value := range v {
			parts = append(parts, fmt.Sprintf("%s: %v", key, value))
		}
		return fmt.Errorf("provider error: %s", strings.Join(parts, "; "))
	case []any:
		if len(v) == 0 {
			return nil
		}
		return fmt.Errorf("provider error: %v", v)
	default:
		return nil
	}
}

type fixturesEnvelope struct {
	Response []fixtureItem `json:"response"`
}

type fixtureItem struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Venue  struct {
			Name string `json:"name"`
		} `json:"venue"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"league"`
	Teams struct {
		Home teamRef `json:"home"`
		Away teamRef `json:"away"`
	} `json:"teams"`
}

type teamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (item fixtureItem) toSummary() (fixture.Summary, bool) {
	if item.Fixture.ID <= 0 {
		return fixture.Summary{}, false
	}
	kickoff, err := time.Parse(time.RFC3339, strings.TrimSpace(item.Fixture.Date))
	if err != nil {
		return fixture.Summary{}, false
	}
	return fixture.Summary{
		ID:         strconv.FormatInt(item.Fixture.ID, 10),
		LeagueID:   strconv.FormatInt(item.League.ID, 10),
		League:     item.League.Name,
		HomeTeam:   item.Teams.Home.Name,
		AwayTeam:   item.Teams.Away.Name,
		HomeTeamID: formatID(item.Teams.Home.ID),
		AwayTeamID: formatID(item.Teams.Away.ID),
		KickoffAt:  kickoff.UTC(),
		Venue:      item.Fixture.Venue.Name,
		Status:     fixture.NormalizeStatus(item.Fixture.Status.Short),
	}, true
}

func formatID(v int64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

type statusEnvelope struct {
	Response struct {
		Requests struct {
			Current  int `json:"current"`
			LimitDay int `json:"limit_day"`
		} `json:"requests"`
	} `json:"response"`
}

type squadEnvelope struct {
	Response []struct {
		Team    teamRef `json:"team"`
		Players []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"players"`
	} `json:"response"`
}
