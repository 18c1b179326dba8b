package apifootball

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
)

const dateLayout = "2006-01-02"

// FetchCandidateFixtures lists the configured leagues' fixtures kicking off in
// [from, to]. A league/date that fails is skipped; the call fails only when
// every request failed.
func (c *Client) FetchCandidateFixtures(ctx context.Context, from, to time.Time) ([]fixture.Summary, error) {
	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return nil, fmt.Errorf("invalid fixture range: from=%s to=%s", from, to)
	}

	out := make([]fixture.Summary, 0, 32)
	seen := make(map[string]struct{}, 32)
	var lastErr error
	requests, failures := 0, 0

	for day := truncateDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		season := strconv.Itoa(fixture.SeasonFor(day))
		for _, league := range c.leagues {
			requests++
			params := map[string]string{
				"date":   day.Format(dateLayout),
				"league": strconv.Itoa(league.ID),
				"season": season,
			}
			raw, err := c.get(ctx, cache.ResourceFixtures, "/fixtures", params, nil)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failures++
				lastErr = err
				c.logger.WarnContext(ctx, "fetch fixtures failed, skipping league",
					"league_id", league.ID,
					"date", params["date"],
					"error", err,
				)
				continue
			}

			var env fixturesEnvelope
			if err := sonic.Unmarshal(raw, &env); err != nil {
				failures++
				lastErr = fmt.Errorf("decode fixtures league=%d: %w", league.ID, err)
				continue
			}
			for _, item := range env.Response {
				summary, ok := item.toSummary()
				if !ok || summary.KickoffAt.Before(from) || summary.KickoffAt.After(to) {
					continue
				}
				if _, dup := seen[summary.ID]; dup {
					continue
				}
				seen[summary.ID] = struct{}{}
				out = append(out, summary)
			}
		}
	}

	if requests > 0 && failures == requests {
		return nil, fmt.Errorf("fetch candidate fixtures: %w", lastErr)
	}
	return out, nil
}

// FetchQuotaStatus reads the account's daily request counters. The status
// endpoint does not count against the quota.
func (c *Client) FetchQuotaStatus(ctx context.Context) (quota.Status, error) {
	raw, err := c.get(ctx, cache.ResourceStatus, "/status", nil, nil)
	if err != nil {
		return quota.Status{}, fmt.Errorf("fetch quota status: %w", err)
	}

	var env statusEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return quota.Status{}, fmt.Errorf("decode quota status: %w", err)
	}
	if env.Response.Requests.LimitDay <= 0 {
		return quota.Status{}, fmt.Errorf("quota status missing limit_day")
	}
	return quota.Status{
		LimitDay: env.Response.Requests.LimitDay,
		Current:  env.Response.Requests.Current,
	}, nil
}

func (c *Client) FetchSquad(ctx context.Context, teamID string, budget *quota.Budget) ([]string, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("team id is required")
	}

	raw, err := c.get(ctx, cache.ResourceSquads, "/players/squads", map[string]string{"team": teamID}, budget)
	if err != nil {
		return nil, fmt.Errorf("fetch squad team=%s: %w", teamID, err)
	}

	var env squadEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode squad team=%s: %w", teamID, err)
	}
	ids := make([]string, 0, 32)
	for _, squad := range env.Response {
		for _, player := range squad.Players {
			if player.ID > 0 {
				ids = append(ids, strconv.FormatInt(player.ID, 10))
			}
		}
	}
	return ids, nil
}

func (c *Client) FetchPlayer(ctx context.Context, playerID string, season int, budget *quota.Budget) error {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	params := map[string]string{"id": playerID}
	if season > 0 {
		params["season"] = strconv.Itoa(season)
	}
	if _, err := c.get(ctx, cache.ResourcePlayers, "/players", params, budget); err != nil {
		return fmt.Errorf("fetch player id=%s: %w", playerID, err)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
