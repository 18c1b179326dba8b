package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultWarmConcurrency = 3

// SquadProvider reads squads and player details through the caching fetcher,
// charging budget only for real provider calls.
type SquadProvider interface {
	FetchSquad(ctx context.Context, teamID string, budget *quota.Budget) ([]string, error)
	FetchPlayer(ctx context.Context, playerID string, season int, budget *quota.Budget) error
}

type WarmTeam struct {
	ID   string
	Name string
}

type WarmConfig struct {
	Enabled bool
	Teams   []WarmTeam
	// Season 0 means the season of the current date.
	Season      int
	Concurrency int
	// Threshold is the remaining quota at or below which warming is skipped.
	Threshold int
}

type WarmResult struct {
	Skipped          bool           `json:"skipped"`
	Reason           string         `json:"reason,omitempty"`
	TeamsProcessed   int            `json:"teams_processed"`
	PlayersProcessed int            `json:"players_processed"`
	Errors           int            `json:"errors"`
	Budget           quota.Snapshot `json:"budget"`
}

type CacheWarmer struct {
	provider     SquadProvider
	quota        quota.Source
	dispatchRepo jobscheduler.Repository
	cfg          WarmConfig
	logger       *logging.Logger
	now          func() time.Time
}

func NewCacheWarmer(provider SquadProvider, quotaSource quota.Source, dispatchRepo jobscheduler.Repository, cfg WarmConfig, logger *logging.Logger) *CacheWarmer {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultWarmConcurrency
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = 0
	}
	cfg.Teams = dedupeTeams(cfg.Teams)
	return &CacheWarmer{
		provider:     provider,
		quota:        quotaSource,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// WarmCache opens a budget from the provider quota and runs the warmer. An
// unreadable quota skips the run.
func (w *CacheWarmer) WarmCache(ctx context.Context, dispatchID string) (WarmResult, error) {
	if !w.cfg.Enabled {
		return WarmResult{Skipped: true, Reason: "cache warming disabled"}, nil
	}
	if w.quota == nil {
		return w.Run(ctx, quota.Unlimited())
	}

	status, err := w.quota.FetchQuotaStatus(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "provider quota status unavailable, skipping cache warming", "error", err)
		return WarmResult{Skipped: true, Reason: "quota status unavailable"}, nil
	}
	result, err := w.Run(ctx, status.Budget(w.cfg.Threshold))
	w.recordDispatch(ctx, dispatchID, result, err)
	return result, err
}

func (w *CacheWarmer) Run(ctx context.Context, budget *quota.Budget) (WarmResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CacheWarmer.Run", attribute.Int("team_count", len(w.cfg.Teams)))
	defer span.End()

	if !w.cfg.Enabled {
		return WarmResult{Skipped: true, Reason: "cache warming disabled"}, nil
	}
	if budget.Exhausted() {
		w.logger.InfoContext(ctx, "quota at or below warming threshold, skipping", "budget", budget.Snapshot())
		return WarmResult{Skipped: true, Reason: "quota below threshold", Budget: budget.Snapshot()}, nil
	}

	season := w.cfg.Season
	if season <= 0 {
		season = fixture.SeasonFor(w.now().UTC())
	}

	var (
		teams    atomic.Int32
		players  atomic.Int32
		failures atomic.Int32
		seen     sync.Map
	)

	p := pool.New().WithMaxGoroutines(w.cfg.Concurrency)
	for _, team := range w.cfg.Teams {
		p.Go(func() {
			if ctx.Err() != nil || budget.Exhausted() {
				return
			}
			playerIDs, err := w.provider.FetchSquad(ctx, team.ID, budget)
			if err != nil {
				if !errors.Is(err, quota.ErrExhausted) {
					failures.Add(1)
					w.logger.WarnContext(ctx, "warm squad failed", "team_id", team.ID, "team", team.Name, "error", err)
				}
				return
			}
			teams.Add(1)

			for _, playerID := range playerIDs {
				if _, dup := seen.LoadOrStore(playerID, struct{}{}); dup {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				err := w.provider.FetchPlayer(ctx, playerID, season, budget)
				if errors.Is(err, quota.ErrExhausted) {
					return
				}
				if err != nil {
					failures.Add(1)
					w.logger.WarnContext(ctx, "warm player failed", "player_id", playerID, "team_id", team.ID, "error", err)
					continue
				}
				players.Add(1)
			}
		})
	}
	p.Wait()

	result := WarmResult{
		TeamsProcessed:   int(teams.Load()),
		PlayersProcessed: int(players.Load()),
		Errors:           int(failures.Load()),
		Budget:           budget.Snapshot(),
	}
	if err := ctx.Err(); err != nil {
		recordSpanError(span, err)
		return result, err
	}
	w.logger.InfoContext(ctx, "cache warming finished",
		"season", season,
		"teams", result.TeamsProcessed,
		"players", result.PlayersProcessed,
		"errors", result.Errors,
		"budget", result.Budget,
	)
	return result, nil
}

func (w *CacheWarmer) recordDispatch(ctx context.Context, dispatchID string, result WarmResult, err error) {
	dispatchID = strings.TrimSpace(dispatchID)
	if w.dispatchRepo == nil || dispatchID == "" {
		return
	}
	event := jobscheduler.DispatchEvent{
		DispatchID: dispatchID,
		JobName:    jobscheduler.JobWarmCache,
		JobPath:    WarmCachePath,
		Status:     jobscheduler.StatusCompleted,
		Payload: map[string]any{
			"teams":   result.TeamsProcessed,
			"players": result.PlayersProcessed,
			"skipped": result.Skipped,
		},
		OccurredAt: w.now().UTC(),
	}
	if err != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
	}
	event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	if err := w.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "record warm-cache dispatch event failed", "dispatch_id", dispatchID, "error", err)
	}
}

func dedupeTeams(teams []WarmTeam) []WarmTeam {
	out := make([]WarmTeam, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		team.ID = strings.TrimSpace(team.ID)
		if team.ID == "" {
			continue
		}
		if _, dup := seen[team.ID]; dup {
			continue
		}
		seen[team.ID] = struct{}{}
		out = append(out, team)
	}
	return out
}
