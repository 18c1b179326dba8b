package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/riskibarqy/fixture-scheduler/internal/config"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/interfaces/httpapi"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
)

// App is the wired scheduler. Passes is nil when no enrichment pipeline is
// configured; Warmer is nil without an API-Football key.
type App struct {
	Server  *http.Server
	Passes  *usecase.PassService
	Warmer  *usecase.CacheWarmer
	Fetcher *cache.Fetcher
	Store   *usecase.FixtureStatusStore

	logger  *logging.Logger
	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{logger: logger}

	if err := a.wire(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, cfg config.Config) error {
	cacheStore, err := a.openCacheStore(ctx, cfg)
	if err != nil {
		return err
	}
	policy, err := loadTTLPolicy(cfg)
	if err != nil {
		return err
	}
	a.Fetcher = cache.NewFetcher(cacheStore, policy, cache.WithLogger(a.logger.Named("cache")))

	storage, err := a.openStorage(ctx, cfg, cacheStore)
	if err != nil {
		return err
	}

	a.Store = usecase.NewFixtureStatusStore(storage.statuses, fixturestatus.Policy{
		MaxRetries: cfg.SchedulerMaxRetries,
		Retention:  cfg.SchedulerRetention,
		StaleAfter: cfg.SchedulerStaleAfter,
	}, a.logger)
	scheduler := usecase.NewFixtureScheduler(a.Store, usecase.SchedulerConfig{
		Window:             fixture.Window{Before: cfg.SchedulerWindowBefore, After: cfg.SchedulerWindowAfter},
		MaxFixturesPerPass: cfg.SchedulerMaxFixtures,
	}, a.logger)
	recorder := usecase.NewOutcomeRecorder(a.Store, a.logger)
	ranker := usecase.NewTeamPriorityRanker(usecase.TeamPriorityConfig{
		STeams:           cfg.RankSTeams,
		ATeams:           cfg.RankATeams,
		PreferredLeagues: cfg.RankPreferredLeagues,
		DropUnranked:     cfg.RankDropUnranked,
	})

	providers, err := a.buildProviders(cfg)
	if err != nil {
		return err
	}

	if providers.enricher != nil {
		a.Passes = usecase.NewPassService(usecase.PassDependencies{
			Source:       providers.source,
			Quota:        providers.quota,
			Scheduler:    scheduler,
			Recorder:     recorder,
			Enricher:     providers.enricher,
			Ranker:       ranker,
			Queue:        providers.queue,
			DispatchRepo: storage.dispatches,
		}, usecase.PassConfig{
			MaxFixturesPerPass: cfg.SchedulerMaxFixtures,
			CallsPerFixture:    cfg.SchedulerCallsPerFixture,
			Workers:            cfg.SchedulerWorkers,
			EnrichmentTimeout:  cfg.SchedulerEnrichmentTimeout,
			PassInterval:       cfg.SchedulerPassInterval,
			QuotaReserve:       cfg.QuotaReserve,
		}, a.logger.Named("pass"))
	} else {
		a.logger.Warn("enrichment pipeline not configured, scheduling passes disabled", "reason", "ENRICHMENT_URL empty")
	}

	if providers.squads != nil {
		a.Warmer = usecase.NewCacheWarmer(providers.squads, providers.quota, storage.dispatches, usecase.WarmConfig{
			Enabled:     cfg.WarmEnabled,
			Teams:       warmTeams(cfg.WarmTeams),
			Season:      cfg.WarmSeason,
			Concurrency: cfg.WarmConcurrency,
			Threshold:   cfg.WarmThreshold,
		}, a.logger.Named("warmer"))
	}

	a.Server, err = a.newHTTPServer(cfg)
	return err
}

func (a *App) newHTTPServer(cfg config.Config) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	deps := httpapi.HandlerDependencies{
		Statuses:   a.Store,
		CacheStats: a.Fetcher,
	}
	if a.Passes != nil {
		deps.Passes = a.Passes
	}
	if a.Warmer != nil {
		deps.Warmer = a.Warmer
	}

	handler := httpapi.NewHandler(deps, a.logger.Named("http"))
	router := httpapi.NewRouter(handler, a.logger.Named("http"), cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases backends in reverse open order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func warmTeams(items []config.IDName) []usecase.WarmTeam {
	out := make([]usecase.WarmTeam, 0, len(items))
	for _, item := range items {
		out = append(out, usecase.WarmTeam{ID: strconv.Itoa(item.ID), Name: item.Name})
	}
	return out
}
