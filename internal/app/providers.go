package app

import (
	"fmt"

	"github.com/riskibarqy/fixture-scheduler/external/apifootball"
	"github.com/riskibarqy/fixture-scheduler/external/enrichment"
	"github.com/riskibarqy/fixture-scheduler/external/jobqueue"
	"github.com/riskibarqy/fixture-scheduler/internal/config"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/resilience"
	"github.com/riskibarqy/fixture-scheduler/internal/usecase"
)

// providers holds the outbound adapters. Interface fields stay nil, not typed
// nil, when an adapter is not configured.
type providers struct {
	source   fixture.Source
	quota    quota.Source
	squads   usecase.SquadProvider
	enricher usecase.Enricher
	queue    usecase.JobQueue
}

func (a *App) buildProviders(cfg config.Config) (providers, error) {
	out := providers{queue: usecase.NewNoopJobQueue()}

	if cfg.APIFootballKey != "" {
		client := apifootball.NewClient(apifootball.ClientConfig{
			BaseURL:           cfg.APIFootballBaseURL,
			APIKey:            cfg.APIFootballKey,
			Timeout:           cfg.APIFootballTimeout,
			MaxRetries:        cfg.APIFootballMaxRetries,
			RequestsPerMinute: cfg.APIFootballRequestsPerMinute,
			Leagues:           apiFootballLeagues(cfg.APIFootballLeagues),
			Fetcher:           a.Fetcher,
			Logger:            a.logger.Named("api-football"),
			CircuitBreaker:    circuitBreakerConfig(cfg.APIFootballCircuit),
		})
		out.source = client
		out.quota = client
		out.squads = client
	} else {
		a.logger.Warn("API_FOOTBALL_KEY empty, using an empty in-memory fixture source")
		out.source = memory.NewFixtureSource(nil)
	}

	if cfg.EnrichmentURL != "" {
		client, err := enrichment.NewClient(enrichment.ClientConfig{
			URL:            cfg.EnrichmentURL,
			Token:          cfg.EnrichmentToken,
			Timeout:        cfg.SchedulerEnrichmentTimeout,
			MaxConns:       cfg.EnrichmentMaxConns,
			Logger:         a.logger.Named("enrichment"),
			CircuitBreaker: circuitBreakerConfig(cfg.EnrichmentCircuit),
		})
		if err != nil {
			return providers{}, fmt.Errorf("build enrichment client: %w", err)
		}
		out.enricher = client
	}

	if cfg.QStashEnabled {
		publisher, err := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker:   circuitBreakerConfig(cfg.QStashCircuit),
		}, a.logger.Named("qstash"))
		if err != nil {
			return providers{}, fmt.Errorf("build qstash publisher: %w", err)
		}
		out.queue = publisher
	}

	return out, nil
}

func apiFootballLeagues(items []config.IDName) []apifootball.League {
	out := make([]apifootball.League, 0, len(items))
	for _, item := range items {
		out = append(out, apifootball.League{ID: item.ID, Name: item.Name})
	}
	return out
}

func circuitBreakerConfig(cfg config.CircuitBreaker) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          cfg.Enabled,
		FailureThreshold: cfg.FailureCount,
		OpenTimeout:      cfg.OpenTimeout,
		HalfOpenMaxReq:   cfg.HalfOpenMaxReq,
	}
}
