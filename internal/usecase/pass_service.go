package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/quota"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/id"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RunPassPath   = "/v1/internal/jobs/run-pass"
	WarmCachePath = "/v1/internal/jobs/warm-cache"

	defaultPassWorkers       = 4
	defaultCallsPerFixture   = 4
	defaultEnrichmentTimeout = 10 * time.Minute
	defaultPassInterval      = 3 * time.Hour
)

// Enricher runs the per-fixture pipeline. It reports every result, including
// errors, as an Outcome.
type Enricher interface {
	RunEnrichment(ctx context.Context, fixtureID string) fixturestatus.Outcome
}

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type PassConfig struct {
	MaxFixturesPerPass int
	// CallsPerFixture is the provider request estimate for one enrichment run.
	CallsPerFixture   int
	Workers           int
	EnrichmentTimeout time.Duration
	PassInterval      time.Duration
	QuotaReserve      int
}

type PassDependencies struct {
	Source       fixture.Source
	Quota        quota.Source
	Scheduler    *FixtureScheduler
	Recorder     *OutcomeRecorder
	Enricher     Enricher
	Ranker       Ranker
	Queue        JobQueue
	DispatchRepo jobscheduler.Repository
	IDs          id.Generator
}

type PassInput struct {
	DispatchID  string
	MaxFixtures int
	EnqueueNext bool
}

type PassFixtureResult struct {
	FixtureID    string `json:"fixture_id"`
	Outcome      string `json:"outcome"`
	Status       string `json:"status,omitempty"`
	AttemptCount int    `json:"attempt_count"`
	Message      string `json:"message,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

type PassResult struct {
	RunID            string              `json:"run_id"`
	DispatchID       string              `json:"dispatch_id"`
	StartedAt        time.Time           `json:"started_at"`
	CandidateCount   int                 `json:"candidate_count"`
	CancelledCount   int                 `json:"cancelled_count"`
	Selected         []string            `json:"selected"`
	CompletedCount   int                 `json:"completed_count"`
	PartialCount     int                 `json:"partial_count"`
	FailedCount      int                 `json:"failed_count"`
	RecordErrorCount int                 `json:"record_error_count"`
	Fixtures         []PassFixtureResult `json:"fixtures"`
	Budget           quota.Snapshot      `json:"budget"`
	NextDispatchID   string              `json:"next_dispatch_id,omitempty"`
}

// PassService runs one scheduling pass end to end. Only one pass runs at a
// time per process.
type PassService struct {
	source       fixture.Source
	quota        quota.Source
	scheduler    *FixtureScheduler
	recorder     *OutcomeRecorder
	enricher     Enricher
	ranker       Ranker
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	ids          id.Generator
	cfg          PassConfig
	logger       *logging.Logger
	now          func() time.Time
	running      atomic.Bool
	passes       metric.Int64Counter
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewPassService(deps PassDependencies, cfg PassConfig, logger *logging.Logger) *PassService {
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Queue == nil {
		deps.Queue = NewNoopJobQueue()
	}
	if deps.IDs == nil {
		deps.IDs = id.NewUUIDGenerator()
	}
	if cfg.MaxFixturesPerPass <= 0 {
		cfg.MaxFixturesPerPass = defaultMaxFixturesPerPass
	}
	if cfg.CallsPerFixture <= 0 {
		cfg.CallsPerFixture = defaultCallsPerFixture
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultPassWorkers
	}
	if cfg.EnrichmentTimeout <= 0 {
		cfg.EnrichmentTimeout = defaultEnrichmentTimeout
	}
	if cfg.PassInterval <= 0 {
		cfg.PassInterval = defaultPassInterval
	}
	if cfg.QuotaReserve < 0 {
		cfg.QuotaReserve = 0
	}

	s := &PassService{
		source:       deps.Source,
		quota:        deps.Quota,
		scheduler:    deps.Scheduler,
		recorder:     deps.Recorder,
		enricher:     deps.Enricher,
		ranker:       deps.Ranker,
		queue:        deps.Queue,
		dispatchRepo: deps.DispatchRepo,
		ids:          deps.IDs,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
	if counter, err := otel.Meter("fixture-scheduler/internal/usecase").Int64Counter("fixture_scheduler.passes",
		metric.WithDescription("Scheduling passes by result"),
		metric.WithUnit("{pass}")); err == nil {
		s.passes = counter
	}
	return s
}

func (s *PassService) Run(ctx context.Context, input PassInput) (PassResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return PassResult{}, ErrPassInProgress
	}
	defer s.running.Store(false)

	ctx, span := startUsecaseSpan(ctx, "usecase.PassService.Run")
	defer span.End()

	if input.MaxFixtures < 0 {
		return PassResult{}, fmt.Errorf("%w: max fixtures must be >= 0", ErrInvalidInput)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return PassResult{}, fmt.Errorf("generate pass run id: %w", err)
	}
	now := s.now().UTC()
	result := PassResult{
		RunID:      runID,
		DispatchID: strings.TrimSpace(input.DispatchID),
		StartedAt:  now,
		Selected:   []string{},
		Fixtures:   []PassFixtureResult{},
	}
	if result.DispatchID == "" {
		result.DispatchID = "run-pass-" + runID
	}
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("dispatch_id", result.DispatchID))

	fail := func(err error) (PassResult, error) {
		recordSpanError(span, err)
		s.countPass(ctx, "failed")
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   result.DispatchID,
			JobName:      jobscheduler.JobRunPass,
			JobPath:      RunPassPath,
			Status:       jobscheduler.StatusFailed,
			Payload:      map[string]any{"run_id": runID},
			ErrorMessage: err.Error(),
			OccurredAt:   s.now().UTC(),
		})
		return PassResult{}, err
	}

	budget := s.openBudget(ctx)

	from, to := s.scheduler.Window().CandidateRange(now)
	candidates, err := s.source.FetchCandidateFixtures(ctx, from, to)
	if err != nil {
		return fail(fmt.Errorf("%w: fetch candidate fixtures: %w", ErrDependencyUnavailable, err))
	}
	result.CandidateCount = len(candidates)

	active := make([]fixture.Summary, 0, len(candidates))
	for _, item := range candidates {
		if fixture.IsCancelledLikeStatus(item.Status) {
			result.CancelledCount++
			continue
		}
		active = append(active, item)
	}

	limit := s.cfg.MaxFixturesPerPass
	if input.MaxFixtures > 0 {
		limit = input.MaxFixtures
	}
	opts := []ScheduleOption{
		WithLimit(limit),
		WithScheduleBudget(budget, s.cfg.CallsPerFixture),
	}
	if s.ranker != nil {
		opts = append(opts, WithRanker(s.ranker))
	}

	ids, err := s.scheduler.GetActionableFixtures(ctx, now, active, opts...)
	if err != nil {
		return fail(err)
	}
	result.Selected = ids

	fixtures, err := s.enrichAll(ctx, ids, budget)
	if err != nil {
		return fail(err)
	}
	result.Fixtures = fixtures
	for _, item := range fixtures {
		switch item.Outcome {
		case string(fixturestatus.StatusComplete):
			result.CompletedCount++
		case string(fixturestatus.StatusPartial):
			result.PartialCount++
		case string(fixturestatus.StatusFailed):
			result.FailedCount++
		}
		if item.Status == "" {
			result.RecordErrorCount++
		}
	}
	result.Budget = budget.Snapshot()

	if input.EnqueueNext {
		next, err := s.enqueueNextPass(ctx, now)
		if err != nil {
			s.logger.WarnContext(ctx, "enqueue next pass failed", "run_id", runID, "error", err)
		}
		result.NextDispatchID = next
	}

	s.countPass(ctx, "completed")
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: result.DispatchID,
		JobName:    jobscheduler.JobRunPass,
		JobPath:    RunPassPath,
		Status:     jobscheduler.StatusCompleted,
		Payload: map[string]any{
			"run_id":    runID,
			"selected":  len(result.Selected),
			"completed": result.CompletedCount,
			"partial":   result.PartialCount,
			"failed":    result.FailedCount,
		},
		OccurredAt: s.now().UTC(),
	})
	s.logger.InfoContext(ctx, "scheduling pass finished",
		"run_id", runID,
		"candidates", result.CandidateCount,
		"cancelled", result.CancelledCount,
		"selected", len(result.Selected),
		"completed", result.CompletedCount,
		"partial", result.PartialCount,
		"failed", result.FailedCount,
		"record_errors", result.RecordErrorCount,
		"budget", result.Budget,
	)
	return result, nil
}

// openBudget falls back to an unlimited budget when the provider status is
// unavailable.
func (s *PassService) openBudget(ctx context.Context) *quota.Budget {
	if s.quota == nil {
		return quota.Unlimited()
	}
	status, err := s.quota.FetchQuotaStatus(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "provider quota status unavailable, running without budget", "error", err)
		return quota.Unlimited()
	}
	s.logger.InfoContext(ctx, "provider quota status",
		"limit_day", status.LimitDay,
		"current", status.Current,
		"remaining", status.Remaining(),
		"reserve", s.cfg.QuotaReserve,
	)
	return status.Budget(s.cfg.QuotaReserve)
}

func (s *PassService) enrichAll(ctx context.Context, ids []string, budget *quota.Budget) ([]PassFixtureResult, error) {
	results := make([]PassFixtureResult, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	workerCount := s.cfg.Workers
	if workerCount > len(ids) {
		workerCount = len(ids)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create enrichment worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for i, fixtureID := range ids {
		workers.Add(1)
		task := func() {
			defer workers.Done()
			results[i] = s.processFixture(ctx, fixtureID, budget)
		}
		if err := pool.Submit(task); err != nil {
			s.logger.WarnContext(ctx, "submit enrichment task failed, running inline", "fixture_id", fixtureID, "error", err)
			task()
		}
	}
	workers.Wait()
	return results, nil
}

func (s *PassService) processFixture(ctx context.Context, fixtureID string, budget *quota.Budget) PassFixtureResult {
	start := time.Now()
	var outcome fixturestatus.Outcome
	if !budget.TryConsume(s.cfg.CallsPerFixture) {
		outcome = fixturestatus.Partial{Reason: "provider quota exhausted before enrichment"}
	} else {
		outcome = s.runEnrichment(ctx, fixtureID)
	}

	row := PassFixtureResult{
		FixtureID: fixtureID,
		Outcome:   fixturestatus.OutcomeName(outcome),
	}
	switch o := outcome.(type) {
	case fixturestatus.Partial:
		row.Message = o.Message()
	case fixturestatus.Failure:
		row.Message = o.Message()
	}

	// A cancelled pass must still settle the rows it claimed.
	rec, err := s.recorder.Record(context.WithoutCancel(ctx), fixtureID, outcome)
	if err != nil {
		s.logger.ErrorContext(ctx, "record fixture outcome failed",
			"fixture_id", fixtureID,
			"outcome", row.Outcome,
			"error", err,
		)
		row.Message = err.Error()
	} else {
		row.Status = string(rec.Status)
		row.AttemptCount = rec.AttemptCount
	}
	row.DurationMs = time.Since(start).Milliseconds()
	return row
}

func (s *PassService) runEnrichment(ctx context.Context, fixtureID string) (outcome fixturestatus.Outcome) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EnrichmentTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "enrichment panicked", "fixture_id", fixtureID, "panic", r)
			outcome = fixturestatus.Failure{Err: fmt.Errorf("enrichment panicked: %v", r)}
		}
	}()

	if s.enricher == nil {
		return fixturestatus.Failure{Err: errors.New("enrichment pipeline is not configured")}
	}
	outcome = s.enricher.RunEnrichment(ctx, fixtureID)
	if outcome == nil {
		outcome = fixturestatus.Failure{Err: errors.New("enrichment returned no outcome")}
	}
	return outcome
}

func (s *PassService) enqueueNextPass(ctx context.Context, now time.Time) (string, error) {
	delay := s.cfg.PassInterval
	dedupID := dedupKey("run-pass", "scheduler", now.Add(delay), delay)
	payload := map[string]any{
		"dispatch_id":  dedupID,
		"enqueue_next": true,
	}
	if err := s.queue.Enqueue(ctx, RunPassPath, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      jobscheduler.JobRunPass,
			JobPath:      RunPassPath,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return "", fmt.Errorf("enqueue run-pass: %w", err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    jobscheduler.JobRunPass,
		JobPath:    RunPassPath,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return dedupID, nil
}

func (s *PassService) countPass(ctx context.Context, result string) {
	if s.passes == nil {
		return
	}
	s.passes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (s *PassService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	scope = sanitizeDedupSegment(scope)
	return prefix + "-" + scope + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}
