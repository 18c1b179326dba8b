package fixturestatus

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultRetention  = 30 * 24 * time.Hour
	DefaultStaleAfter = 3 * time.Hour
)

var (
	ErrRecordNotFound = errors.New("fixture status not found")
	ErrTerminal       = errors.New("fixture status is complete")
	ErrNotInProgress  = errors.New("fixture status is not in progress")
	ErrUnknownOutcome = errors.New("unknown outcome")
)

// Policy holds the retry and retention parameters of the state machine.
type Policy struct {
	MaxRetries int
	Retention  time.Duration
	// StaleAfter is how long an in_progress row may sit before it is treated
	// as an interrupted run. Zero disables recovery.
	StaleAfter time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Retention:  DefaultRetention,
		StaleAfter: DefaultStaleAfter,
	}
}

func (p Policy) Normalize() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.Retention <= 0 {
		p.Retention = DefaultRetention
	}
	if p.StaleAfter < 0 {
		p.StaleAfter = 0
	}
	return p
}

// IsProcessable reports whether a fixture may be (re)scheduled.
func (p Policy) IsProcessable(rec Record, exists bool, now time.Time) bool {
	if !exists {
		return true
	}

	switch rec.Status {
	case StatusPartial:
		return true
	case StatusFailed:
		return rec.AttemptCount < p.MaxRetries
	case StatusInProgress:
		// An interrupted run counts as failed, without consuming an attempt.
		return p.IsStale(rec, now) && rec.AttemptCount < p.MaxRetries
	default:
		return false
	}
}

func (p Policy) IsStale(rec Record, now time.Time) bool {
	if rec.Status != StatusInProgress || p.StaleAfter <= 0 || rec.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*rec.LastAttemptAt) >= p.StaleAfter
}

// Begin moves a record into in_progress.
func (p Policy) Begin(rec Record, exists bool, candidate Candidate, now time.Time) Record {
	if !exists {
		rec = Record{FixtureID: candidate.FixtureID}
	}
	if !candidate.ScheduledAt.IsZero() {
		rec.ScheduledAt = candidate.ScheduledAt
	}
	if candidate.League != "" {
		rec.League = candidate.League
	}
	if candidate.HomeTeam != "" {
		rec.HomeTeam = candidate.HomeTeam
	}
	if candidate.AwayTeam != "" {
		rec.AwayTeam = candidate.AwayTeam
	}

	at := now
	if rec.FirstAttemptAt == nil {
		first := at
		rec.FirstAttemptAt = &first
	}
	rec.LastAttemptAt = &at
	rec.Status = StatusInProgress
	rec.UpdatedAt = now
	return rec
}

// Apply folds an outcome into an in_progress record.
func (p Policy) Apply(rec Record, exists bool, outcome Outcome, now time.Time) (Record, error) {
	if !exists {
		return Record{}, ErrRecordNotFound
	}
	if rec.Status == StatusComplete {
		return Record{}, ErrTerminal
	}
	if rec.Status != StatusInProgress {
		return Record{}, fmt.Errorf("%w: current status %s", ErrNotInProgress, rec.Status)
	}

	switch o := outcome.(type) {
	case Success:
		rec.Status = StatusComplete
		rec.LastError = ""
	case Partial:
		rec.Status = StatusPartial
		rec.LastError = o.Message()
	case Failure:
		rec.Status = StatusFailed
		rec.AttemptCount++
		rec.LastError = o.Message()
	default:
		return Record{}, fmt.Errorf("%w: %T", ErrUnknownOutcome, outcome)
	}

	rec.UpdatedAt = now
	return rec, nil
}

// PruneBefore returns the retention cutoff; rows scheduled before it are deleted.
func (p Policy) PruneBefore(now time.Time) time.Time {
	return now.Add(-p.Retention)
}
