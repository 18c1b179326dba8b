package fixturestatus

import (
	"strings"
	"time"
)

type Status string

const (
	// StatusPending is never persisted; a fixture without a row is pending.
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusPartial    Status = "partial"
	StatusFailed     Status = "failed"
)

func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusComplete:
		return StatusComplete, true
	case StatusPartial:
		return StatusPartial, true
	case StatusFailed:
		return StatusFailed, true
	default:
		return "", false
	}
}

// Record is the durable processing state of one fixture.
type Record struct {
	FixtureID      string
	ScheduledAt    time.Time
	Status         Status
	FirstAttemptAt *time.Time
	LastAttemptAt  *time.Time
	AttemptCount   int
	LastError      string
	League         string
	HomeTeam       string
	AwayTeam       string
	UpdatedAt      time.Time
}

// Candidate carries the fixture fields copied onto a record when processing begins.
type Candidate struct {
	FixtureID   string
	ScheduledAt time.Time
	League      string
	HomeTeam    string
	AwayTeam    string
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Status Status
	Limit  int
}
