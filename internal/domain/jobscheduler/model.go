package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

const (
	JobRunPass   = "run_pass"
	JobWarmCache = "warm_cache"
)

// DispatchEvent is one lifecycle step of a scheduler job run.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
