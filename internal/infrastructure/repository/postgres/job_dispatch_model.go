package postgres

import (
	"strings"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/jobscheduler"
)

const jobDispatchTable = "job_dispatches"

// jobDispatchRow is one dispatch lifecycle row. Only the stage named by
// Status carries a timestamp and trace ids; the upsert keeps earlier stages.
type jobDispatchRow struct {
	DispatchID       string     `db:"dispatch_id"`
	JobName          string     `db:"job_name"`
	JobPath          string     `db:"job_path"`
	Payload          string     `db:"payload"`
	Status           string     `db:"status"`
	SentAt           *time.Time `db:"sent_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	FailedAt         *time.Time `db:"failed_at"`
	LastError        *string    `db:"last_error"`
	SentTraceID      *string    `db:"sent_trace_id"`
	SentSpanID       *string    `db:"sent_span_id"`
	CompletedTraceID *string    `db:"completed_trace_id"`
	CompletedSpanID  *string    `db:"completed_span_id"`
	FailedTraceID    *string    `db:"failed_trace_id"`
	FailedSpanID     *string    `db:"failed_span_id"`
}

func jobDispatchRowFromEvent(event jobscheduler.DispatchEvent, payload string, now time.Time) jobDispatchRow {
	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = now.UTC()
	}

	row := jobDispatchRow{
		DispatchID: strings.TrimSpace(event.DispatchID),
		JobName:    defaultString(event.JobName, "unknown"),
		JobPath:    defaultString(event.JobPath, "/unknown"),
		Payload:    payload,
		Status:     string(event.Status),
	}

	traceID := optionalString(event.TraceID)
	spanID := optionalString(event.SpanID)
	switch event.Status {
	case jobscheduler.StatusSent:
		row.SentAt, row.SentTraceID, row.SentSpanID = &occurredAt, traceID, spanID
	case jobscheduler.StatusCompleted:
		row.CompletedAt, row.CompletedTraceID, row.CompletedSpanID = &occurredAt, traceID, spanID
	case jobscheduler.StatusFailed:
		row.FailedAt, row.FailedTraceID, row.FailedSpanID = &occurredAt, traceID, spanID
		row.LastError = optionalString(event.ErrorMessage)
	}
	return row
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
