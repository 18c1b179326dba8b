package blob

import (
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
)

const documentVersion = 1

type statusDocument struct {
	Version   int         `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
	Fixtures  []statusRow `json:"fixtures"`
}

type statusRow struct {
	FixtureID      string     `json:"fixture_id"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         string     `json:"status"`
	FirstAttemptAt *time.Time `json:"first_attempt_at"`
	LastAttemptAt  *time.Time `json:"last_attempt_at"`
	AttemptCount   int        `json:"attempt_count"`
	LastError      *string    `json:"last_error"`
	League         string     `json:"league,omitempty"`
	HomeTeam       string     `json:"home_team,omitempty"`
	AwayTeam       string     `json:"away_team,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func rowFromRecord(rec fixturestatus.Record) statusRow {
	row := statusRow{
		FixtureID:      rec.FixtureID,
		ScheduledAt:    rec.ScheduledAt.UTC(),
		Status:         string(rec.Status),
		FirstAttemptAt: utcPtr(rec.FirstAttemptAt),
		LastAttemptAt:  utcPtr(rec.LastAttemptAt),
		AttemptCount:   rec.AttemptCount,
		League:         rec.League,
		HomeTeam:       rec.HomeTeam,
		AwayTeam:       rec.AwayTeam,
		UpdatedAt:      rec.UpdatedAt.UTC(),
	}
	if rec.LastError != "" {
		msg := rec.LastError
		row.LastError = &msg
	}
	return row
}

func (row statusRow) toRecord() fixturestatus.Record {
	rec := fixturestatus.Record{
		FixtureID:      row.FixtureID,
		ScheduledAt:    row.ScheduledAt,
		Status:         fixturestatus.Status(row.Status),
		FirstAttemptAt: row.FirstAttemptAt,
		LastAttemptAt:  row.LastAttemptAt,
		AttemptCount:   row.AttemptCount,
		League:         row.League,
		HomeTeam:       row.HomeTeam,
		AwayTeam:       row.AwayTeam,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.LastError != nil {
		rec.LastError = *row.LastError
	}
	return rec
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := v.UTC()
	return &out
}
