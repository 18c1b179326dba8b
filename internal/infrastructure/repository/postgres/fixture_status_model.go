package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	qb "github.com/riskibarqy/fixture-scheduler/internal/platform/querybuilder"
)

const fixtureStatusTable = "fixture_statuses"

var fixtureStatusColumns = qb.MustColumns(fixtureStatusTableModel{})

type fixtureStatusTableModel struct {
	FixtureID      string         `db:"fixture_id"`
	ScheduledAt    time.Time      `db:"scheduled_at"`
	Status         string         `db:"status"`
	FirstAttemptAt sql.NullTime   `db:"first_attempt_at"`
	LastAttemptAt  sql.NullTime   `db:"last_attempt_at"`
	AttemptCount   int            `db:"attempt_count"`
	LastError      sql.NullString `db:"last_error"`
	League         string         `db:"league"`
	HomeTeam       string         `db:"home_team"`
	AwayTeam       string         `db:"away_team"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func fixtureStatusModelFromRecord(rec fixturestatus.Record) fixtureStatusTableModel {
	updatedAt := rec.UpdatedAt.UTC()
	if rec.UpdatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return fixtureStatusTableModel{
		FixtureID:      rec.FixtureID,
		ScheduledAt:    rec.ScheduledAt.UTC(),
		Status:         string(rec.Status),
		FirstAttemptAt: timePtrToNull(rec.FirstAttemptAt),
		LastAttemptAt:  timePtrToNull(rec.LastAttemptAt),
		AttemptCount:   rec.AttemptCount,
		LastError:      stringToNull(rec.LastError),
		League:         rec.League,
		HomeTeam:       rec.HomeTeam,
		AwayTeam:       rec.AwayTeam,
		UpdatedAt:      updatedAt,
	}
}

func (m fixtureStatusTableModel) toRecord() fixturestatus.Record {
	return fixturestatus.Record{
		FixtureID:      m.FixtureID,
		ScheduledAt:    m.ScheduledAt.UTC(),
		Status:         fixturestatus.Status(m.Status),
		FirstAttemptAt: nullTimePtr(m.FirstAttemptAt),
		LastAttemptAt:  nullTimePtr(m.LastAttemptAt),
		AttemptCount:   m.AttemptCount,
		LastError:      nullStringValue(m.LastError),
		League:         m.League,
		HomeTeam:       m.HomeTeam,
		AwayTeam:       m.AwayTeam,
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}
