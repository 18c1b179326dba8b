package postgres

import (
	"testing"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	qb "github.com/riskibarqy/fixture-scheduler/internal/platform/querybuilder"
)

func TestFixtureStatusModel_RoundTrip(t *testing.T) {
	kickoff := time.Date(2026, 2, 11, 19, 45, 0, 0, time.UTC)
	attempt := kickoff.Add(-30 * time.Minute)
	rec := fixturestatus.Record{
		FixtureID:      "1035037",
		ScheduledAt:    kickoff,
		Status:         fixturestatus.StatusFailed,
		FirstAttemptAt: &attempt,
		LastAttemptAt:  &attempt,
		AttemptCount:   2,
		LastError:      "timeout",
		HomeTeam:       "Arsenal",
		AwayTeam:       "Chelsea",
		UpdatedAt:      attempt,
	}

	got := fixtureStatusModelFromRecord(rec).toRecord()
	if got.FixtureID != rec.FixtureID || got.Status != rec.Status || got.AttemptCount != 2 || got.LastError != "timeout" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.FirstAttemptAt == nil || !got.FirstAttemptAt.Equal(attempt) {
		t.Fatalf("first_attempt_at lost: %v", got.FirstAttemptAt)
	}
}

func TestFixtureStatusModel_NullsForEmptyValues(t *testing.T) {
	model := fixtureStatusModelFromRecord(fixturestatus.Record{FixtureID: "1", Status: fixturestatus.StatusInProgress})
	if model.LastError.Valid || model.FirstAttemptAt.Valid {
		t.Fatalf("empty values must be stored as NULL: %+v", model)
	}
	if model.UpdatedAt.IsZero() {
		t.Fatalf("updated_at must default to now")
	}
}

func TestFixtureStatusUpsertQuery(t *testing.T) {
	query, args, err := qb.InsertModel(fixtureStatusTable, fixtureStatusModelFromRecord(fixturestatus.Record{FixtureID: "1"}), upsertFixtureStatusSuffix)
	if err != nil {
		t.Fatalf("build upsert query: %v", err)
	}
	if len(args) != len(fixtureStatusColumns) {
		t.Fatalf("args = %d, want %d", len(args), len(fixtureStatusColumns))
	}
	want := "INSERT INTO fixture_statuses (fixture_id, scheduled_at, status, first_attempt_at, last_attempt_at, attempt_count, last_error, league, home_team, away_team, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT"
	if len(query) < len(want) || query[:len(want)] != want {
		t.Fatalf("unexpected query prefix:\n%s", query)
	}
}
