package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
)

var (
	pruneStmt  = regexp.QuoteMeta("DELETE FROM fixture_statuses WHERE scheduled_at < $1")
	lockStmt   = regexp.QuoteMeta("FROM fixture_statuses WHERE fixture_id IN ($1, $2) ORDER BY fixture_id FOR UPDATE")
	upsertStmt = regexp.QuoteMeta("INSERT INTO fixture_statuses (fixture_id, scheduled_at, status,") + ".*ON CONFLICT \\(fixture_id\\)"
)

func newMockRepository(t *testing.T) (*FixtureStatusRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewFixtureStatusRepository(sqlx.NewDb(db, "postgres")), mock
}

func lockedRows(at time.Time, fixtureIDs ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(fixtureStatusColumns)
	for _, id := range fixtureIDs {
		rows.AddRow(id, at, "partial", at, at, int64(1), "missing lineups", "Premier League", "Arsenal", "Chelsea", at)
	}
	return rows
}

func TestFixtureStatusRepository_UpdateCommitsBatchInOneTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pruneBefore := now.Add(-14 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(pruneStmt).WithArgs(pruneBefore).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(lockStmt).WithArgs("100", "200").WillReturnRows(lockedRows(now.Add(-time.Hour), "100"))
	mock.ExpectExec(upsertStmt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertStmt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	seen := map[string]bool{}
	written, err := repo.Update(context.Background(), []string{"100", "200"}, pruneBefore,
		func(id string, cur fixturestatus.Record, exists bool) (fixturestatus.Record, bool, error) {
			seen[id] = exists
			if exists && cur.Status != fixturestatus.StatusPartial {
				t.Errorf("fixture %s loaded with status %s", id, cur.Status)
			}
			cur.Status = fixturestatus.StatusInProgress
			cur.UpdatedAt = now
			return cur, true, nil
		})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !seen["100"] || seen["200"] {
		t.Fatalf("unexpected existence flags: %+v", seen)
	}
	if len(written) != 2 || written[1].FixtureID != "200" {
		t.Fatalf("unexpected written records: %+v", written)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statements out of order: %v", err)
	}
}

func TestFixtureStatusRepository_UpdateRollsBackWhenFuncFails(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	boom := errors.New("record is terminal")

	mock.ExpectBegin()
	mock.ExpectQuery(lockStmt).WithArgs("100", "200").WillReturnRows(lockedRows(now, "100", "200"))
	mock.ExpectExec(upsertStmt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	calls := 0
	_, err := repo.Update(context.Background(), []string{"100", "200"}, time.Time{},
		func(id string, cur fixturestatus.Record, exists bool) (fixturestatus.Record, bool, error) {
			calls++
			if id == "200" {
				return fixturestatus.Record{}, false, boom
			}
			return cur, true, nil
		})
	if !errors.Is(err, boom) {
		t.Fatalf("expected func error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected rollback without commit: %v", err)
	}
}

func TestFixtureStatusRepository_UpdateRollsBackWhenUpsertFails(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStmt).WithArgs("100", "200").WillReturnRows(lockedRows(now))
	mock.ExpectExec(upsertStmt).WillReturnError(errors.New("pq: deadlock detected"))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), []string{"100", "200"}, time.Time{},
		func(id string, cur fixturestatus.Record, exists bool) (fixturestatus.Record, bool, error) {
			return fixturestatus.Record{ScheduledAt: now, Status: fixturestatus.StatusPending}, true, nil
		})
	if err == nil {
		t.Fatalf("expected upsert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected rollback without commit: %v", err)
	}
}

func TestFixtureStatusRepository_UpdatePrunesPastRetention(t *testing.T) {
	repo, mock := newMockRepository(t)
	pruneBefore := time.Date(2026, 2, 15, 0, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	mock.ExpectBegin()
	mock.ExpectExec(pruneStmt).WithArgs(pruneBefore.UTC()).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	written, err := repo.Update(context.Background(), nil, pruneBefore,
		func(string, fixturestatus.Record, bool) (fixturestatus.Record, bool, error) {
			t.Fatalf("no fixtures to visit")
			return fixturestatus.Record{}, false, nil
		})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("unexpected writes: %+v", written)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("prune did not run in its own commit: %v", err)
	}
}

func TestFixtureStatusRepository_UpdateSkipsUnchangedRows(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStmt).WithArgs("100", "200").WillReturnRows(lockedRows(now, "100", "200"))
	mock.ExpectCommit()

	written, err := repo.Update(context.Background(), []string{"100", "200"}, time.Time{},
		func(_ string, cur fixturestatus.Record, _ bool) (fixturestatus.Record, bool, error) {
			return cur, false, nil
		})
	if err != nil || len(written) != 0 {
		t.Fatalf("unexpected result %+v %v", written, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}
