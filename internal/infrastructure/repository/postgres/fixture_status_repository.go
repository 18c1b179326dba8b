package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	qb "github.com/riskibarqy/fixture-scheduler/internal/platform/querybuilder"
)

const upsertFixtureStatusSuffix = `ON CONFLICT (fixture_id)
DO UPDATE SET
    scheduled_at = EXCLUDED.scheduled_at,
    status = EXCLUDED.status,
    first_attempt_at = EXCLUDED.first_attempt_at,
    last_attempt_at = EXCLUDED.last_attempt_at,
    attempt_count = GREATEST(fixture_statuses.attempt_count, EXCLUDED.attempt_count),
    last_error = EXCLUDED.last_error,
    league = EXCLUDED.league,
    home_team = EXCLUDED.home_team,
    away_team = EXCLUDED.away_team,
    updated_at = EXCLUDED.updated_at`

type FixtureStatusRepository struct {
	db *sqlx.DB
}

func NewFixtureStatusRepository(db *sqlx.DB) *FixtureStatusRepository {
	return &FixtureStatusRepository{db: db}
}

func (r *FixtureStatusRepository) Get(ctx context.Context, fixtureID string) (fixturestatus.Record, bool, error) {
	query, args, err := qb.Select(fixtureStatusColumns...).
		From(fixtureStatusTable).
		Where(qb.Eq("fixture_id", fixtureID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return fixturestatus.Record{}, false, fmt.Errorf("build select fixture status query: %w", err)
	}

	var row fixtureStatusTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixturestatus.Record{}, false, nil
		}
		return fixturestatus.Record{}, false, fmt.Errorf("select fixture status fixture_id=%s: %w", fixtureID, err)
	}

	return row.toRecord(), true, nil
}

func (r *FixtureStatusRepository) List(ctx context.Context, filter fixturestatus.ListFilter) ([]fixturestatus.Record, error) {
	builder := qb.Select(fixtureStatusColumns...).
		From(fixtureStatusTable).
		OrderBy("scheduled_at DESC", "fixture_id").
		Limit(filter.Limit)
	if filter.Status != "" {
		builder = builder.Where(qb.Eq("status", string(filter.Status)))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixture status query: %w", err)
	}

	var rows []fixtureStatusTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixture statuses: %w", err)
	}

	out := make([]fixturestatus.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

// Update locks the affected rows for the duration of one transaction, so the
// read-modify-write of the whole batch commits or rolls back together.
func (r *FixtureStatusRepository) Update(ctx context.Context, fixtureIDs []string, pruneBefore time.Time, fn fixturestatus.UpdateFunc) ([]fixturestatus.Record, error) {
	if fn == nil {
		return nil, fmt.Errorf("update func is required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx update fixture statuses: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if !pruneBefore.IsZero() {
		pruneQuery, pruneArgs, err := qb.DeleteFrom(fixtureStatusTable).
			Where(qb.Expr("scheduled_at < ?", pruneBefore.UTC())).
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build prune fixture status query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, pruneQuery, pruneArgs...); err != nil {
			return nil, fmt.Errorf("prune fixture statuses: %w", err)
		}
	}

	current, err := r.lockRows(ctx, tx, fixtureIDs)
	if err != nil {
		return nil, err
	}

	written := make([]fixturestatus.Record, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		cur, exists := current[id]
		rec, write, err := fn(id, cur, exists)
		if err != nil {
			return nil, err
		}
		if !write {
			continue
		}
		rec.FixtureID = id

		query, args, err := qb.InsertModel(fixtureStatusTable, fixtureStatusModelFromRecord(rec), upsertFixtureStatusSuffix)
		if err != nil {
			return nil, fmt.Errorf("build upsert fixture status query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("upsert fixture status fixture_id=%s: %w", id, err)
		}

		current[id] = rec
		written = append(written, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fixture status update: %w", err)
	}
	return written, nil
}

func (r *FixtureStatusRepository) lockRows(ctx context.Context, tx *sqlx.Tx, fixtureIDs []string) (map[string]fixturestatus.Record, error) {
	out := make(map[string]fixturestatus.Record, len(fixtureIDs))
	if len(fixtureIDs) == 0 {
		return out, nil
	}

	ids := make([]any, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		ids = append(ids, id)
	}

	query, args, err := qb.Select(fixtureStatusColumns...).
		From(fixtureStatusTable).
		Where(qb.In("fixture_id", ids)).
		OrderBy("fixture_id").
		ForUpdate().
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build lock fixture status query: %w", err)
	}

	var rows []fixtureStatusTableModel
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("lock fixture statuses: %w", err)
	}
	for _, row := range rows {
		out[row.FixtureID] = row.toRecord()
	}
	return out, nil
}
