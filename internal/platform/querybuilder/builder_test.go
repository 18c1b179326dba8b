package querybuilder

import (
	"strings"
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("fixture_id", "status").
		From("fixture_statuses").
		Where(Eq("status", "pending"), Expr("scheduled_at >= ?", "2026-03-01")).
		OrderBy("scheduled_at DESC", "fixture_id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT fixture_id, status FROM fixture_statuses WHERE status = $1 AND scheduled_at >= $2 ORDER BY scheduled_at DESC, fixture_id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "pending" || args[1] != "2026-03-01" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ForUpdate(t *testing.T) {
	query, args, err := Select("fixture_id").
		From("fixture_statuses").
		Where(In("fixture_id", []any{"f1", "f2"})).
		OrderBy("fixture_id").
		ForUpdate().
		ToSQL()
	if err != nil {
		t.Fatalf("build select for update: %v", err)
	}

	wantQuery := "SELECT fixture_id FROM fixture_statuses WHERE fixture_id IN ($1, $2) ORDER BY fixture_id FOR UPDATE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_EmptyInMatchesNothing(t *testing.T) {
	query, args, err := Select("fixture_id").From("fixture_statuses").Where(In("fixture_id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select: %v", err)
	}
	if query != "SELECT fixture_id FROM fixture_statuses WHERE 1=0" || len(args) != 0 {
		t.Fatalf("unexpected query %q args %+v", query, args)
	}
}

func TestSelectBuilder_RequiresColumnsAndTable(t *testing.T) {
	if _, _, err := Select().From("fixture_statuses").ToSQL(); err == nil {
		t.Fatalf("expected error for missing columns")
	}
	if _, _, err := Select("fixture_id").ToSQL(); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("job_dispatches").
		Columns("dispatch_id", "status").
		Values("d-1", "sent").
		Suffix("ON CONFLICT (dispatch_id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO job_dispatches (dispatch_id, status) VALUES ($1, $2) ON CONFLICT (dispatch_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "d-1" || args[1] != "sent" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("job_dispatches").Columns("dispatch_id", "status").Values("d-1").ToSQL()
	if err == nil || !strings.Contains(err.Error(), "expected 2") {
		t.Fatalf("expected width mismatch error, got %v", err)
	}
}

func TestDeleteBuilder(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := DeleteFrom("fixture_statuses").
		Where(Expr("scheduled_at < ?", cutoff)).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete: %v", err)
	}
	if query != "DELETE FROM fixture_statuses WHERE scheduled_at < $1" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != cutoff {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("fixture_statuses").ToSQL(); err == nil {
		t.Fatalf("expected unconditional delete to be refused")
	}
}
