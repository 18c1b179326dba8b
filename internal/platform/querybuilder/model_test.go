package querybuilder

import (
	"strings"
	"testing"
)

type dispatchRow struct {
	DispatchID string  `db:"dispatch_id"`
	Status     string  `db:"status"`
	LastError  *string `db:"last_error"`
	Ignored    string  `db:"-"`
	Untagged   string
	internal   string `db:"internal"`
}

func TestColumns(t *testing.T) {
	cols, err := Columns(dispatchRow{})
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if got := strings.Join(cols, ","); got != "dispatch_id,status,last_error" {
		t.Fatalf("unexpected columns: %s", got)
	}

	ptrCols, err := Columns(&dispatchRow{})
	if err != nil || len(ptrCols) != 3 {
		t.Fatalf("pointer model: %v %v", ptrCols, err)
	}
}

func TestColumns_RejectsBadModels(t *testing.T) {
	type twice struct {
		A string `db:"status"`
		B string `db:"status"`
	}
	type untagged struct {
		A string
	}

	cases := []struct {
		name  string
		model any
		want  string
	}{
		{name: "duplicate column", model: twice{}, want: "twice"},
		{name: "no db columns", model: untagged{}, want: "no db columns"},
		{name: "nil pointer", model: (*dispatchRow)(nil), want: "cannot be nil"},
		{name: "not a struct", model: "fixture_statuses", want: "must be struct"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Columns(tc.model)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestMustColumns_PanicsOnBadModel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustColumns(struct{ A string }{})
}

func TestInsertModel(t *testing.T) {
	msg := "timeout"
	query, args, err := InsertModel("job_dispatches", dispatchRow{
		DispatchID: "d-1",
		Status:     "failed",
		LastError:  &msg,
		Ignored:    "x",
	}, "ON CONFLICT (dispatch_id) DO UPDATE SET status = EXCLUDED.status")
	if err != nil {
		t.Fatalf("insert model: %v", err)
	}

	wantQuery := "INSERT INTO job_dispatches (dispatch_id, status, last_error) VALUES ($1, $2, $3) ON CONFLICT (dispatch_id) DO UPDATE SET status = EXCLUDED.status"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "d-1" || args[2] != &msg {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertModel("job_dispatches", nil, ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
