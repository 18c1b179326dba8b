package fixturestatus

import (
	"context"
	"time"
)

// UpdateFunc computes the next state of one row. Returning write=false leaves
// the row untouched; returning an error aborts the whole update.
type UpdateFunc func(fixtureID string, current Record, exists bool) (next Record, write bool, err error)

// Repository persists fixture status rows.
//
// Update calls fn once per id, in order, and commits every written row in a
// single atomic step. Rows scheduled before pruneBefore are deleted in the
// same step. It returns the written rows in id order.
type Repository interface {
	Get(ctx context.Context, fixtureID string) (Record, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Update(ctx context.Context, fixtureIDs []string, pruneBefore time.Time, fn UpdateFunc) ([]Record, error)
}
