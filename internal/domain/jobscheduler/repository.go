package jobscheduler

import "context"

type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
}

// NoopRepository discards events; used when no database is configured.
type NoopRepository struct{}

func (NoopRepository) UpsertEvent(context.Context, DispatchEvent) error { return nil }
