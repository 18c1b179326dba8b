package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
)

// FixtureStatusRepository keeps status rows in process memory. State is lost
// on restart.
type FixtureStatusRepository struct {
	mu   sync.RWMutex
	rows map[string]fixturestatus.Record
}

func NewFixtureStatusRepository(seed ...fixturestatus.Record) *FixtureStatusRepository {
	rows := make(map[string]fixturestatus.Record, len(seed))
	for _, rec := range seed {
		if rec.FixtureID == "" {
			continue
		}
		rows[rec.FixtureID] = rec
	}
	return &FixtureStatusRepository{rows: rows}
}

func (r *FixtureStatusRepository) Get(_ context.Context, fixtureID string) (fixturestatus.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[fixtureID]
	return rec, ok, nil
}

func (r *FixtureStatusRepository) List(_ context.Context, filter fixturestatus.ListFilter) ([]fixturestatus.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixturestatus.Record, 0, len(r.rows))
	for _, rec := range r.rows {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].FixtureID < out[j].FixtureID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Update stages every change and commits only when fn succeeds for all ids.
func (r *FixtureStatusRepository) Update(_ context.Context, fixtureIDs []string, pruneBefore time.Time, fn fixturestatus.UpdateFunc) ([]fixturestatus.Record, error) {
	if fn == nil {
		return nil, fmt.Errorf("update func is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]fixturestatus.Record, len(fixtureIDs))
	written := make([]fixturestatus.Record, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		current, exists := staged[id]
		if !exists {
			current, exists = r.rows[id]
			if exists && expired(current, pruneBefore) {
				current, exists = fixturestatus.Record{}, false
			}
		}
		rec, write, err := fn(id, current, exists)
		if err != nil {
			return nil, err
		}
		if !write {
			continue
		}
		rec.FixtureID = id
		staged[id] = rec
		written = append(written, rec)
	}

	for id, rec := range r.rows {
		if expired(rec, pruneBefore) {
			delete(r.rows, id)
		}
	}
	for id, rec := range staged {
		r.rows[id] = rec
	}
	return written, nil
}

func (r *FixtureStatusRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func expired(rec fixturestatus.Record, before time.Time) bool {
	return !before.IsZero() && !rec.ScheduledAt.IsZero() && rec.ScheduledAt.Before(before)
}
