package blob

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixturestatus"
	"github.com/riskibarqy/fixture-scheduler/internal/platform/cache"
)

const DefaultStatusKey = "schedule/fixture_status.json"

// FixtureStatusRepository keeps the whole status table as one JSON document in
// a cache.Store. The document is loaded once into an indexed map and rewritten
// after every mutating Update. It assumes a single writer process.
type FixtureStatusRepository struct {
	store cache.Store
	key   string
	now   func() time.Time

	mu     sync.Mutex
	loaded bool
	rows   map[string]fixturestatus.Record
}

func NewFixtureStatusRepository(store cache.Store, key string) *FixtureStatusRepository {
	if key == "" {
		key = DefaultStatusKey
	}
	return &FixtureStatusRepository{
		store: store,
		key:   key,
		now:   time.Now,
	}
}

func (r *FixtureStatusRepository) Get(ctx context.Context, fixtureID string) (fixturestatus.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(ctx); err != nil {
		return fixturestatus.Record{}, false, err
	}
	rec, ok := r.rows[fixtureID]
	return rec, ok, nil
}

func (r *FixtureStatusRepository) List(ctx context.Context, filter fixturestatus.ListFilter) ([]fixturestatus.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(ctx); err != nil {
		return nil, err
	}

	out := make([]fixturestatus.Record, 0, len(r.rows))
	for _, rec := range r.rows {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *FixtureStatusRepository) Update(ctx context.Context, fixtureIDs []string, pruneBefore time.Time, fn fixturestatus.UpdateFunc) ([]fixturestatus.Record, error) {
	if fn == nil {
		return nil, fmt.Errorf("update func is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(ctx); err != nil {
		return nil, err
	}

	next := make(map[string]fixturestatus.Record, len(r.rows)+len(fixtureIDs))
	for id, rec := range r.rows {
		next[id] = rec
	}
	pruned := pruneRows(next, pruneBefore)

	written := make([]fixturestatus.Record, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		current, exists := next[id]
		rec, write, err := fn(id, current, exists)
		if err != nil {
			return nil, err
		}
		if !write {
			continue
		}
		rec.FixtureID = id
		next[id] = rec
		written = append(written, rec)
	}

	if len(written) == 0 && pruned == 0 {
		return written, nil
	}
	if err := r.persistLocked(ctx, next); err != nil {
		return nil, err
	}
	r.rows = next
	return written, nil
}

func (r *FixtureStatusRepository) loadLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	raw, found, err := r.store.Read(ctx, r.key)
	if err != nil {
		return fmt.Errorf("read fixture status document: %w", err)
	}

	rows := make(map[string]fixturestatus.Record)
	if found && len(raw) > 0 {
		var doc statusDocument
		if err := sonic.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode fixture status document: %w", err)
		}
		for _, row := range doc.Fixtures {
			if row.FixtureID == "" {
				continue
			}
			rows[row.FixtureID] = row.toRecord()
		}
	}

	r.rows = rows
	r.loaded = true
	return nil
}

func (r *FixtureStatusRepository) persistLocked(ctx context.Context, rows map[string]fixturestatus.Record) error {
	records := make([]fixturestatus.Record, 0, len(rows))
	for _, rec := range rows {
		records = append(records, rec)
	}
	sortRecords(records)

	doc := statusDocument{
		Version:   documentVersion,
		UpdatedAt: r.now().UTC(),
		Fixtures:  make([]statusRow, 0, len(records)),
	}
	for _, rec := range records {
		doc.Fixtures = append(doc.Fixtures, rowFromRecord(rec))
	}

	raw, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode fixture status document: %w", err)
	}
	if err := r.store.Write(ctx, r.key, raw); err != nil {
		return fmt.Errorf("write fixture status document: %w", err)
	}
	return nil
}

func pruneRows(rows map[string]fixturestatus.Record, before time.Time) int {
	if before.IsZero() {
		return 0
	}
	pruned := 0
	for id, rec := range rows {
		if !rec.ScheduledAt.IsZero() && rec.ScheduledAt.Before(before) {
			delete(rows, id)
			pruned++
		}
	}
	return pruned
}

// sortRecords orders by kickoff, newest first.
func sortRecords(records []fixturestatus.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ScheduledAt.Equal(records[j].ScheduledAt) {
			return records[i].ScheduledAt.After(records[j].ScheduledAt)
		}
		return records[i].FixtureID < records[j].FixtureID
	})
}
