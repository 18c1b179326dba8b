package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-scheduler/internal/domain/fixture"
)

// FixtureSource serves a fixed fixture list. It backs local runs without a
// provider key.
type FixtureSource struct {
	mu       sync.RWMutex
	fixtures []fixture.Summary
}

func NewFixtureSource(fixtures []fixture.Summary) *FixtureSource {
	return &FixtureSource{fixtures: append([]fixture.Summary(nil), fixtures...)}
}

func (s *FixtureSource) FetchCandidateFixtures(_ context.Context, from, to time.Time) ([]fixture.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fixture.Summary, 0, len(s.fixtures))
	for _, item := range s.fixtures {
		if item.KickoffAt.Before(from) || item.KickoffAt.After(to) {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].KickoffAt.Before(out[j].KickoffAt)
	})
	return out, nil
}

func (s *FixtureSource) Replace(fixtures []fixture.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures = append([]fixture.Summary(nil), fixtures...)
}
