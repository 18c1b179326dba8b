package fixture

import (
	"context"
	"time"
)

// Source lists candidate fixtures whose kickoff falls in [from, to].
type Source interface {
	FetchCandidateFixtures(ctx context.Context, from, to time.Time) ([]Summary, error)
}
