package fixture

import "time"

const (
	DefaultWindowBefore = 60 * time.Minute
	DefaultWindowAfter  = 24 * time.Hour
)

// Window is the rolling span around kickoff in which a fixture may be processed.
type Window struct {
	Before time.Duration
	After  time.Duration
}

func DefaultWindow() Window {
	return Window{Before: DefaultWindowBefore, After: DefaultWindowAfter}
}

// InWindow reports kickoff-Before <= now <= kickoff+After. Both bounds are inclusive.
func (w Window) InWindow(now, kickoff time.Time) bool {
	if kickoff.IsZero() {
		return false
	}
	start := kickoff.Add(-w.Before)
	end := kickoff.Add(w.After)
	return !now.Before(start) && !now.After(end)
}

// CandidateRange returns the kickoff range that can satisfy InWindow at now.
func (w Window) CandidateRange(now time.Time) (from, to time.Time) {
	return now.Add(-w.After), now.Add(w.Before)
}

// SeasonFor returns the season start year: seasons roll over in August.
func SeasonFor(t time.Time) int {
	if t.Month() >= time.August {
		return t.Year()
	}
	return t.Year() - 1
}
