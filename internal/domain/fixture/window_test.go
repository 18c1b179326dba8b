package fixture

import (
	"testing"
	"time"
)

func TestWindow_InWindow(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	w := DefaultWindow()

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "too early", now: kickoff.Add(-61 * time.Minute), want: false},
		{name: "opening bound", now: kickoff.Add(-60 * time.Minute), want: true},
		{name: "at kickoff", now: kickoff, want: true},
		{name: "closing bound", now: kickoff.Add(24 * time.Hour), want: true},
		{name: "too late", now: kickoff.Add(24*time.Hour + time.Second), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := w.InWindow(tc.now, kickoff); got != tc.want {
				t.Fatalf("InWindow(%s) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestWindow_InWindowRejectsZeroKickoff(t *testing.T) {
	t.Parallel()

	if DefaultWindow().InWindow(time.Now(), time.Time{}) {
		t.Fatalf("zero kickoff must never be in window")
	}
}

func TestWindow_CandidateRangeCoversWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	w := DefaultWindow()
	from, to := w.CandidateRange(now)

	if !w.InWindow(now, from) {
		t.Fatalf("kickoff at range start %s should be in window", from)
	}
	if !w.InWindow(now, to) {
		t.Fatalf("kickoff at range end %s should be in window", to)
	}
	if w.InWindow(now, to.Add(time.Second)) {
		t.Fatalf("kickoff after range end should be out of window")
	}
}

func TestIsCancelledLikeStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"PST", "canc", "Postponed", "ABD"} {
		if !IsCancelledLikeStatus(status) {
			t.Fatalf("expected %q to be cancelled-like", status)
		}
	}
	if IsCancelledLikeStatus("NS") {
		t.Fatalf("NS should not be cancelled-like")
	}
}

func TestSeasonFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{name: "july belongs to previous season", at: time.Date(2026, time.July, 31, 23, 0, 0, 0, time.UTC), want: 2025},
		{name: "august starts new season", at: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), want: 2026},
		{name: "january", at: time.Date(2027, time.January, 10, 0, 0, 0, 0, time.UTC), want: 2026},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SeasonFor(tt.at); got != tt.want {
				t.Fatalf("unexpected season: got=%d want=%d", got, tt.want)
			}
		})
	}
}
