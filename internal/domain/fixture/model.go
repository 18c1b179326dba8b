package fixture

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
)

// Summary is a candidate fixture as returned by the data provider.
type Summary struct {
	ID         string
	LeagueID   string
	League     string
	HomeTeam   string
	AwayTeam   string
	HomeTeamID string
	AwayTeamID string
	KickoffAt  time.Time
	Venue      string
	Status     string
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusLive, "IN_PLAY", "HT", "1H", "2H", "ET", "BT", "P", "INT":
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN":
		return true
	default:
		return false
	}
}

// IsCancelledLikeStatus covers the provider's short codes as well as the
// long-form statuses.
func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusCancelled, StatusPostponed, "ABANDONED", "CANC", "PST", "ABD", "AWD", "WO":
		return true
	default:
		return false
	}
}
