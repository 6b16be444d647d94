// Package leaderboard maintains ranked point totals per participant and
// the global multipliers applied when contributions are accepted. Totals
// are recomputed from accepted contributions rather than incremented, so
// a recompute is always safe to repeat.
package leaderboard

import (
	"time"
)

// Entry is a participant's row on the leaderboard. Ties share a rank.
type Entry struct {
	UserID      uint      `json:"user_id"`
	TotalPoints int       `json:"total_points"`
	Rank        int       `json:"rank"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Participant fields joined from users for list responses.
	Username    string `json:"username"`
	Name        string `json:"name"`
	UserAddress string `json:"user_address"`
}

// GlobalMultiplier scales points for one contribution type from a given
// moment onward. The multiplier with the latest valid_from at or before
// the acceptance time wins; with no row the multiplier is 1.
type GlobalMultiplier struct {
	ID                 uint      `json:"id"`
	ContributionTypeID uint      `json:"contribution_type_id"`
	Multiplier         float64   `json:"multiplier"`
	ValidFrom          time.Time `json:"valid_from"`
	CreatedAt          time.Time `json:"created_at"`
}

// Stats summarizes overall activity for the dashboard header.
type Stats struct {
	ParticipantCount  int `json:"participant_count"`
	ContributionCount int `json:"contribution_count"`
	TotalPoints       int `json:"total_points"`
}
