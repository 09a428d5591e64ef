package models

import "time"

// MatchResult is a single entry of a team's recent form.
type MatchResult string

const (
	ResultWin  MatchResult = "W"
	ResultLoss MatchResult = "L"
)

// TeamRating is the persistent progression record of a team. It is mutated
// only as a consequence of a match reaching the completed status.
type TeamRating struct {
	TeamID int `json:"team_id"`

	// Elo-style rating, unbounded in both directions.
	Rating int `json:"rating"`

	XP    int `json:"xp"`
	Level int `json:"level"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	// Most-recent-last, capped length.
	RecentResults []MatchResult `json:"recent_results"`

	UpdatedAt time.Time `json:"updated_at"`

	// Optimistic lock, bumped by every successful write.
	Version int `json:"-"`
}
