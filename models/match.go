package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusDisputed   MatchStatus = "disputed"
)

// Side tags one of the two competing teams of a match.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

type ModerationAction string

const (
	ModerationVerify        ModerationAction = "verify"
	ModerationDispute       ModerationAction = "dispute"
	ModerationForceComplete ModerationAction = "force_complete"
	ModerationReopen        ModerationAction = "reopen"
)

// ConfirmationSet holds which sides have acknowledged the current score pair.
// It must be cleared whenever the score changes: a confirmation only ever
// authorizes the exact score snapshot it was recorded against.
type ConfirmationSet []Side

func (s *ConfirmationSet) Record(side Side) {
	if s.Has(side) {
		return
	}
	*s = append(*s, side)
}

func (s ConfirmationSet) Has(side Side) bool {
	for _, recorded := range s {
		if recorded == side {
			return true
		}
	}
	return false
}

func (s ConfirmationSet) HasBoth() bool {
	return s.Has(SideA) && s.Has(SideB)
}

func (s *ConfirmationSet) Clear() {
	*s = (*s)[:0]
}

type Match struct {
	ID           int `json:"id"`
	TournamentID int `json:"tournament_id"`

	// Bracket coordinates, immutable after creation. Slot is zero-based
	// within the round; the winner feeds (Round+1, Slot/2).
	Round int `json:"round"`
	Slot  int `json:"slot"`

	// Nil until a prior match resolves into this slot.
	TeamAID *int `json:"team_a_id,omitempty"`
	TeamBID *int `json:"team_b_id,omitempty"`

	ScoreA int `json:"score_a"`
	ScoreB int `json:"score_b"`

	Status            MatchStatus     `json:"status"`
	ConfirmedBy       ConfirmationSet `json:"confirmed_by"`
	ModeratorVerified bool            `json:"moderator_verified"`

	WinnerTeamID *int       `json:"winner_team_id,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Optimistic lock, bumped by every successful write.
	Version int `json:"-"`
}

// TeamOnSide returns the team occupying the given side, or nil if unset.
func (m *Match) TeamOnSide(side Side) *int {
	if side == SideA {
		return m.TeamAID
	}
	return m.TeamBID
}

// HasTeam reports whether teamID is one of the match's two teams.
func (m *Match) HasTeam(teamID int) bool {
	return (m.TeamAID != nil && *m.TeamAID == teamID) ||
		(m.TeamBID != nil && *m.TeamBID == teamID)
}

// LeadingSide returns the side with the higher score. ok is false on a tie.
func (m *Match) LeadingSide() (side Side, ok bool) {
	switch {
	case m.ScoreA > m.ScoreB:
		return SideA, true
	case m.ScoreB > m.ScoreA:
		return SideB, true
	default:
		return "", false
	}
}
