package brackets

import "github.com/Dosada05/esport-core/models"

// NextSlot returns the bracket coordinates a match's winner feeds into,
// under standard single-elimination pairing: slots 2k and 2k+1 of one round
// meet in slot k of the next.
func NextSlot(round, slot int) (nextRound, nextSlot int) {
	return round + 1, slot / 2
}

// FeedSide returns which side of the downstream match a winner occupies.
// Even slots feed side A, odd slots feed side B. Because the side is a pure
// function of the source slot, re-advancing the same slot overwrites its own
// previous entry instead of appending, which keeps advancement idempotent
// and lets a re-resolved winner displace the stale one.
func FeedSide(slot int) models.Side {
	if slot%2 == 0 {
		return models.SideA
	}
	return models.SideB
}

// Advance writes winnerTeamID into the correct side of the downstream match.
// It returns true if the slot's occupant changed.
func Advance(next *models.Match, sourceSlot int, winnerTeamID int) bool {
	side := FeedSide(sourceSlot)
	current := next.TeamOnSide(side)
	if current != nil && *current == winnerTeamID {
		return false
	}
	id := winnerTeamID
	if side == models.SideA {
		next.TeamAID = &id
	} else {
		next.TeamBID = &id
	}
	return true
}
