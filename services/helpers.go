package services

import (
	"github.com/Dosada05/esport-core/models"
)

// callerSide resolves which side of the match the caller captains.
// ok is false when the caller captains neither team.
func callerSide(match *models.Match, caller models.Caller) (models.Side, bool) {
	if match.TeamAID != nil && caller.IsCaptainOf(*match.TeamAID) {
		return models.SideA, true
	}
	if match.TeamBID != nil && caller.IsCaptainOf(*match.TeamBID) {
		return models.SideB, true
	}
	return "", false
}

// authorizeParticipant is the single authority check for match actions:
// the caller must captain one of the match's teams, or hold a moderator
// role. side is only meaningful when captain is true.
func authorizeParticipant(match *models.Match, caller models.Caller) (side models.Side, captain bool, err error) {
	if side, ok := callerSide(match, caller); ok {
		return side, true, nil
	}
	if caller.Role.CanModerate() {
		return "", false, nil
	}
	return "", false, ErrUnauthorized
}

// canTransition is the status transition table. Completed is terminal.
func canTransition(current, next models.MatchStatus) bool {
	allowed := map[models.MatchStatus][]models.MatchStatus{
		models.MatchStatusPending:    {models.MatchStatusInProgress},
		models.MatchStatusInProgress: {models.MatchStatusInProgress, models.MatchStatusCompleted, models.MatchStatusDisputed},
		models.MatchStatusDisputed:   {models.MatchStatusCompleted, models.MatchStatusInProgress},
		models.MatchStatusCompleted:  {},
	}
	for _, status := range allowed[current] {
		if next == status {
			return true
		}
	}
	return false
}
