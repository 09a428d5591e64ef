package services

import "errors"

// Failure taxonomy of the match resolution core, shared by services and the
// HTTP mapping layer.
var (
	// Unknown entity
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamRatingNotFound = errors.New("team rating not found")

	// Authority
	ErrUnauthorized = errors.New("caller is not a captain of this match or a moderator")

	// State machine
	ErrInvalidTransition = errors.New("operation not allowed from the current match status")

	// A tied score can never complete a match on its own; a moderator must
	// force_complete with an explicit winner.
	ErrAmbiguousResult = errors.New("tied score requires moderator resolution")

	ErrMatchTeamsNotSet = errors.New("both match slots must be populated before reporting a score")
	ErrWinnerNotInMatch = errors.New("winner team is not a participant of this match")

	ErrUnknownModerationAction = errors.New("unknown moderation action")

	// Evidence
	ErrEvidenceLimitExceeded = errors.New("evidence limit reached for this team and match")
	ErrEvidenceNotImage      = errors.New("evidence must be an image upload")

	// Benign contention on the backing store. Retried internally a bounded
	// number of times before being surfaced.
	ErrConcurrentModification = errors.New("match was modified concurrently, retry the operation")
)
