package models

import "time"

// EvidenceItem is one screenshot attached by a team's captain to a match.
// Evidence never gates state transitions; it is an audit trail moderators
// consult before arbitrating.
type EvidenceItem struct {
	ID         int       `json:"id"`
	MatchID    int       `json:"match_id"`
	TeamID     int       `json:"team_id"`
	URL        string    `json:"url"`
	UploaderID int       `json:"uploader_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}
