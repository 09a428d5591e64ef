package events

import "strconv"

// Event types pushed to subscribers of a tournament room.
const (
	TypeMatchUpdated        = "MATCH_UPDATED"
	TypeMatchCompleted      = "MATCH_COMPLETED"
	TypeTournamentCompleted = "TOURNAMENT_COMPLETED"
)

// Message is the envelope every subscriber receives.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

type MatchCompletedPayload struct {
	MatchID      int `json:"match_id"`
	TournamentID int `json:"tournament_id"`
	WinnerTeamID int `json:"winner_team_id"`
	LoserTeamID  int `json:"loser_team_id"`
	ScoreA       int `json:"score_a"`
	ScoreB       int `json:"score_b"`
}

type TournamentCompletedPayload struct {
	TournamentID int `json:"tournament_id"`
	WinnerTeamID int `json:"winner_team_id"`
}

// Publisher delivers domain events to whatever transport is listening.
// Delivery is fire-and-forget: the core never waits for acknowledgement.
type Publisher interface {
	Publish(tournamentID int, eventType string, payload interface{})
}

// RoomForTournament names the hub room all events of one tournament go to.
func RoomForTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

// HubPublisher broadcasts events to websocket subscribers of the
// tournament's room.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(tournamentID int, eventType string, payload interface{}) {
	roomID := RoomForTournament(tournamentID)
	p.hub.BroadcastToRoom(roomID, Message{
		Type:    eventType,
		Payload: payload,
		RoomID:  roomID,
	})
}
