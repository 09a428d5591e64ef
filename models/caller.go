package models

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
	RoleFounder   UserRole = "founder"
)

// CanModerate reports whether the role may bypass mutual confirmation.
func (r UserRole) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin || r == RoleFounder
}

// Caller is the resolved identity of whoever invoked an operation. It is
// passed explicitly into every service call; services never read identity
// from ambient state.
type Caller struct {
	UserID         int      `json:"user_id"`
	Role           UserRole `json:"role"`
	CaptainTeamIDs []int    `json:"captain_team_ids"`
}

func (c Caller) IsCaptainOf(teamID int) bool {
	for _, id := range c.CaptainTeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}
