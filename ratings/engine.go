package ratings

import (
	"math"

	"github.com/Dosada05/esport-core/models"
)

const (
	KFactor    = 32
	BaseRating = 1000

	XPWin  = 50
	XPLoss = 10

	// How many recent results a team's form keeps.
	FormLength = 10
)

// Level thresholds, index i holds the minimum XP for level i+1.
// Level 10 is the ceiling.
var levelThresholds = []int{0, 100, 300, 500, 700, 900, 1100, 1300, 1500, 1700}

// LevelForXP returns the highest level whose threshold the given XP reaches.
func LevelForXP(xp int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}

// ExpectedScore returns the probability of the first rating beating the second.
func ExpectedScore(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-rating)/400.0))
}

// NewTeamRating returns the record a team starts with before its first
// completed match.
func NewTeamRating(teamID int) models.TeamRating {
	return models.TeamRating{
		TeamID: teamID,
		Rating: BaseRating,
		Level:  1,
	}
}

// Apply computes both teams' post-match records. It is a pure function: the
// inputs are not mutated, and the caller persists the returned records
// exactly once per completed match.
//
// The rating exchange is zero-sum: the winner gains what the loser gives up.
// XP is granted to both sides (participation always pays something), and the
// level derived from XP never decreases.
func Apply(winner, loser models.TeamRating) (models.TeamRating, models.TeamRating) {
	expected := ExpectedScore(winner.Rating, loser.Rating)
	delta := int(math.Round(KFactor * (1 - expected)))

	winner.Rating += delta
	loser.Rating -= delta

	winner.XP += XPWin
	loser.XP += XPLoss

	winner.Level = maxInt(winner.Level, LevelForXP(winner.XP))
	loser.Level = maxInt(loser.Level, LevelForXP(loser.XP))

	winner.Wins++
	loser.Losses++

	winner.RecentResults = appendResult(winner.RecentResults, models.ResultWin)
	loser.RecentResults = appendResult(loser.RecentResults, models.ResultLoss)

	return winner, loser
}

func appendResult(form []models.MatchResult, result models.MatchResult) []models.MatchResult {
	out := make([]models.MatchResult, 0, len(form)+1)
	out = append(out, form...)
	out = append(out, result)
	if len(out) > FormLength {
		out = out[len(out)-FormLength:]
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
