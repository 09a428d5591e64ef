package ratings

import (
	"testing"

	"github.com/Dosada05/esport-core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{50, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{500, 4},
		{700, 5},
		{900, 6},
		{1100, 7},
		{1300, 8},
		{1500, 9},
		{1700, 10},
		{999999, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestExpectedScoreSymmetry(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1000, 1000), 1e-9)

	// Probabilities of both sides of any pairing sum to one.
	pairs := [][2]int{{1000, 1200}, {800, 1600}, {1500, 1501}, {-100, 300}}
	for _, pair := range pairs {
		sum := ExpectedScore(pair[0], pair[1]) + ExpectedScore(pair[1], pair[0])
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	// The stronger side is always favored.
	assert.Greater(t, ExpectedScore(1200, 1000), 0.5)
	assert.Less(t, ExpectedScore(1000, 1200), 0.5)
}

func TestNewTeamRating(t *testing.T) {
	record := NewTeamRating(7)
	assert.Equal(t, 7, record.TeamID)
	assert.Equal(t, BaseRating, record.Rating)
	assert.Equal(t, 0, record.XP)
	assert.Equal(t, 1, record.Level)
	assert.Empty(t, record.RecentResults)
}

func TestApplyEqualRatings(t *testing.T) {
	winner, loser := Apply(NewTeamRating(1), NewTeamRating(2))

	// Even matchup exchanges exactly half the K factor.
	assert.Equal(t, BaseRating+16, winner.Rating)
	assert.Equal(t, BaseRating-16, loser.Rating)

	assert.Equal(t, XPWin, winner.XP)
	assert.Equal(t, XPLoss, loser.XP)

	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 0, winner.Losses)
	assert.Equal(t, 0, loser.Wins)
	assert.Equal(t, 1, loser.Losses)

	assert.Equal(t, []models.MatchResult{models.ResultWin}, winner.RecentResults)
	assert.Equal(t, []models.MatchResult{models.ResultLoss}, loser.RecentResults)
}

func TestApplyZeroSum(t *testing.T) {
	cases := [][2]int{{1000, 1000}, {1400, 1000}, {1000, 1400}, {900, 2100}}
	for _, ratings := range cases {
		w := NewTeamRating(1)
		w.Rating = ratings[0]
		l := NewTeamRating(2)
		l.Rating = ratings[1]

		nw, nl := Apply(w, l)
		gained := nw.Rating - w.Rating
		lost := l.Rating - nl.Rating
		assert.Equal(t, gained, lost, "ratings %v", ratings)
		assert.GreaterOrEqual(t, gained, 0)
		assert.LessOrEqual(t, gained, KFactor)
	}
}

func TestApplyUpsetPaysMore(t *testing.T) {
	underdog := NewTeamRating(1)
	underdog.Rating = 1000
	favorite := NewTeamRating(2)
	favorite.Rating = 1400

	upsetWinner, _ := Apply(underdog, favorite)
	expectedWinner, _ := Apply(favorite, underdog)

	upsetGain := upsetWinner.Rating - underdog.Rating
	expectedGain := expectedWinner.Rating - favorite.Rating
	assert.Greater(t, upsetGain, expectedGain)
}

func TestApplyRatingIsUnbounded(t *testing.T) {
	loser := NewTeamRating(2)
	loser.Rating = 5

	_, newLoser := Apply(NewTeamRating(1), loser)
	assert.Less(t, newLoser.Rating, 0)
}

func TestApplyLevelNeverDecreases(t *testing.T) {
	loser := NewTeamRating(2)
	loser.XP = 150
	loser.Level = 9 // granted out of band, above what XP alone earns

	_, newLoser := Apply(NewTeamRating(1), loser)
	assert.Equal(t, 9, newLoser.Level)
}

func TestApplyLevelUpOnThreshold(t *testing.T) {
	winner := NewTeamRating(1)
	winner.XP = 60 // +50 crosses the 100 threshold

	newWinner, _ := Apply(winner, NewTeamRating(2))
	assert.Equal(t, 110, newWinner.XP)
	assert.Equal(t, 2, newWinner.Level)
}

func TestApplyFormTruncation(t *testing.T) {
	winner := NewTeamRating(1)
	for i := 0; i < FormLength; i++ {
		winner.RecentResults = append(winner.RecentResults, models.ResultLoss)
	}

	newWinner, _ := Apply(winner, NewTeamRating(2))
	require.Len(t, newWinner.RecentResults, FormLength)
	// Oldest entry dropped, newest appended.
	assert.Equal(t, models.ResultWin, newWinner.RecentResults[FormLength-1])
	for _, result := range newWinner.RecentResults[:FormLength-1] {
		assert.Equal(t, models.ResultLoss, result)
	}
}

func TestApplyDoesNotMutateInputs(t *testing.T) {
	w := NewTeamRating(1)
	l := NewTeamRating(2)
	w.RecentResults = []models.MatchResult{models.ResultWin}

	_, _ = Apply(w, l)

	assert.Equal(t, BaseRating, w.Rating)
	assert.Equal(t, 0, w.XP)
	assert.Equal(t, []models.MatchResult{models.ResultWin}, w.RecentResults)
	assert.Equal(t, BaseRating, l.Rating)
}
