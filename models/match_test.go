package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationSet(t *testing.T) {
	var set ConfirmationSet

	assert.False(t, set.Has(SideA))
	assert.False(t, set.HasBoth())

	set.Record(SideA)
	set.Record(SideA) // repeated confirmation is absorbed
	assert.Len(t, set, 1)
	assert.True(t, set.Has(SideA))
	assert.False(t, set.HasBoth())

	set.Record(SideB)
	assert.True(t, set.HasBoth())

	set.Clear()
	assert.Empty(t, set)
	assert.False(t, set.Has(SideA))
}

func TestMatchTeamHelpers(t *testing.T) {
	a, b := 10, 20
	match := &Match{TeamAID: &a, TeamBID: &b}

	assert.Equal(t, &a, match.TeamOnSide(SideA))
	assert.Equal(t, &b, match.TeamOnSide(SideB))
	assert.True(t, match.HasTeam(10))
	assert.True(t, match.HasTeam(20))
	assert.False(t, match.HasTeam(30))

	empty := &Match{}
	assert.Nil(t, empty.TeamOnSide(SideA))
	assert.False(t, empty.HasTeam(10))
}

func TestLeadingSide(t *testing.T) {
	match := &Match{ScoreA: 16, ScoreB: 14}
	side, ok := match.LeadingSide()
	assert.True(t, ok)
	assert.Equal(t, SideA, side)

	match.ScoreA, match.ScoreB = 3, 9
	side, ok = match.LeadingSide()
	assert.True(t, ok)
	assert.Equal(t, SideB, side)

	match.ScoreA, match.ScoreB = 0, 0
	_, ok = match.LeadingSide()
	assert.False(t, ok)
}
