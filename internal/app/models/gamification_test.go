package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
}

func TestApplyXPLevelUp(t *testing.T) {
	g := Gamification{XP: 80, Level: 1}

	award := g.ApplyXP(50, day(1, 10), time.UTC)

	assert.Equal(t, XPAward{XP: 130, Level: 2, Streak: 1, LeveledUp: true}, award)
}

func TestApplyXPNoLevelUp(t *testing.T) {
	g := Gamification{XP: 110, Level: 2}

	award := g.ApplyXP(25, day(1, 10), time.UTC)

	assert.Equal(t, 135, award.XP)
	assert.Equal(t, 2, award.Level)
	assert.False(t, award.LeveledUp)
}

func TestApplyXPStreakSameDay(t *testing.T) {
	g := NewGamification()

	first := g.ApplyXP(10, day(5, 8), time.UTC)
	second := g.ApplyXP(10, day(5, 22), time.UTC)

	assert.Equal(t, 1, first.Streak)
	assert.Equal(t, 1, second.Streak)
	assert.Equal(t, 20, g.XP)
}

func TestApplyXPStreakConsecutiveThenGap(t *testing.T) {
	g := NewGamification()

	var streaks []int
	for _, now := range []time.Time{day(1, 23), day(2, 0), day(3, 12)} {
		streaks = append(streaks, g.ApplyXP(5, now, time.UTC).Streak)
	}
	assert.Equal(t, []int{1, 2, 3}, streaks)

	afterGap := g.ApplyXP(5, day(6, 12), time.UTC)
	assert.Equal(t, 1, afterGap.Streak)
	require.NotNil(t, g.LastActivityDate)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), *g.LastActivityDate)
}

func TestApplyXPUsesLocationForDayBoundary(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	g := NewGamification()

	// 20:00 UTC on the 1st is already the 2nd in Tokyo
	g.ApplyXP(5, day(1, 10), tokyo)
	award := g.ApplyXP(5, day(1, 20), tokyo)

	assert.Equal(t, 2, award.Streak)
}

func TestLevelForXP(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(99))
	assert.Equal(t, 2, LevelForXP(100))
	assert.Equal(t, 11, LevelForXP(1050))
}

func TestAddBadgeKeepsDuplicates(t *testing.T) {
	g := NewGamification()
	g.AddBadge(Badge{Name: "Helper"})
	g.AddBadge(Badge{Name: "Helper"})

	assert.Len(t, g.Badges, 2)
}

func TestXPHeadroom(t *testing.T) {
	assert.Equal(t, MaxXP, (&Gamification{}).XPHeadroom())
	assert.Equal(t, 30, (&Gamification{XP: MaxXP - 30}).XPHeadroom())
	assert.Equal(t, 0, (&Gamification{XP: MaxXP}).XPHeadroom())
}
