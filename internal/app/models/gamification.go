package models

import (
	"math"
	"time"

	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
)

const (
	// XPPerLevel is the XP needed to advance one level
	XPPerLevel = 100
	// MaxXPAward bounds a single award
	MaxXPAward = 10000
	// MaxXP is the largest total the store's INTEGER column holds
	MaxXP = math.MaxInt32
)

// Badge is an award a mentor hands to a student
type Badge struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" example:"Fast Learner"`
	Icon      string    `json:"icon" db:"icon" example:"🚀"`
	AwardedBy int64     `json:"awardedBy" db:"awarded_by"`
	AwardedAt time.Time `json:"awardedAt" db:"awarded_at"`
}

// Gamification is the progress-incentive state of a student
type Gamification struct {
	XP     int `json:"xp" db:"xp"`
	Level  int `json:"level" db:"level"`
	Streak int `json:"streak" db:"streak"`
	// LastActivityDate holds a calendar date as UTC midnight
	LastActivityDate *time.Time `json:"lastActivityDate" db:"last_activity_date"`
	Badges           []Badge    `json:"badges"`
}

// NewGamification returns the state of a freshly registered user
func NewGamification() Gamification {
	return Gamification{Level: 1, Badges: []Badge{}}
}

// LevelForXP derives the level from accumulated XP
func LevelForXP(xp int) int {
	return xp/XPPerLevel + 1
}

// XPHeadroom is the most XP that can still be added without passing MaxXP
func (g *Gamification) XPHeadroom() int {
	if g.XP >= MaxXP {
		return 0
	}
	return MaxXP - g.XP
}

// XPAward is the outcome of one ApplyXP call
type XPAward struct {
	XP        int  `json:"xp"`
	Level     int  `json:"level"`
	Streak    int  `json:"streak"`
	LeveledUp bool `json:"leveledUp"`
}

// ApplyXP adds amount to the XP total and advances the daily streak.
// "Today" is now's date in loc. The streak moves at most once per date:
// unchanged on the same date, +1 the day after, otherwise back to 1.
// amount must be positive and within XPHeadroom; callers validate it.
func (g *Gamification) ApplyXP(amount int, now time.Time, loc *time.Location) XPAward {
	previousLevel := g.Level
	if previousLevel < 1 {
		previousLevel = LevelForXP(g.XP)
	}

	g.XP += amount
	g.Level = LevelForXP(g.XP)

	today := timeutil.CivilDate(now, loc)
	switch {
	case g.LastActivityDate != nil && timeutil.IsSameDay(*g.LastActivityDate, today, time.UTC):
		// already counted today
	case g.LastActivityDate != nil && timeutil.IsConsecutiveDay(*g.LastActivityDate, today, time.UTC):
		g.Streak++
		g.LastActivityDate = &today
	default:
		g.Streak = 1
		g.LastActivityDate = &today
	}

	return XPAward{
		XP:        g.XP,
		Level:     g.Level,
		Streak:    g.Streak,
		LeveledUp: g.Level > previousLevel,
	}
}

// AddBadge appends a badge. Names are not de-duplicated.
func (g *Gamification) AddBadge(b Badge) {
	g.Badges = append(g.Badges, b)
}
