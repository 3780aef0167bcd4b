// Package timeutil provides calendar-day helpers evaluated in a configurable
// location. Streak bookkeeping counts days, not 24h windows, so every
// comparison here truncates to the date in that location first.
package timeutil

import (
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without a zoneinfo database
)

// Clock returns the current time. Services take a Clock so tests can pin "now".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// LoadLocation resolves an IANA zone name, treating "" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// StartOfDay returns midnight of t's date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// CivilDate returns t's date in loc as UTC midnight, the shape a DATE column
// round-trips through pgx.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// IsSameDay checks if two times fall on the same date in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	a1, a2 := t1.In(loc), t2.In(loc)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 falls on the date after t1 in loc.
func IsConsecutiveDay(t1, t2 time.Time, loc *time.Location) bool {
	next := StartOfDay(t1, loc).AddDate(0, 0, 1)
	return IsSameDay(next, t2, loc)
}

// DaysBetween counts whole calendar days between two times in loc.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	a1 := StartOfDay(t1, loc)
	a2 := StartOfDay(t2, loc)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
