// Package timeutil provides timezone utilities for the game clock. The whole
// game world runs on Paris time: expeditions lock at local midnight, depart
// at 08:00, and travel days flip at midnight. Europe/Paris observes DST, so
// the IANA location is loaded rather than a fixed offset.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Game day schedule, hours in Paris local time.
const (
	// LockHour is when planning expeditions are frozen (local midnight).
	LockHour = 0
	// DepartHour is when locked expeditions leave town.
	DepartHour = 8
)

var (
	parisOnce sync.Once
	parisLoc  *time.Location
)

// GameLocation returns the Europe/Paris location. Falls back to UTC+1 if the
// tz database is unavailable (stripped-down containers).
func GameLocation() *time.Location {
	parisOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			loc = time.FixedZone("CET", 1*60*60)
		}
		parisLoc = loc
	})
	return parisLoc
}

// Now returns the current time in the game timezone.
func Now() time.Time {
	return time.Now().In(GameLocation())
}

// ToGame converts a time to the game timezone.
func ToGame(t time.Time) time.Time {
	return t.In(GameLocation())
}

// StartOfDay returns local midnight of the day containing t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = GameLocation()
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of the day containing t in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// NextOccurrence returns the next moment at hour:minute in loc strictly after t.
// DST transitions are handled by time.Date normalization.
func NextOccurrence(t time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = GameLocation()
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsSameDay checks if two times fall on the same calendar day in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = GameLocation()
	}
	a, b := t1.In(loc), t2.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween counts whole calendar days from t1 to t2 in loc. Negative when
// t2 precedes t1.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	a := StartOfDay(t1, loc)
	b := StartOfDay(t2, loc)
	return int(b.Sub(a).Hours() / 24)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatFrenchDate is the in-game display format (DD/MM/YYYY).
	FormatFrenchDate = "02/01/2006"
	// FormatFrenchDateTime includes the clock.
	FormatFrenchDateTime = "02/01/2006 15:04"
)

// FormatGame formats a time in the game timezone with the given layout.
func FormatGame(t time.Time, layout string) string {
	return ToGame(t).Format(layout)
}

// FormatFrench formats a time in the in-game display format.
func FormatFrench(t time.Time) string {
	return FormatGame(t, FormatFrenchDateTime)
}

// FormatCountdown renders the time remaining until deadline, e.g. "2j 5h"
// or "3h 12min". Returns "maintenant" when the deadline has passed.
func FormatCountdown(now, deadline time.Time) string {
	d := deadline.Sub(now)
	if d <= 0 {
		return "maintenant"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dj %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dmin", hours, mins)
	default:
		return fmt.Sprintf("%dmin", mins)
	}
}

// ParseGame parses a time string in the game timezone.
func ParseGame(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, GameLocation())
}
