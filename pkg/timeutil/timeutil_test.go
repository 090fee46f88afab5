package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	loc := time.UTC
	at := time.Date(2026, 3, 10, 15, 42, 7, 123, loc)

	got := StartOfDay(at, loc)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), got)

	// Instant conversion matters: 23:30 UTC is already the next Paris day.
	paris := GameLocation()
	lateUTC := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 11, StartOfDay(lateUTC, paris).Day())
}

func TestEndOfDay(t *testing.T) {
	loc := time.UTC
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	got := EndOfDay(at, loc)
	assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 999999999, loc), got)
}

func TestNextOccurrence(t *testing.T) {
	loc := time.UTC

	// Before the daily time: same day.
	at := time.Date(2026, 3, 10, 6, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, loc), NextOccurrence(at, 8, 0, loc))

	// Exactly at the daily time: strictly after means tomorrow.
	at = time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, loc), NextOccurrence(at, 8, 0, loc))

	// After it: tomorrow.
	at = time.Date(2026, 3, 10, 9, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, loc), NextOccurrence(at, 8, 0, loc))
}

func TestIsSameDayAcrossMidnight(t *testing.T) {
	loc := time.UTC
	before := time.Date(2026, 3, 10, 23, 59, 0, 0, loc)
	after := time.Date(2026, 3, 11, 0, 1, 0, 0, loc)

	assert.False(t, IsSameDay(before, after, loc))
	assert.True(t, IsSameDay(before, before.Add(-time.Hour), loc))
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2026, 3, 10, 23, 0, 0, 0, loc)
	b := time.Date(2026, 3, 11, 1, 0, 0, 0, loc)

	// Two hours apart but across midnight is one calendar day.
	assert.Equal(t, 1, DaysBetween(a, b, loc))
	assert.Equal(t, -1, DaysBetween(b, a, loc))
	assert.Equal(t, 0, DaysBetween(a, a.Add(-2*time.Hour), loc))
	assert.Equal(t, 3, DaysBetween(a, a.Add(3*24*time.Hour), loc))
}

func TestFormatCountdown(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2j 5h", FormatCountdown(now, now.Add(53*time.Hour)))
	assert.Equal(t, "3h 12min", FormatCountdown(now, now.Add(3*time.Hour+12*time.Minute)))
	assert.Equal(t, "45min", FormatCountdown(now, now.Add(45*time.Minute)))
	assert.Equal(t, "maintenant", FormatCountdown(now, now.Add(-time.Minute)))
}

func TestFormatFrench(t *testing.T) {
	// 12:00 UTC on a winter day is 13:00 in Paris.
	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "15/01/2026 13:00", FormatFrench(at))
}
