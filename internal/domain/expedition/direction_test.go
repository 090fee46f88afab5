package expedition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("nord_est")
	require.NoError(t, err)
	assert.Equal(t, DirectionNordEst, d)

	d, err = ParseDirection("  SUD  ")
	require.NoError(t, err)
	assert.Equal(t, DirectionSud, d)

	_, err = ParseDirection("VERS_LA_MER")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	// The sentinel is not a player choice.
	_, err = ParseDirection("UNKNOWN")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestSetDirection(t *testing.T) {
	exp := departedExpedition(t, 3, "alice", "bob")

	require.NoError(t, exp.SetDirection(DirectionNord, "alice", testNow.Add(time.Hour)))
	require.NotNil(t, exp.CurrentDayDirection)
	assert.Equal(t, DirectionNord, *exp.CurrentDayDirection)
	assert.Equal(t, shared.CharacterID("alice"), exp.DirectionSetBy)

	// First writer wins for the day.
	err := exp.SetDirection(DirectionSud, "bob", testNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, shared.ErrAlreadySet)
	assert.Equal(t, DirectionNord, *exp.CurrentDayDirection)
}

func TestSetDirection_Rejections(t *testing.T) {
	exp := newTestExpedition(t, 3)
	require.NoError(t, exp.AddMember("alice", testNow, false))

	// Not departed yet.
	err := exp.SetDirection(DirectionNord, "alice", testNow)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	require.NoError(t, exp.Lock(testNow, testNow.Add(time.Hour), false))
	require.NoError(t, exp.Depart(testNow))

	// Non-member.
	err = exp.SetDirection(DirectionNord, "mallory", testNow.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrNotAMember)
}

func TestSetDirection_LastDayClosed(t *testing.T) {
	exp := departedExpedition(t, 3, "alice")

	// 25h before the deadline: still open.
	at := exp.ReturnAt.Add(-25 * time.Hour)
	require.NoError(t, exp.SetDirection(DirectionOuest, "alice", at))

	// Reset the day and move inside the last 24h window.
	exp.CurrentDayDirection = nil
	at = exp.ReturnAt.Add(-23 * time.Hour)
	err := exp.SetDirection(DirectionOuest, "alice", at)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.True(t, exp.IsLastDay(at))
}

func TestRolloverDay(t *testing.T) {
	exp := departedExpedition(t, 5, "alice")
	loc := time.UTC

	// Same calendar day as departure: nothing to roll.
	_, rolled, err := exp.RolloverDay(testNow.Add(2*time.Hour), loc)
	require.NoError(t, err)
	assert.False(t, rolled)
	assert.Empty(t, exp.Path)

	// Next day with a chosen direction.
	require.NoError(t, exp.SetDirection(DirectionEst, "alice", testNow.Add(3*time.Hour)))
	nextDay := testNow.Add(24 * time.Hour)
	d, rolled, err := exp.RolloverDay(nextDay, loc)
	require.NoError(t, err)
	assert.True(t, rolled)
	assert.Equal(t, DirectionEst, d)
	assert.Equal(t, []Direction{DirectionEst}, exp.Path)
	assert.Nil(t, exp.CurrentDayDirection)

	// Second tick the same day is a no-op.
	_, rolled, err = exp.RolloverDay(nextDay.Add(time.Hour), loc)
	require.NoError(t, err)
	assert.False(t, rolled)
	assert.Len(t, exp.Path, 1)

	// A day nobody chose rolls the unknown sentinel.
	d, rolled, err = exp.RolloverDay(testNow.Add(48*time.Hour), loc)
	require.NoError(t, err)
	assert.True(t, rolled)
	assert.Equal(t, DirectionUnknown, d)
	assert.Equal(t, []Direction{DirectionEst, DirectionUnknown}, exp.Path)
}

func TestRolloverDay_CatchesUpMissedDays(t *testing.T) {
	exp := departedExpedition(t, 5, "alice")
	loc := time.UTC

	// Three calendar days later the rollover is applied once per call until
	// the path has caught up.
	later := testNow.Add(3 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		_, rolled, err := exp.RolloverDay(later, loc)
		require.NoError(t, err)
		assert.True(t, rolled)
	}
	assert.Len(t, exp.Path, 3)

	_, rolled, err := exp.RolloverDay(later, loc)
	require.NoError(t, err)
	assert.False(t, rolled)
}

func TestRolloverDay_RequiresDeparted(t *testing.T) {
	exp := newTestExpedition(t, 3)
	_, _, err := exp.RolloverDay(testNow, time.UTC)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}
