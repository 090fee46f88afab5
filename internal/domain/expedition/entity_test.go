package expedition

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestExpedition(t *testing.T, durationDays int) *Expedition {
	t.Helper()
	id, err := shared.NewExpeditionID(uuid.NewString())
	require.NoError(t, err)
	duration, err := shared.NewDurationDays(durationDays)
	require.NoError(t, err)
	exp, err := NewExpedition(id, "Vers la forêt", shared.TownID("bourgade-1"), duration, shared.CharacterID("alice"), testNow)
	require.NoError(t, err)
	return exp
}

func departedExpedition(t *testing.T, durationDays int, members ...shared.CharacterID) *Expedition {
	t.Helper()
	exp := newTestExpedition(t, durationDays)
	for _, m := range members {
		require.NoError(t, exp.AddMember(m, testNow, false))
	}
	require.NoError(t, exp.Lock(testNow, testNow.Add(time.Hour), false))
	require.NoError(t, exp.Depart(testNow))
	return exp
}

func TestNewExpedition_Validation(t *testing.T) {
	id, _ := shared.NewExpeditionID(uuid.NewString())

	_, err := NewExpedition(id, "", shared.TownID("bourgade-1"), 3, "alice", testNow)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewExpedition(id, "Sortie", shared.TownID("bourgade-1"), 0, "alice", testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	exp, err := NewExpedition(id, "Sortie", shared.TownID("bourgade-1"), 3, "alice", testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPlanning, exp.Status)
	assert.Empty(t, exp.Members)
	assert.Empty(t, exp.Path)
}

func TestStatus_Transitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPlanning, StatusLocked, true},
		{StatusPlanning, StatusReturned, true},
		{StatusPlanning, StatusDeparted, false},
		{StatusLocked, StatusDeparted, true},
		{StatusLocked, StatusReturned, true},
		{StatusLocked, StatusPlanning, false},
		{StatusDeparted, StatusReturned, true},
		{StatusDeparted, StatusLocked, false},
		{StatusReturned, StatusPlanning, false},
		{StatusReturned, StatusLocked, false},
		{StatusReturned, StatusDeparted, false},
		{StatusReturned, StatusReturned, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestLock_Cutoff(t *testing.T) {
	exp := newTestExpedition(t, 3)

	// Created at testNow, cutoff before creation: not due yet.
	err := exp.Lock(testNow.Add(time.Hour), testNow.Add(-time.Hour), false)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, StatusPlanning, exp.Status)

	// Force bypasses the cutoff.
	require.NoError(t, exp.Lock(testNow.Add(time.Hour), testNow.Add(-time.Hour), true))
	assert.Equal(t, StatusLocked, exp.Status)
}

func TestLock_DueAtMidnight(t *testing.T) {
	exp := newTestExpedition(t, 3)

	cutoff := testNow.Add(24 * time.Hour)
	require.NoError(t, exp.Lock(cutoff.Add(time.Minute), cutoff, false))
	assert.Equal(t, StatusLocked, exp.Status)

	// Locking twice is a state error.
	err := exp.Lock(cutoff.Add(time.Hour), cutoff, true)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestDepart_SetsReturnAt(t *testing.T) {
	exp := newTestExpedition(t, 4)
	require.NoError(t, exp.AddMember("alice", testNow, false))
	require.NoError(t, exp.Lock(testNow, testNow.Add(time.Hour), false))

	departAt := testNow.Add(8 * time.Hour)
	require.NoError(t, exp.Depart(departAt))

	assert.Equal(t, StatusDeparted, exp.Status)
	require.NotNil(t, exp.DepartedAt)
	require.NotNil(t, exp.ReturnAt)
	assert.Equal(t, departAt, *exp.DepartedAt)
	assert.Equal(t, departAt.Add(4*24*time.Hour), *exp.ReturnAt)
	assert.Empty(t, exp.Path)
}

func TestDepart_RequiresLocked(t *testing.T) {
	exp := newTestExpedition(t, 3)
	err := exp.Depart(testNow)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, StatusPlanning, stateErr.Current)
}

func TestReturn_ClearsVotesAndDirection(t *testing.T) {
	exp := departedExpedition(t, 3, "alice", "bob", "carol")

	_, err := exp.ToggleVote("alice", testNow.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, exp.SetDirection(DirectionNord, "bob", testNow.Add(time.Hour)))

	returnAt := testNow.Add(2 * time.Hour)
	require.NoError(t, exp.Return(returnAt, shared.ReturnReasonEmergency))

	assert.Equal(t, StatusReturned, exp.Status)
	assert.Equal(t, shared.ReturnReasonEmergency, exp.ReturnReason)
	require.NotNil(t, exp.ReturnedAt)
	assert.Equal(t, returnAt, *exp.ReturnedAt)
	assert.Empty(t, exp.Votes)
	assert.Nil(t, exp.CurrentDayDirection)
	assert.Nil(t, exp.DirectionSetAt)
}

func TestReturn_FromAnyActiveStatus(t *testing.T) {
	planning := newTestExpedition(t, 3)
	assert.NoError(t, planning.Return(testNow, shared.ReturnReasonAbandoned))

	locked := newTestExpedition(t, 3)
	require.NoError(t, locked.Lock(testNow, testNow.Add(time.Hour), false))
	assert.NoError(t, locked.Return(testNow, shared.ReturnReasonAdmin))

	// Returned is terminal.
	err := locked.Return(testNow.Add(time.Hour), shared.ReturnReasonAdmin)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestDueForReturn(t *testing.T) {
	exp := departedExpedition(t, 2, "alice")

	assert.False(t, exp.DueForReturn(testNow))
	assert.False(t, exp.DueForReturn(testNow.Add(47*time.Hour)))
	assert.True(t, exp.DueForReturn(testNow.Add(48*time.Hour)))
	assert.True(t, exp.DueForReturn(testNow.Add(72*time.Hour)))
}

func TestModifyDuration(t *testing.T) {
	exp := departedExpedition(t, 3, "alice")
	originalReturnAt := *exp.ReturnAt

	// Without recompute the deadline stays as departed.
	require.NoError(t, exp.ModifyDuration(5, false, testNow.Add(time.Hour)))
	assert.Equal(t, shared.DurationDays(5), exp.Duration)
	assert.Equal(t, originalReturnAt, *exp.ReturnAt)

	// With recompute the deadline moves relative to DepartedAt.
	require.NoError(t, exp.ModifyDuration(5, true, testNow.Add(time.Hour)))
	assert.Equal(t, exp.DepartedAt.Add(5*24*time.Hour), *exp.ReturnAt)

	// Out of range duration rejected.
	err := exp.ModifyDuration(0, false, testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	// Returned expeditions are immutable.
	require.NoError(t, exp.Return(testNow.Add(2*time.Hour), shared.ReturnReasonAdmin))
	err = exp.ModifyDuration(4, false, testNow.Add(3*time.Hour))
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestAddMember_StatusRules(t *testing.T) {
	exp := newTestExpedition(t, 3)

	require.NoError(t, exp.AddMember("alice", testNow, false))
	assert.Equal(t, 1, exp.MembersCount())

	// Duplicate join.
	err := exp.AddMember("alice", testNow, false)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	require.NoError(t, exp.Lock(testNow, testNow.Add(time.Hour), false))

	// Regular join is frozen outside planning.
	err = exp.AddMember("bob", testNow, false)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	// Admin can add while locked.
	require.NoError(t, exp.AddMember("bob", testNow, true))
	assert.Equal(t, 2, exp.MembersCount())

	// Nobody can touch a returned expedition.
	require.NoError(t, exp.Return(testNow, shared.ReturnReasonAdmin))
	err = exp.AddMember("carol", testNow, true)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestRemoveMember_DropsVote(t *testing.T) {
	exp := departedExpedition(t, 3, "alice", "bob", "carol")

	_, err := exp.ToggleVote("bob", testNow)
	require.NoError(t, err)
	assert.Len(t, exp.Votes, 1)

	// Regular leave is frozen while departed, admin removal works.
	err = exp.RemoveMember("bob", testNow, false)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	require.NoError(t, exp.RemoveMember("bob", testNow, true))
	assert.Equal(t, 2, exp.MembersCount())
	assert.Empty(t, exp.Votes)

	err = exp.RemoveMember("bob", testNow, true)
	assert.ErrorIs(t, err, shared.ErrNotAMember)
}

func TestMembersOrdered(t *testing.T) {
	exp := newTestExpedition(t, 3)
	require.NoError(t, exp.AddMember("carol", testNow.Add(2*time.Minute), false))
	require.NoError(t, exp.AddMember("alice", testNow, false))
	require.NoError(t, exp.AddMember("bob", testNow.Add(time.Minute), false))

	ordered := exp.MembersOrdered()
	require.Len(t, ordered, 3)
	assert.Equal(t, shared.CharacterID("alice"), ordered[0].CharacterID)
	assert.Equal(t, shared.CharacterID("bob"), ordered[1].CharacterID)
	assert.Equal(t, shared.CharacterID("carol"), ordered[2].CharacterID)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("DEPARTED")
	require.NoError(t, err)
	assert.Equal(t, StatusDeparted, s)
	assert.True(t, s.IsActive())

	_, err = ParseStatus("IN_TRANSIT")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	assert.False(t, StatusReturned.IsActive())
}
