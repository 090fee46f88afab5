package expedition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

func TestToggleVote_Quorum(t *testing.T) {
	// 2 of 3 is a strict majority.
	exp := departedExpedition(t, 3, "alice", "bob", "carol")

	res, err := exp.ToggleVote("alice", testNow)
	require.NoError(t, err)
	assert.True(t, res.Voted)
	assert.Equal(t, 1, res.TotalVotes)
	assert.Equal(t, 3, res.MembersCount)
	assert.False(t, res.ThresholdReached)

	res, err = exp.ToggleVote("bob", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalVotes)
	assert.True(t, res.ThresholdReached)
}

func TestToggleVote_TieIsNotQuorum(t *testing.T) {
	// 2 of 4 is a tie, not a majority.
	exp := departedExpedition(t, 3, "alice", "bob", "carol", "dave")

	_, err := exp.ToggleVote("alice", testNow)
	require.NoError(t, err)
	res, err := exp.ToggleVote("bob", testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalVotes)
	assert.Equal(t, 4, res.MembersCount)
	assert.False(t, res.ThresholdReached)

	res, err = exp.ToggleVote("carol", testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalVotes)
	assert.True(t, res.ThresholdReached)
}

func TestToggleVote_TogglePairIsIdentity(t *testing.T) {
	exp := departedExpedition(t, 3, "alice", "bob", "carol")

	res, err := exp.ToggleVote("alice", testNow)
	require.NoError(t, err)
	assert.True(t, res.Voted)
	assert.True(t, exp.HasVoted("alice"))

	res, err = exp.ToggleVote("alice", testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Voted)
	assert.Equal(t, 0, res.TotalVotes)
	assert.False(t, exp.HasVoted("alice"))
	assert.Empty(t, exp.Votes)
}

func TestToggleVote_Rejections(t *testing.T) {
	exp := newTestExpedition(t, 3)
	require.NoError(t, exp.AddMember("alice", testNow, false))

	// Votes are only open while departed.
	_, err := exp.ToggleVote("alice", testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, exp.Lock(testNow, testNow.Add(time.Hour), false))
	require.NoError(t, exp.Depart(testNow))

	// Non-member cannot vote.
	_, err = exp.ToggleVote("mallory", testNow)
	assert.ErrorIs(t, err, shared.ErrNotAMember)
}

func TestQuorumShiftsWithMembership(t *testing.T) {
	exp := departedExpedition(t, 3, "alice", "bob", "carol", "dave")

	_, err := exp.ToggleVote("alice", testNow)
	require.NoError(t, err)
	_, err = exp.ToggleVote("bob", testNow)
	require.NoError(t, err)
	assert.False(t, exp.QuorumReached())

	// Admin removes a non-voter: 2 of 3 is now a majority.
	require.NoError(t, exp.RemoveMember("dave", testNow, true))
	assert.True(t, exp.QuorumReached())
}
