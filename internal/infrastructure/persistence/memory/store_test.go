package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

func seedExpedition(t *testing.T, store *Store, rawID string, now time.Time) shared.ExpeditionID {
	t.Helper()
	id, err := shared.NewExpeditionID(rawID)
	require.NoError(t, err)
	duration, err := shared.NewDurationDays(3)
	require.NoError(t, err)
	exp, err := expedition.NewExpedition(id, "Sortie "+rawID[:4], "bourgade-1", duration, "alice", now)
	require.NoError(t, err)
	require.NoError(t, store.WithinTx(context.Background(), func(tx expedition.Tx) error {
		return tx.Insert(context.Background(), exp)
	}))
	return id
}

func TestAddMember_OneActiveExpeditionPerCharacter(t *testing.T) {
	store := NewStore()
	store.AddTown("bourgade-1", "La Bourgade")
	store.AddCharacter("alice", true, true)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := seedExpedition(t, store, "9f2c7a40-7a27-4b5e-9a6e-3e1f0c2d4b5a", now)
	second := seedExpedition(t, store, "1b8d5e60-2c3f-4a7d-8e9b-6a0c1d2e3f40", now)

	require.NoError(t, store.WithinTx(ctx, func(tx expedition.Tx) error {
		return tx.AddMember(ctx, first, "alice", now)
	}))

	// The same seat twice on one roster is a plain duplicate.
	err := store.WithinTx(ctx, func(tx expedition.Tx) error {
		return tx.AddMember(ctx, first, "alice", now)
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyMember)

	// A second live expedition is refused by the insert itself, not by a
	// prior lookup, so two racing joins cannot both slip through.
	err = store.WithinTx(ctx, func(tx expedition.Tx) error {
		return tx.AddMember(ctx, second, "alice", now)
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyOnExpedition)

	// Once the first expedition returns, the character is free again.
	exp, err := store.GetByID(ctx, first)
	require.NoError(t, err)
	require.NoError(t, exp.Return(now, shared.ReturnReasonAdmin))
	require.NoError(t, store.WithinTx(ctx, func(tx expedition.Tx) error {
		if err := tx.ReleaseMembers(ctx, first); err != nil {
			return err
		}
		return tx.Save(ctx, exp)
	}))

	require.NoError(t, store.WithinTx(ctx, func(tx expedition.Tx) error {
		return tx.AddMember(ctx, second, "alice", now)
	}))
}

func TestWithinTx_RollsBackMembershipOnError(t *testing.T) {
	store := NewStore()
	store.AddTown("bourgade-1", "La Bourgade")
	store.AddCharacter("alice", true, true)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	id := seedExpedition(t, store, "9f2c7a40-7a27-4b5e-9a6e-3e1f0c2d4b5a", now)

	boom := assert.AnError
	err := store.WithinTx(ctx, func(tx expedition.Tx) error {
		if err := tx.AddMember(ctx, id, "alice", now); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	busy := false
	require.NoError(t, store.WithinTx(ctx, func(tx expedition.Tx) error {
		var err error
		busy, err = tx.HasActiveMembership(ctx, "alice", "1b8d5e60-2c3f-4a7d-8e9b-6a0c1d2e3f40")
		return err
	}))
	assert.False(t, busy)
}
