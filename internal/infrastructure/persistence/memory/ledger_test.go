package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

func TestLedger_CreditDebitBalance(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()
	town := resource.TownLocation("bourgade-1")

	bal, err := ledger.Balance(ctx, town, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Int())

	require.NoError(t, ledger.Credit(ctx, town, 1, 10))
	require.NoError(t, ledger.Debit(ctx, town, 1, 4))

	bal, err = ledger.Balance(ctx, town, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, bal.Int())

	// Non-positive quantities are rejected outright.
	assert.ErrorIs(t, ledger.Credit(ctx, town, 1, 0), shared.ErrNonPositiveQuantity)
	assert.ErrorIs(t, ledger.Debit(ctx, town, 1, -1), shared.ErrNonPositiveQuantity)
}

func TestLedger_DebitUnderflowLeavesBalanceIntact(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()
	town := resource.TownLocation("bourgade-1")

	require.NoError(t, ledger.Credit(ctx, town, 2, 3))

	err := ledger.Debit(ctx, town, 2, 5)
	assert.ErrorIs(t, err, shared.ErrStockUnderflow)

	bal, err := ledger.Balance(ctx, town, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, bal.Int())
}

func TestLedger_Transfer(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()
	town := resource.TownLocation("bourgade-1")
	exp := resource.ExpeditionLocation("9f2c7a40-7a27-4b5e-9a6e-3e1f0c2d4b5a")

	require.NoError(t, ledger.Credit(ctx, town, 1, 10))
	require.NoError(t, ledger.Transfer(ctx, town, exp, 1, 4))

	townBal, _ := ledger.Balance(ctx, town, 1)
	expBal, _ := ledger.Balance(ctx, exp, 1)
	assert.Equal(t, 6, townBal.Int())
	assert.Equal(t, 4, expBal.Int())

	// Source short of funds: nothing moves.
	err := ledger.Transfer(ctx, exp, town, 1, 7)
	assert.ErrorIs(t, err, shared.ErrStockUnderflow)
	expBal, _ = ledger.Balance(ctx, exp, 1)
	assert.Equal(t, 4, expBal.Int())

	// A location cannot transfer to itself.
	err = ledger.Transfer(ctx, town, town, 1, 1)
	assert.ErrorIs(t, err, shared.ErrTransferSameLocation)
}

func TestLedger_StocksAtSortedAndNonZero(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()
	town := resource.TownLocation("bourgade-1")

	store.SetStock(town, 3, 5)
	store.SetStock(town, 1, 2)
	require.NoError(t, ledger.Credit(ctx, town, 2, 1))
	require.NoError(t, ledger.Debit(ctx, town, 2, 1))

	stocks, err := ledger.StocksAt(ctx, town)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, 1, stocks[0].ResourceTypeID)
	assert.Equal(t, 2, stocks[0].Quantity.Int())
	assert.Equal(t, 3, stocks[1].ResourceTypeID)
	assert.Equal(t, 5, stocks[1].Quantity.Int())
}

func TestLedger_MergeInto(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()
	town := resource.TownLocation("bourgade-1")
	exp := resource.ExpeditionLocation("9f2c7a40-7a27-4b5e-9a6e-3e1f0c2d4b5a")

	store.SetStock(town, 1, 3)
	store.SetStock(exp, 1, 4)
	store.SetStock(exp, 2, 2)

	require.NoError(t, ledger.MergeInto(ctx, exp, town))

	vivres, _ := ledger.Balance(ctx, town, 1)
	bois, _ := ledger.Balance(ctx, town, 2)
	assert.Equal(t, 7, vivres.Int())
	assert.Equal(t, 2, bois.Int())

	left, err := ledger.StocksAt(ctx, exp)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, ledger.MergeInto(ctx, town, town), shared.ErrTransferSameLocation)
}
