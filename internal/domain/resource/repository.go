package resource

import (
	"context"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// Ledger is the stock-accounting port. Implementations must keep every
// balance non-negative and perform Transfer and MergeInto atomically with
// respect to other readers: no one may observe a transiently negative or
// half-moved balance. When a Ledger is obtained from a transaction scope,
// atomicity extends to the whole enclosing transaction.
type Ledger interface {
	// Balance returns the current quantity at the location, zero if no row
	// exists.
	Balance(ctx context.Context, loc Location, resourceTypeID int) (shared.Quantity, error)

	// Credit adds qty to the location, creating the row on first credit.
	Credit(ctx context.Context, loc Location, resourceTypeID int, qty shared.Quantity) error

	// Debit removes qty from the location. Fails with an
	// InsufficientStock error when the balance would go negative.
	Debit(ctx context.Context, loc Location, resourceTypeID int, qty shared.Quantity) error

	// Transfer moves qty between two distinct locations (debit then credit,
	// atomically). Fails with SameLocation or InsufficientStock.
	Transfer(ctx context.Context, from, to Location, resourceTypeID int, qty shared.Quantity) error

	// StocksAt lists all non-zero stock rows at the location.
	StocksAt(ctx context.Context, loc Location) ([]Stock, error)

	// MergeInto moves every remaining unit at from into to and zeroes from.
	// Used when a returning expedition folds its stock back into the town.
	MergeInto(ctx context.Context, from, to Location) error
}

// TypeRegistry resolves resource type names against the seeded catalog.
type TypeRegistry interface {
	// TypeByName returns the resource type for a name such as "Vivres".
	// Fails with a NotFound error when the catalog has no such entry.
	TypeByName(ctx context.Context, name string) (*ResourceType, error)

	// TypeByID returns the resource type for an ID.
	TypeByID(ctx context.Context, id int) (*ResourceType, error)
}
