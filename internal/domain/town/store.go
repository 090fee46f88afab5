// Package town declares the read-only port to the town registry. Towns are
// owned by another subsystem; the expedition core only verifies existence
// and reads names for display.
package town

import (
	"context"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// Town is the minimal projection the expedition core needs.
type Town struct {
	ID   shared.TownID
	Name string
}

// Store resolves towns.
type Store interface {
	// Exists reports whether the town is registered.
	Exists(ctx context.Context, id shared.TownID) (bool, error)

	// Get returns the town projection. Fails with a NotFound error when the
	// town does not exist.
	Get(ctx context.Context, id shared.TownID) (*Town, error)
}
