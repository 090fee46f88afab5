// Package character declares the read-only port to the external character
// subsystem. Stats, hunger, and death are managed elsewhere; the expedition
// core only needs eligibility answers and never mutates characters.
package character

import (
	"context"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// Eligibility is the external subsystem's answer about a character.
type Eligibility struct {
	Alive  bool
	Active bool
}

// CanParticipate reports whether the character may join expeditions, vote,
// or set directions.
func (e Eligibility) CanParticipate() bool {
	return e.Alive && e.Active
}

// Store resolves character eligibility.
type Store interface {
	// Eligibility returns the character's state. Fails with a NotFound error
	// when the character does not exist.
	Eligibility(ctx context.Context, id shared.CharacterID) (Eligibility, error)
}

// EnsureEligible resolves eligibility and maps the answer onto the shared
// error taxonomy.
func EnsureEligible(ctx context.Context, store Store, id shared.CharacterID) error {
	elig, err := store.Eligibility(ctx, id)
	if err != nil {
		return err
	}
	if !elig.Alive {
		return shared.ErrCharacterDead
	}
	if !elig.Active {
		return shared.ErrCharacterInactive
	}
	return nil
}
