package postgres

import (
	"context"
	"fmt"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/character"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/town"
)

// CharacterStore resolves character eligibility from the characters table.
// The table itself is owned by the character subsystem; expeditions only read.
type CharacterStore struct {
	conn *Connection
}

// NewCharacterStore creates a new CharacterStore.
func NewCharacterStore(conn *Connection) *CharacterStore {
	return &CharacterStore{conn: conn}
}

// Eligibility returns the character's alive/active flags.
func (s *CharacterStore) Eligibility(ctx context.Context, id shared.CharacterID) (character.Eligibility, error) {
	var elig character.Eligibility
	err := s.conn.QueryRow(ctx,
		"SELECT is_alive, is_active FROM characters WHERE id = $1",
		id.String()).Scan(&elig.Alive, &elig.Active)
	if IsNoRows(err) {
		return character.Eligibility{}, shared.ErrCharacterNotFound
	}
	if err != nil {
		return character.Eligibility{}, fmt.Errorf("postgres: read character: %w", err)
	}
	return elig, nil
}

// TownStore resolves towns from the towns table.
type TownStore struct {
	conn *Connection
}

// NewTownStore creates a new TownStore.
func NewTownStore(conn *Connection) *TownStore {
	return &TownStore{conn: conn}
}

// Exists reports whether the town is registered.
func (s *TownStore) Exists(ctx context.Context, id shared.TownID) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM towns WHERE id = $1)", id.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check town: %w", err)
	}
	return exists, nil
}

// Get returns the town projection.
func (s *TownStore) Get(ctx context.Context, id shared.TownID) (*town.Town, error) {
	t := town.Town{ID: id}
	var name string
	err := s.conn.QueryRow(ctx,
		"SELECT name FROM towns WHERE id = $1", id.String()).Scan(&name)
	if IsNoRows(err) {
		return nil, shared.ErrTownNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read town: %w", err)
	}
	t.Name = name
	return &t, nil
}
