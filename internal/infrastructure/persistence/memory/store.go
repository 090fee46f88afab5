// Package memory provides in-memory implementations of the persistence ports.
// They back the application-layer tests and local development mode; semantics
// mirror the postgres implementations, including transactional rollback.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/character"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/town"
)

// Store holds the whole world state behind one mutex. WithinTx snapshots the
// state and restores it when fn fails, so callers get the same all-or-nothing
// contract as with a real database transaction.
type Store struct {
	mu sync.Mutex

	expeditions map[string]*expedition.Expedition
	members     map[string]map[string]time.Time // expedition id -> character id -> joined at
	votes       map[string]map[string]struct{}  // expedition id -> character id set
	stocks      map[stockKey]int
	types       []resource.ResourceType
	characters  map[string]character.Eligibility
	towns       map[string]town.Town
}

type stockKey struct {
	kind   resource.LocationKind
	id     string
	typeID int
}

// NewStore creates an empty world with the base resource type catalog.
func NewStore() *Store {
	return &Store{
		expeditions: make(map[string]*expedition.Expedition),
		members:     make(map[string]map[string]time.Time),
		votes:       make(map[string]map[string]struct{}),
		stocks:      make(map[stockKey]int),
		types: []resource.ResourceType{
			{ID: 1, Name: "Vivres"},
			{ID: 2, Name: "Bois"},
			{ID: 3, Name: "Pierre"},
			{ID: 4, Name: "Ferraille"},
		},
		characters: make(map[string]character.Eligibility),
		towns:      make(map[string]town.Town),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WORLD SEEDING (test fixtures)
// ══════════════════════════════════════════════════════════════════════════════

// AddTown registers a town.
func (s *Store) AddTown(id shared.TownID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.towns[id.String()] = town.Town{ID: id, Name: name}
}

// AddCharacter registers a character with the given eligibility.
func (s *Store) AddCharacter(id shared.CharacterID, alive, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[id.String()] = character.Eligibility{Alive: alive, Active: active}
}

// SetStock sets an absolute balance, bypassing ledger rules.
func (s *Store) SetStock(loc resource.Location, resourceTypeID, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stockKey{kind: loc.Kind, id: loc.ID, typeID: resourceTypeID}
	if qty == 0 {
		delete(s.stocks, key)
		return
	}
	s.stocks[key] = qty
}

// ══════════════════════════════════════════════════════════════════════════════
// expedition.Store
// ══════════════════════════════════════════════════════════════════════════════

// GetByID loads an expedition with its members and votes.
func (s *Store) GetByID(ctx context.Context, id shared.ExpeditionID) (*expedition.Expedition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assemble(id)
}

// ListByTown returns the town's expeditions, newest first.
func (s *Store) ListByTown(ctx context.Context, townID shared.TownID, includeReturned bool) ([]*expedition.Expedition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *expedition.Expedition) bool {
		if e.TownID != townID {
			return false
		}
		return includeReturned || e.Status != expedition.StatusReturned
	}), nil
}

// ListAll returns all expeditions, newest first.
func (s *Store) ListAll(ctx context.Context, includeReturned bool) ([]*expedition.Expedition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *expedition.Expedition) bool {
		return includeReturned || e.Status != expedition.StatusReturned
	}), nil
}

// ListActiveForCharacter returns the character's non-returned expeditions.
func (s *Store) ListActiveForCharacter(ctx context.Context, characterID shared.CharacterID) ([]*expedition.Expedition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *expedition.Expedition) bool {
		if e.Status == expedition.StatusReturned {
			return false
		}
		_, ok := s.members[e.ID.String()][characterID.String()]
		return ok
	}), nil
}

// ListPlanningCreatedBefore returns ids of PLANNING expeditions created before cutoff.
func (s *Store) ListPlanningCreatedBefore(ctx context.Context, cutoff time.Time) ([]shared.ExpeditionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listIDs(func(e *expedition.Expedition) bool {
		return e.Status == expedition.StatusPlanning && e.CreatedAt.Before(cutoff)
	}), nil
}

// ListByStatus returns ids of expeditions in the given status.
func (s *Store) ListByStatus(ctx context.Context, status expedition.Status) ([]shared.ExpeditionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listIDs(func(e *expedition.Expedition) bool {
		return e.Status == status
	}), nil
}

// ListDepartedDue returns ids of DEPARTED expeditions past their return time.
func (s *Store) ListDepartedDue(ctx context.Context, now time.Time) ([]shared.ExpeditionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listIDs(func(e *expedition.Expedition) bool {
		return e.Status == expedition.StatusDeparted && e.ReturnAt != nil && !now.Before(*e.ReturnAt)
	}), nil
}

// WithinTx runs fn against the shared state under the lock. On error the
// pre-transaction snapshot is restored.
func (s *Store) WithinTx(ctx context.Context, fn func(tx expedition.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&memTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *Store) list(keep func(*expedition.Expedition) bool) []*expedition.Expedition {
	var out []*expedition.Expedition
	for id, e := range s.expeditions {
		if keep(e) {
			assembled, _ := s.assemble(shared.ExpeditionID(id))
			out = append(out, assembled)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) listIDs(keep func(*expedition.Expedition) bool) []shared.ExpeditionID {
	var out []shared.ExpeditionID
	for id, e := range s.expeditions {
		if keep(e) {
			out = append(out, shared.ExpeditionID(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// assemble builds a detached aggregate copy with members and votes attached.
func (s *Store) assemble(id shared.ExpeditionID) (*expedition.Expedition, error) {
	stored, ok := s.expeditions[id.String()]
	if !ok {
		return nil, shared.ErrExpeditionNotFound
	}
	e := cloneExpedition(stored)

	e.Members = []expedition.Member{}
	for characterID, joinedAt := range s.members[id.String()] {
		e.Members = append(e.Members, expedition.Member{
			CharacterID: shared.CharacterID(characterID),
			JoinedAt:    joinedAt,
		})
	}
	sort.Slice(e.Members, func(i, j int) bool {
		a, b := e.Members[i], e.Members[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.CharacterID < b.CharacterID
	})

	e.Votes = []shared.CharacterID{}
	for characterID := range s.votes[id.String()] {
		e.Votes = append(e.Votes, shared.CharacterID(characterID))
	}
	sort.Slice(e.Votes, func(i, j int) bool { return e.Votes[i] < e.Votes[j] })
	return e, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// expedition.Tx
// ══════════════════════════════════════════════════════════════════════════════

type memTx struct {
	store *Store
}

func (t *memTx) Get(ctx context.Context, id shared.ExpeditionID) (*expedition.Expedition, error) {
	return t.store.assemble(id)
}

func (t *memTx) Insert(ctx context.Context, e *expedition.Expedition) error {
	if _, exists := t.store.expeditions[e.ID.String()]; exists {
		return shared.ErrAlreadyExists
	}
	t.store.expeditions[e.ID.String()] = cloneExpedition(e)
	return nil
}

func (t *memTx) Save(ctx context.Context, e *expedition.Expedition) error {
	if _, exists := t.store.expeditions[e.ID.String()]; !exists {
		return shared.ErrExpeditionNotFound
	}
	t.store.expeditions[e.ID.String()] = cloneExpedition(e)
	return nil
}

func (t *memTx) AddMember(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID, joinedAt time.Time) error {
	rows := t.store.members[id.String()]
	if rows == nil {
		rows = make(map[string]time.Time)
		t.store.members[id.String()] = rows
	}
	if _, exists := rows[characterID.String()]; exists {
		return shared.ErrAlreadyMember
	}
	// Mirrors the partial unique index on active memberships: the insert
	// itself refuses a character who is already on another live expedition.
	busy, err := t.HasActiveMembership(ctx, characterID, id)
	if err != nil {
		return err
	}
	if busy {
		return shared.ErrAlreadyOnExpedition
	}
	rows[characterID.String()] = joinedAt
	return nil
}

func (t *memTx) RemoveMember(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID) error {
	rows := t.store.members[id.String()]
	if _, exists := rows[characterID.String()]; !exists {
		return shared.ErrCharacterNotMember
	}
	delete(rows, characterID.String())
	return nil
}

// ReleaseMembers is satisfied by Save: membership activity is derived from
// the stored expedition's status, so flipping it to RETURNED releases the
// roster without a separate flag.
func (t *memTx) ReleaseMembers(ctx context.Context, id shared.ExpeditionID) error {
	return nil
}

func (t *memTx) HasActiveMembership(ctx context.Context, characterID shared.CharacterID, exclude shared.ExpeditionID) (bool, error) {
	for expID, rows := range t.store.members {
		if expID == exclude.String() {
			continue
		}
		if _, ok := rows[characterID.String()]; !ok {
			continue
		}
		if e, exists := t.store.expeditions[expID]; exists && e.Status != expedition.StatusReturned {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) SetVote(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID, voted bool) error {
	set := t.store.votes[id.String()]
	if set == nil {
		set = make(map[string]struct{})
		t.store.votes[id.String()] = set
	}
	if voted {
		set[characterID.String()] = struct{}{}
	} else {
		delete(set, characterID.String())
	}
	return nil
}

func (t *memTx) ClearVotes(ctx context.Context, id shared.ExpeditionID) error {
	delete(t.store.votes, id.String())
	return nil
}

func (t *memTx) Stocks() resource.Ledger {
	return &memLedger{store: t.store}
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT / RESTORE
// ══════════════════════════════════════════════════════════════════════════════

type worldSnapshot struct {
	expeditions map[string]*expedition.Expedition
	members     map[string]map[string]time.Time
	votes       map[string]map[string]struct{}
	stocks      map[stockKey]int
}

func (s *Store) snapshot() worldSnapshot {
	snap := worldSnapshot{
		expeditions: make(map[string]*expedition.Expedition, len(s.expeditions)),
		members:     make(map[string]map[string]time.Time, len(s.members)),
		votes:       make(map[string]map[string]struct{}, len(s.votes)),
		stocks:      make(map[stockKey]int, len(s.stocks)),
	}
	for id, e := range s.expeditions {
		snap.expeditions[id] = cloneExpedition(e)
	}
	for id, rows := range s.members {
		copied := make(map[string]time.Time, len(rows))
		for k, v := range rows {
			copied[k] = v
		}
		snap.members[id] = copied
	}
	for id, set := range s.votes {
		copied := make(map[string]struct{}, len(set))
		for k := range set {
			copied[k] = struct{}{}
		}
		snap.votes[id] = copied
	}
	for k, v := range s.stocks {
		snap.stocks[k] = v
	}
	return snap
}

func (s *Store) restore(snap worldSnapshot) {
	s.expeditions = snap.expeditions
	s.members = snap.members
	s.votes = snap.votes
	s.stocks = snap.stocks
}

// cloneExpedition deep-copies the aggregate's owned state. Members and votes
// are not copied: the store keeps them in separate row maps.
func cloneExpedition(e *expedition.Expedition) *expedition.Expedition {
	copied := *e
	copied.Path = append([]expedition.Direction{}, e.Path...)
	if e.CurrentDayDirection != nil {
		d := *e.CurrentDayDirection
		copied.CurrentDayDirection = &d
	}
	copied.DirectionSetAt = cloneTime(e.DirectionSetAt)
	copied.DepartedAt = cloneTime(e.DepartedAt)
	copied.ReturnAt = cloneTime(e.ReturnAt)
	copied.ReturnedAt = cloneTime(e.ReturnedAt)
	copied.Members = nil
	copied.Votes = nil
	return &copied
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ══════════════════════════════════════════════════════════════════════════════
// character.Store / town.Store
// ══════════════════════════════════════════════════════════════════════════════

// Eligibility resolves a registered character.
func (s *Store) Eligibility(ctx context.Context, id shared.CharacterID) (character.Eligibility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elig, ok := s.characters[id.String()]
	if !ok {
		return character.Eligibility{}, shared.ErrCharacterNotFound
	}
	return elig, nil
}

// Exists reports whether the town is registered.
func (s *Store) Exists(ctx context.Context, id shared.TownID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.towns[id.String()]
	return ok, nil
}

// Get returns the town projection.
func (s *Store) Get(ctx context.Context, id shared.TownID) (*town.Town, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.towns[id.String()]
	if !ok {
		return nil, shared.ErrTownNotFound
	}
	return &t, nil
}
