package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/application/command"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/persistence/memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST HARNESS
// ══════════════════════════════════════════════════════════════════════════════

// recordingBus собирает опубликованные события для проверок.
type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

// env - мир одного теста: in-memory хранилище, шина и управляемые часы.
type env struct {
	store *memory.Store
	bus   *recordingBus
	now   time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store: memory.NewStore(),
		bus:   &recordingBus{},
		now:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	e.store.AddTown("bourgade-1", "La Bourgade")
	e.store.AddCharacter("alice", true, true)
	e.store.AddCharacter("bob", true, true)
	e.store.AddCharacter("carol", true, true)
	e.store.AddCharacter("ghost", false, true)
	e.store.AddCharacter("sleeper", true, false)
	return e
}

func (e *env) clock() command.Clock {
	return func() time.Time { return e.now }
}

func (e *env) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *env) createHandler() *command.CreateExpeditionHandler {
	return command.NewCreateExpeditionHandler(e.store, e.store, e.store, e.store, e.bus, e.clock())
}

func (e *env) create(t *testing.T, name string, durationDays int, createdBy string) shared.ExpeditionID {
	t.Helper()
	res, err := e.createHandler().Handle(context.Background(), command.CreateExpeditionCommand{
		Name:         name,
		TownID:       "bourgade-1",
		DurationDays: durationDays,
		CreatedBy:    createdBy,
	})
	require.NoError(t, err)
	id, err := shared.NewExpeditionID(res.ExpeditionID)
	require.NoError(t, err)
	return id
}

func (e *env) join(t *testing.T, id shared.ExpeditionID, characterID string) {
	t.Helper()
	h := command.NewJoinExpeditionHandler(e.store, e.store, e.bus, e.clock())
	_, err := h.Handle(context.Background(), command.JoinExpeditionCommand{
		ExpeditionID: id.String(),
		CharacterID:  characterID,
	})
	require.NoError(t, err)
}

func (e *env) transfer(t *testing.T, id shared.ExpeditionID, characterID, resType string, qty int, direction string) {
	t.Helper()
	h := command.NewTransferResourceHandler(e.store, e.store, e.bus, e.clock())
	_, err := h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(),
		CharacterID:  characterID,
		ResourceType: resType,
		Quantity:     qty,
		Direction:    direction,
	})
	require.NoError(t, err)
}

func (e *env) lockForce(t *testing.T, id shared.ExpeditionID) {
	t.Helper()
	h := command.NewLockExpeditionHandler(e.store, e.bus, time.UTC, e.clock())
	_, err := h.Handle(context.Background(), command.LockExpeditionCommand{ExpeditionID: id.String(), Force: true})
	require.NoError(t, err)
}

func (e *env) depart(t *testing.T, id shared.ExpeditionID) {
	t.Helper()
	h := command.NewDepartExpeditionHandler(e.store, e.bus, e.clock())
	_, err := h.Handle(context.Background(), command.DepartExpeditionCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
}

func (e *env) expedition(t *testing.T, id shared.ExpeditionID) *expedition.Expedition {
	t.Helper()
	exp, err := e.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return exp
}

func (e *env) townBalance(t *testing.T, typeID int) int {
	t.Helper()
	bal, err := e.store.Ledger().Balance(context.Background(), resource.TownLocation("bourgade-1"), typeID)
	require.NoError(t, err)
	return bal.Int()
}

func (e *env) expeditionBalance(t *testing.T, id shared.ExpeditionID, typeID int) int {
	t.Helper()
	bal, err := e.store.Ledger().Balance(context.Background(), resource.ExpeditionLocation(id), typeID)
	require.NoError(t, err)
	return bal.Int()
}

// Resource type IDs seeded by the in-memory catalogue.
const (
	typeVivres = 1
	typeBois   = 2
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateExpedition(t *testing.T) {
	e := newEnv(t)

	id := e.create(t, "Vers la forêt", 3, "alice")

	exp := e.expedition(t, id)
	assert.Equal(t, expedition.StatusPlanning, exp.Status)
	assert.Equal(t, 1, exp.MembersCount())
	assert.True(t, exp.IsMember("alice"))
	assert.Contains(t, e.bus.Types(), shared.EventExpeditionCreated)
}

func TestCreateExpedition_InitialGrant(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeVivres, 10)

	res, err := e.createHandler().Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "alice",
		InitialResources: []command.ResourceGrant{{ResourceType: "Vivres", Quantity: 10}},
	})
	require.NoError(t, err)
	id, err := shared.NewExpeditionID(res.ExpeditionID)
	require.NoError(t, err)

	// The grant moves from the town into the new expedition at creation.
	assert.Equal(t, 10, e.expeditionBalance(t, id, typeVivres))
	assert.Equal(t, 0, e.townBalance(t, typeVivres))
	assert.Contains(t, e.bus.Types(), shared.EventResourceTransferred)
}

func TestCreateExpedition_InsufficientGrantAbortsCreation(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeVivres, 3)
	h := e.createHandler()

	_, err := h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "alice",
		InitialResources: []command.ResourceGrant{{ResourceType: "Vivres", Quantity: 5}},
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	// The whole transaction rolled back: no expedition, town stock intact.
	all, listErr := e.store.ListAll(context.Background(), true)
	require.NoError(t, listErr)
	assert.Empty(t, all)
	assert.Equal(t, 3, e.townBalance(t, typeVivres))

	// Unknown resource type in the grant.
	_, err = h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "alice",
		InitialResources: []command.ResourceGrant{{ResourceType: "Or", Quantity: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Non-positive grant quantity.
	_, err = h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "alice",
		InitialResources: []command.ResourceGrant{{ResourceType: "Vivres", Quantity: 0}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateExpedition_Rejections(t *testing.T) {
	e := newEnv(t)
	h := e.createHandler()

	// Unknown town.
	_, err := h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "atlantis", DurationDays: 3, CreatedBy: "alice",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Dead and inactive characters cannot create.
	_, err = h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "ghost",
	})
	assert.ErrorIs(t, err, shared.ErrNotEligible)

	_, err = h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Sortie", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "sleeper",
	})
	assert.ErrorIs(t, err, shared.ErrNotEligible)

	// One active expedition per character: the creator of a live expedition
	// cannot found a second one.
	e.create(t, "Première", 3, "alice")
	_, err = h.Handle(context.Background(), command.CreateExpeditionCommand{
		Name: "Deuxième", TownID: "bourgade-1", DurationDays: 3, CreatedBy: "alice",
	})
	assert.ErrorIs(t, err, shared.ErrNotEligible)
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMBERSHIP
// ══════════════════════════════════════════════════════════════════════════════

func TestJoinExpedition(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 3, "alice")

	h := command.NewJoinExpeditionHandler(e.store, e.store, e.bus, e.clock())
	res, err := h.Handle(context.Background(), command.JoinExpeditionCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MembersCount)

	// Double join.
	_, err = h.Handle(context.Background(), command.JoinExpeditionCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// Busy elsewhere.
	e.create(t, "Autre sortie", 3, "carol")
	_, err = h.Handle(context.Background(), command.JoinExpeditionCommand{
		ExpeditionID: id.String(), CharacterID: "carol",
	})
	assert.ErrorIs(t, err, shared.ErrNotEligible)
}

func TestLeaveExpedition_LastMemberTerminates(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeVivres, 10)
	id := e.create(t, "Sortie", 3, "alice")

	// The creator loads 4 Vivres, then leaves: the expedition dissolves and
	// the stock returns to town.
	e.transfer(t, id, "alice", "Vivres", 4, "toExpedition")
	require.Equal(t, 6, e.townBalance(t, typeVivres))
	require.Equal(t, 4, e.expeditionBalance(t, id, typeVivres))

	h := command.NewLeaveExpeditionHandler(e.store, e.bus, e.clock())
	res, err := h.Handle(context.Background(), command.LeaveExpeditionCommand{
		ExpeditionID: id.String(), CharacterID: "alice",
	})
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, 0, res.MembersCount)

	exp := e.expedition(t, id)
	assert.Equal(t, expedition.StatusReturned, exp.Status)
	assert.Equal(t, shared.ReturnReasonAbandoned, exp.ReturnReason)
	assert.Equal(t, 10, e.townBalance(t, typeVivres))
	assert.Equal(t, 0, e.expeditionBalance(t, id, typeVivres))
}

func TestLeaveExpedition_NotLastMember(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 3, "alice")
	e.join(t, id, "bob")

	h := command.NewLeaveExpeditionHandler(e.store, e.bus, e.clock())
	res, err := h.Handle(context.Background(), command.LeaveExpeditionCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
	})
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.Equal(t, 1, res.MembersCount)
	assert.Equal(t, expedition.StatusPlanning, e.expedition(t, id).Status)

	// A non-member cannot leave.
	_, err = h.Handle(context.Background(), command.LeaveExpeditionCommand{
		ExpeditionID: id.String(), CharacterID: "carol",
	})
	assert.ErrorIs(t, err, shared.ErrNotAMember)
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSFERS
// ══════════════════════════════════════════════════════════════════════════════

func TestTransferRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeVivres, 10)
	id := e.create(t, "Sortie", 3, "alice")

	// toExpedition then toTown of the same quantity restores both balances.
	e.transfer(t, id, "alice", "Vivres", 5, "toExpedition")
	assert.Equal(t, 5, e.townBalance(t, typeVivres))
	assert.Equal(t, 5, e.expeditionBalance(t, id, typeVivres))

	e.transfer(t, id, "alice", "Vivres", 5, "toTown")
	assert.Equal(t, 10, e.townBalance(t, typeVivres))
	assert.Equal(t, 0, e.expeditionBalance(t, id, typeVivres))
}

func TestTransfer_InsufficientStockLeavesBalanceIntact(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeBois, 3)
	id := e.create(t, "Sortie", 3, "alice")
	e.transfer(t, id, "alice", "Bois", 3, "toExpedition")

	h := command.NewTransferResourceHandler(e.store, e.store, e.bus, e.clock())
	_, err := h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(), CharacterID: "alice",
		ResourceType: "Bois", Quantity: 5, Direction: "toTown",
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	// Debiting 5 from 3 failed and left the 3 in place.
	assert.Equal(t, 3, e.expeditionBalance(t, id, typeBois))
	assert.Equal(t, 0, e.townBalance(t, typeBois))
}

func TestTransfer_StatusAndMembershipRules(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeVivres, 10)
	id := e.create(t, "Sortie", 3, "alice")

	h := command.NewTransferResourceHandler(e.store, e.store, e.bus, e.clock())

	// Non-member cannot move stock.
	_, err := h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
		ResourceType: "Vivres", Quantity: 1, Direction: "toExpedition",
	})
	assert.ErrorIs(t, err, shared.ErrNotAMember)

	// Unknown resource type.
	_, err = h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(), CharacterID: "alice",
		ResourceType: "Or", Quantity: 1, Direction: "toExpedition",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Player transfers freeze at lock; the admin override keeps working.
	e.lockForce(t, id)
	_, err = h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(), CharacterID: "alice",
		ResourceType: "Vivres", Quantity: 1, Direction: "toExpedition",
	})
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	res, err := h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(),
		ResourceType: "Vivres", Quantity: 2, Direction: "toExpedition",
		AsAdmin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.TownBalance)
	assert.Equal(t, 2, res.ExpeditionBalance)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

func TestLockExpedition_Cutoff(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 3, "alice")

	h := command.NewLockExpeditionHandler(e.store, e.bus, time.UTC, e.clock())

	// Created today: the scheduled lock does not apply yet.
	_, err := h.Handle(context.Background(), command.LockExpeditionCommand{ExpeditionID: id.String()})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, expedition.StatusPlanning, e.expedition(t, id).Status)

	// Next game day the lock applies.
	e.advance(24 * time.Hour)
	res, err := h.Handle(context.Background(), command.LockExpeditionCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, expedition.StatusLocked, res.Status)
	assert.False(t, res.Terminated)
}

func TestDepartAndScheduledReturn(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 2, "alice")
	e.lockForce(t, id)

	departH := command.NewDepartExpeditionHandler(e.store, e.bus, e.clock())
	res, err := departH.Handle(context.Background(), command.DepartExpeditionCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, expedition.StatusDeparted, res.Status)
	assert.Equal(t, e.now.Add(2*24*time.Hour), res.ReturnAt)

	returnH := command.NewReturnExpeditionHandler(e.store, e.bus, e.clock())

	// Not due yet: the sweep skips without error.
	skipped, err := returnH.Handle(context.Background(), command.ReturnExpeditionCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.True(t, skipped.Skipped)
	assert.Equal(t, expedition.StatusDeparted, e.expedition(t, id).Status)

	// Past the deadline the expedition comes home.
	e.advance(49 * time.Hour)
	done, err := returnH.Handle(context.Background(), command.ReturnExpeditionCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.False(t, done.Skipped)
	assert.Equal(t, shared.ReturnReasonExpired, done.Reason)
	assert.Equal(t, expedition.StatusReturned, e.expedition(t, id).Status)
}

func TestSetDirectionAndRollover(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 5, "alice")
	e.lockForce(t, id)
	e.depart(t, id)

	setH := command.NewSetDirectionHandler(e.store, e.bus, e.clock())
	_, err := setH.Handle(context.Background(), command.SetDirectionCommand{
		ExpeditionID: id.String(), CharacterID: "alice", Direction: "est",
	})
	require.NoError(t, err)

	// Second choice the same day is refused.
	_, err = setH.Handle(context.Background(), command.SetDirectionCommand{
		ExpeditionID: id.String(), CharacterID: "alice", Direction: "sud",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadySet)

	rollH := command.NewRolloverDayHandler(e.store, e.bus, time.UTC, e.clock())

	// Same game day: nothing to roll.
	res, err := rollH.Handle(context.Background(), command.RolloverDayCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.False(t, res.Rolled)

	e.advance(24 * time.Hour)
	res, err = rollH.Handle(context.Background(), command.RolloverDayCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.True(t, res.Rolled)
	assert.Equal(t, expedition.DirectionEst, res.Direction)
	assert.Equal(t, 1, res.PathLength)

	exp := e.expedition(t, id)
	assert.Equal(t, []expedition.Direction{expedition.DirectionEst}, exp.Path)
	assert.Nil(t, exp.CurrentDayDirection)
}

func TestEmergencyVoteQuorumReturnsImmediately(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeBois, 10)
	id := e.create(t, "Sortie", 5, "alice")
	e.join(t, id, "bob")
	e.join(t, id, "carol")
	e.transfer(t, id, "alice", "Bois", 4, "toExpedition")
	e.lockForce(t, id)
	e.depart(t, id)

	h := command.NewToggleEmergencyVoteHandler(e.store, e.bus, e.clock())

	res, err := h.Handle(context.Background(), command.ToggleEmergencyVoteCommand{
		ExpeditionID: id.String(), CharacterID: "alice",
	})
	require.NoError(t, err)
	assert.False(t, res.Returned)
	assert.Equal(t, 1, res.Vote.TotalVotes)

	// The second vote of three members reaches the majority and the same call
	// brings the expedition home with its cargo.
	res, err = h.Handle(context.Background(), command.ToggleEmergencyVoteCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
	})
	require.NoError(t, err)
	assert.True(t, res.Returned)
	assert.True(t, res.Vote.ThresholdReached)

	exp := e.expedition(t, id)
	assert.Equal(t, expedition.StatusReturned, exp.Status)
	assert.Equal(t, shared.ReturnReasonEmergency, exp.ReturnReason)
	assert.Empty(t, exp.Votes)
	assert.Equal(t, 10, e.townBalance(t, typeBois))
	assert.Equal(t, 0, e.expeditionBalance(t, id, typeBois))
	assert.Contains(t, e.bus.Types(), shared.EventExpeditionReturned)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN OVERRIDES
// ══════════════════════════════════════════════════════════════════════════════

func TestForceReturnMergesStocks(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeBois, 7)
	id := e.create(t, "Sortie", 3, "alice")
	e.transfer(t, id, "alice", "Bois", 4, "toExpedition")
	require.Equal(t, 3, e.townBalance(t, typeBois))

	h := command.NewForceReturnHandler(e.store, e.bus, e.clock())
	res, err := h.Handle(context.Background(), command.ForceReturnCommand{ExpeditionID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, expedition.StatusReturned, res.Status)

	exp := e.expedition(t, id)
	assert.Equal(t, shared.ReturnReasonAdmin, exp.ReturnReason)
	assert.Equal(t, 7, e.townBalance(t, typeBois))
	assert.Equal(t, 0, e.expeditionBalance(t, id, typeBois))

	// Returned is terminal even for admins.
	_, err = h.Handle(context.Background(), command.ForceReturnCommand{ExpeditionID: id.String()})
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestModifyExpedition(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 3, "alice")

	h := command.NewModifyExpeditionHandler(e.store, e.clock())

	res, err := h.Handle(context.Background(), command.ModifyExpeditionCommand{
		ExpeditionID: id.String(), Name: "Grande sortie", DurationDays: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Grande sortie", res.Name)
	assert.Equal(t, 5, res.DurationDays)

	exp := e.expedition(t, id)
	assert.Equal(t, "Grande sortie", exp.Name)
	assert.Equal(t, shared.DurationDays(5), exp.Duration)

	// A modification that changes nothing is a validation error.
	_, err = h.Handle(context.Background(), command.ModifyExpeditionCommand{ExpeditionID: id.String()})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAdminMemberOverrides(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "Sortie", 3, "alice")
	e.lockForce(t, id)

	h := command.NewAdminMemberHandler(e.store, e.bus, e.clock())

	// Regular joins are frozen after lock, admin add is not.
	res, err := h.HandleAdd(context.Background(), command.AdminMemberCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MembersCount)
	assert.False(t, res.Terminated)

	res, err = h.HandleRemove(context.Background(), command.AdminMemberCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MembersCount)
}

func TestAdminRemovalShiftsQuorumAndReturns(t *testing.T) {
	e := newEnv(t)
	e.store.AddCharacter("dave", true, true)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeBois, 10)
	id := e.create(t, "Sortie", 5, "alice")
	e.join(t, id, "bob")
	e.join(t, id, "carol")
	e.join(t, id, "dave")
	e.transfer(t, id, "alice", "Bois", 4, "toExpedition")
	e.lockForce(t, id)
	e.depart(t, id)

	voteH := command.NewToggleEmergencyVoteHandler(e.store, e.bus, e.clock())
	for _, voter := range []string{"alice", "bob"} {
		res, err := voteH.Handle(context.Background(), command.ToggleEmergencyVoteCommand{
			ExpeditionID: id.String(), CharacterID: voter,
		})
		require.NoError(t, err)
		// 2 of 4 is a tie, not a majority.
		assert.False(t, res.Returned)
	}

	// Removing a non-voter shrinks the roster to 3: the surviving 2 votes are
	// now a strict majority and the expedition comes home in the same call.
	h := command.NewAdminMemberHandler(e.store, e.bus, e.clock())
	res, err := h.HandleRemove(context.Background(), command.AdminMemberCommand{
		ExpeditionID: id.String(), CharacterID: "carol",
	})
	require.NoError(t, err)
	assert.True(t, res.Returned)
	assert.False(t, res.Terminated)

	exp := e.expedition(t, id)
	assert.Equal(t, expedition.StatusReturned, exp.Status)
	assert.Equal(t, shared.ReturnReasonEmergency, exp.ReturnReason)
	assert.Equal(t, 10, e.townBalance(t, typeBois))
	assert.Equal(t, 0, e.expeditionBalance(t, id, typeBois))
}

func TestTransfer_ZeroQuantityIsNoOp(t *testing.T) {
	e := newEnv(t)
	e.store.SetStock(resource.TownLocation("bourgade-1"), typeVivres, 10)
	id := e.create(t, "Sortie", 3, "alice")

	h := command.NewTransferResourceHandler(e.store, e.store, e.bus, e.clock())

	// Zero moves nothing in either direction and is not an error.
	for _, direction := range []string{"toExpedition", "toTown"} {
		res, err := h.Handle(context.Background(), command.TransferResourceCommand{
			ExpeditionID: id.String(), CharacterID: "alice",
			ResourceType: "Vivres", Quantity: 0, Direction: direction,
		})
		require.NoError(t, err)
		assert.Equal(t, 10, res.TownBalance)
		assert.Equal(t, 0, res.ExpeditionBalance)
	}
	assert.NotContains(t, e.bus.Types(), shared.EventResourceTransferred)

	// The access rules still apply to a zero transfer.
	_, err := h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(), CharacterID: "bob",
		ResourceType: "Vivres", Quantity: 0, Direction: "toTown",
	})
	assert.ErrorIs(t, err, shared.ErrNotAMember)

	// Negative is still rejected.
	_, err = h.Handle(context.Background(), command.TransferResourceCommand{
		ExpeditionID: id.String(), CharacterID: "alice",
		ResourceType: "Vivres", Quantity: -1, Direction: "toTown",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
