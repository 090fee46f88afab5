package memory

import (
	"context"
	"sort"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// memLedger implements resource.Ledger on the store's stock map. The
// tx-scoped variant runs under the lock WithinTx already holds; the
// standalone variant locks per call.
type memLedger struct {
	store    *Store
	external bool
}

// Ledger returns a standalone ledger for read paths and fixtures.
func (s *Store) Ledger() resource.Ledger {
	return &memLedger{store: s, external: true}
}

func (l *memLedger) lock() func() {
	if !l.external {
		return func() {}
	}
	l.store.mu.Lock()
	return l.store.mu.Unlock
}

func (l *memLedger) Balance(ctx context.Context, loc resource.Location, resourceTypeID int) (shared.Quantity, error) {
	defer l.lock()()
	return shared.Quantity(l.store.stocks[stockKey{kind: loc.Kind, id: loc.ID, typeID: resourceTypeID}]), nil
}

func (l *memLedger) Credit(ctx context.Context, loc resource.Location, resourceTypeID int, qty shared.Quantity) error {
	if qty <= 0 {
		return shared.ErrNonPositiveQuantity
	}
	defer l.lock()()
	l.store.stocks[stockKey{kind: loc.Kind, id: loc.ID, typeID: resourceTypeID}] += qty.Int()
	return nil
}

func (l *memLedger) Debit(ctx context.Context, loc resource.Location, resourceTypeID int, qty shared.Quantity) error {
	if qty <= 0 {
		return shared.ErrNonPositiveQuantity
	}
	defer l.lock()()
	key := stockKey{kind: loc.Kind, id: loc.ID, typeID: resourceTypeID}
	if l.store.stocks[key] < qty.Int() {
		return shared.ErrStockUnderflow
	}
	l.store.stocks[key] -= qty.Int()
	if l.store.stocks[key] == 0 {
		delete(l.store.stocks, key)
	}
	return nil
}

func (l *memLedger) Transfer(ctx context.Context, from, to resource.Location, resourceTypeID int, qty shared.Quantity) error {
	if err := resource.ValidateTransfer(from, to, qty); err != nil {
		return err
	}
	defer l.lock()()
	fromKey := stockKey{kind: from.Kind, id: from.ID, typeID: resourceTypeID}
	if l.store.stocks[fromKey] < qty.Int() {
		return shared.ErrStockUnderflow
	}
	l.store.stocks[fromKey] -= qty.Int()
	if l.store.stocks[fromKey] == 0 {
		delete(l.store.stocks, fromKey)
	}
	l.store.stocks[stockKey{kind: to.Kind, id: to.ID, typeID: resourceTypeID}] += qty.Int()
	return nil
}

func (l *memLedger) StocksAt(ctx context.Context, loc resource.Location) ([]resource.Stock, error) {
	defer l.lock()()
	var out []resource.Stock
	for key, qty := range l.store.stocks {
		if key.kind == loc.Kind && key.id == loc.ID && qty > 0 {
			out = append(out, resource.Stock{
				Location:       loc,
				ResourceTypeID: key.typeID,
				Quantity:       shared.Quantity(qty),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceTypeID < out[j].ResourceTypeID })
	return out, nil
}

func (l *memLedger) MergeInto(ctx context.Context, from, to resource.Location) error {
	if from.Equal(to) {
		return shared.ErrTransferSameLocation
	}
	defer l.lock()()
	for key, qty := range l.store.stocks {
		if key.kind != from.Kind || key.id != from.ID {
			continue
		}
		delete(l.store.stocks, key)
		if qty > 0 {
			l.store.stocks[stockKey{kind: to.Kind, id: to.ID, typeID: key.typeID}] += qty
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// resource.TypeRegistry
// ══════════════════════════════════════════════════════════════════════════════

// TypeByName resolves a catalog entry by its exact name.
func (s *Store) TypeByName(ctx context.Context, name string) (*resource.ResourceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.types {
		if t.Name == name {
			found := t
			return &found, nil
		}
	}
	return nil, shared.ErrResourceTypeNotFound
}

// TypeByID resolves a catalog entry by ID.
func (s *Store) TypeByID(ctx context.Context, id int) (*resource.ResourceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.types {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, shared.ErrResourceTypeNotFound
}
