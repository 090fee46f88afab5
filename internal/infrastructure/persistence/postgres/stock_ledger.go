package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STOCK LEDGER
// Implements resource.Ledger on any Querier, so the same code serves both
// pool-level reads and transaction-scoped mutations. Debit relies on a
// conditional UPDATE plus the quantity >= 0 CHECK, never on read-then-write.
// ══════════════════════════════════════════════════════════════════════════════

// StockLedger persists stock balances in the resource_stocks table.
type StockLedger struct {
	q Querier
}

// NewStockLedger creates a ledger over the pool for read paths and
// standalone admin credits.
func NewStockLedger(conn *Connection) *StockLedger {
	return &StockLedger{q: conn}
}

// Balance returns the current quantity, zero when no row exists.
func (l *StockLedger) Balance(ctx context.Context, loc resource.Location, resourceTypeID int) (shared.Quantity, error) {
	var qty int
	err := l.q.QueryRow(ctx, `
		SELECT quantity FROM resource_stocks
		WHERE location_type = $1 AND location_id = $2 AND resource_type_id = $3`,
		string(loc.Kind), loc.ID, resourceTypeID).Scan(&qty)
	if IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: read balance: %w", err)
	}
	return shared.Quantity(qty), nil
}

// Credit adds qty to the location, creating the row on first credit.
func (l *StockLedger) Credit(ctx context.Context, loc resource.Location, resourceTypeID int, qty shared.Quantity) error {
	if qty <= 0 {
		return shared.ErrNonPositiveQuantity
	}
	_, err := l.q.Exec(ctx, `
		INSERT INTO resource_stocks (location_type, location_id, resource_type_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (location_type, location_id, resource_type_id)
		DO UPDATE SET quantity = resource_stocks.quantity + EXCLUDED.quantity,
		              updated_at = EXCLUDED.updated_at`,
		string(loc.Kind), loc.ID, resourceTypeID, qty.Int(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: credit stock: %w", err)
	}
	return nil
}

// Debit removes qty. The WHERE quantity >= $qty guard makes the check and
// the write one atomic statement.
func (l *StockLedger) Debit(ctx context.Context, loc resource.Location, resourceTypeID int, qty shared.Quantity) error {
	if qty <= 0 {
		return shared.ErrNonPositiveQuantity
	}
	tag, err := l.q.Exec(ctx, `
		UPDATE resource_stocks
		SET quantity = quantity - $4, updated_at = $5
		WHERE location_type = $1 AND location_id = $2 AND resource_type_id = $3
		  AND quantity >= $4`,
		string(loc.Kind), loc.ID, resourceTypeID, qty.Int(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: debit stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStockUnderflow
	}
	return nil
}

// Transfer moves qty between two locations as debit then credit. Callers
// that need cross-statement atomicity obtain the ledger from a transaction.
func (l *StockLedger) Transfer(ctx context.Context, from, to resource.Location, resourceTypeID int, qty shared.Quantity) error {
	if err := resource.ValidateTransfer(from, to, qty); err != nil {
		return err
	}
	if err := l.Debit(ctx, from, resourceTypeID, qty); err != nil {
		return err
	}
	return l.Credit(ctx, to, resourceTypeID, qty)
}

// StocksAt lists all non-zero stock rows at the location.
func (l *StockLedger) StocksAt(ctx context.Context, loc resource.Location) ([]resource.Stock, error) {
	rows, err := l.q.Query(ctx, `
		SELECT resource_type_id, quantity FROM resource_stocks
		WHERE location_type = $1 AND location_id = $2 AND quantity > 0
		ORDER BY resource_type_id`,
		string(loc.Kind), loc.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stocks: %w", err)
	}
	defer rows.Close()

	var out []resource.Stock
	for rows.Next() {
		s := resource.Stock{Location: loc}
		var qty int
		if err := rows.Scan(&s.ResourceTypeID, &qty); err != nil {
			return nil, err
		}
		s.Quantity = shared.Quantity(qty)
		out = append(out, s)
	}
	return out, rows.Err()
}

// MergeInto folds every remaining unit at from into to and removes the
// source rows.
func (l *StockLedger) MergeInto(ctx context.Context, from, to resource.Location) error {
	if from.Equal(to) {
		return shared.ErrTransferSameLocation
	}
	_, err := l.q.Exec(ctx, `
		INSERT INTO resource_stocks (location_type, location_id, resource_type_id, quantity, updated_at)
		SELECT $3, $4, resource_type_id, quantity, $5
		FROM resource_stocks
		WHERE location_type = $1 AND location_id = $2 AND quantity > 0
		ON CONFLICT (location_type, location_id, resource_type_id)
		DO UPDATE SET quantity = resource_stocks.quantity + EXCLUDED.quantity,
		              updated_at = EXCLUDED.updated_at`,
		string(from.Kind), from.ID, string(to.Kind), to.ID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: merge stocks: %w", err)
	}
	_, err = l.q.Exec(ctx, `
		DELETE FROM resource_stocks
		WHERE location_type = $1 AND location_id = $2`,
		string(from.Kind), from.ID)
	if err != nil {
		return fmt.Errorf("postgres: clear merged stocks: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TYPE REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// ResourceTypeRegistry resolves the seeded resource type catalog.
type ResourceTypeRegistry struct {
	q Querier
}

// NewResourceTypeRegistry creates a registry over the pool.
func NewResourceTypeRegistry(conn *Connection) *ResourceTypeRegistry {
	return &ResourceTypeRegistry{q: conn}
}

// TypeByName resolves a catalog entry by its exact name.
func (r *ResourceTypeRegistry) TypeByName(ctx context.Context, name string) (*resource.ResourceType, error) {
	var t resource.ResourceType
	err := r.q.QueryRow(ctx,
		"SELECT id, name FROM resource_types WHERE name = $1", name).Scan(&t.ID, &t.Name)
	if IsNoRows(err) {
		return nil, shared.ErrResourceTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve resource type: %w", err)
	}
	return &t, nil
}

// TypeByID resolves a catalog entry by ID.
func (r *ResourceTypeRegistry) TypeByID(ctx context.Context, id int) (*resource.ResourceType, error) {
	var t resource.ResourceType
	err := r.q.QueryRow(ctx,
		"SELECT id, name FROM resource_types WHERE id = $1", id).Scan(&t.ID, &t.Name)
	if IsNoRows(err) {
		return nil, shared.ErrResourceTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve resource type: %w", err)
	}
	return &t, nil
}
