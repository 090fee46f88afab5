package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPEDITION REPOSITORY
// Implements expedition.Store on pgxpool. All mutations go through WithinTx;
// the expedition row is locked FOR UPDATE for the duration of the transaction
// so concurrent joins, votes, and lifecycle ticks serialize on the row.
// ══════════════════════════════════════════════════════════════════════════════

const expeditionColumns = `
	id, name, town_id, status, duration_days, path,
	current_day_direction, direction_set_by, direction_set_at,
	departed_at, return_at, returned_at, return_reason,
	created_by, created_at, updated_at`

// ExpeditionRepository persists expeditions in PostgreSQL.
type ExpeditionRepository struct {
	conn *Connection
}

// NewExpeditionRepository creates a new ExpeditionRepository.
func NewExpeditionRepository(conn *Connection) *ExpeditionRepository {
	return &ExpeditionRepository{conn: conn}
}

// GetByID loads an expedition with its members and votes.
func (r *ExpeditionRepository) GetByID(ctx context.Context, id shared.ExpeditionID) (*expedition.Expedition, error) {
	query := fmt.Sprintf("SELECT %s FROM expeditions WHERE id = $1", expeditionColumns)
	exp, err := scanExpedition(r.conn.QueryRow(ctx, query, id.String()))
	if err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, r.conn, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// ListByTown returns the town's expeditions, newest first.
func (r *ExpeditionRepository) ListByTown(ctx context.Context, townID shared.TownID, includeReturned bool) ([]*expedition.Expedition, error) {
	query := fmt.Sprintf("SELECT %s FROM expeditions WHERE town_id = $1", expeditionColumns)
	if !includeReturned {
		query += " AND status != 'RETURNED'"
	}
	query += " ORDER BY created_at DESC"
	return r.queryExpeditions(ctx, query, townID.String())
}

// ListAll returns all expeditions (admin overview).
func (r *ExpeditionRepository) ListAll(ctx context.Context, includeReturned bool) ([]*expedition.Expedition, error) {
	query := fmt.Sprintf("SELECT %s FROM expeditions", expeditionColumns)
	if !includeReturned {
		query += " WHERE status != 'RETURNED'"
	}
	query += " ORDER BY created_at DESC"
	return r.queryExpeditions(ctx, query)
}

// ListActiveForCharacter returns the character's non-returned expeditions.
func (r *ExpeditionRepository) ListActiveForCharacter(ctx context.Context, characterID shared.CharacterID) ([]*expedition.Expedition, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM expeditions e
		WHERE e.status != 'RETURNED'
		  AND EXISTS (
			SELECT 1 FROM expedition_members m
			WHERE m.expedition_id = e.id AND m.character_id = $1
		  )
		ORDER BY e.created_at DESC`, prefixColumns("e"))
	return r.queryExpeditions(ctx, query, characterID.String())
}

// ListPlanningCreatedBefore returns ids of PLANNING expeditions created
// before cutoff - candidates for the scheduled lock.
func (r *ExpeditionRepository) ListPlanningCreatedBefore(ctx context.Context, cutoff time.Time) ([]shared.ExpeditionID, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM expeditions WHERE status = 'PLANNING' AND created_at < $1 ORDER BY created_at",
		cutoff)
}

// ListByStatus returns ids of expeditions in the given status.
func (r *ExpeditionRepository) ListByStatus(ctx context.Context, status expedition.Status) ([]shared.ExpeditionID, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM expeditions WHERE status = $1 ORDER BY created_at",
		status.String())
}

// ListDepartedDue returns ids of DEPARTED expeditions whose return time has
// passed.
func (r *ExpeditionRepository) ListDepartedDue(ctx context.Context, now time.Time) ([]shared.ExpeditionID, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM expeditions WHERE status = 'DEPARTED' AND return_at <= $1 ORDER BY return_at",
		now)
}

// WithinTx runs fn in one database transaction. The resource ledger returned
// by Tx.Stocks shares the same transaction.
func (r *ExpeditionRepository) WithinTx(ctx context.Context, fn func(tx expedition.Tx) error) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(pgTx pgx.Tx) error {
		return fn(&expeditionTx{q: pgTx})
	})
}

func (r *ExpeditionRepository) queryExpeditions(ctx context.Context, query string, args ...interface{}) ([]*expedition.Expedition, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expeditions: %w", err)
	}
	defer rows.Close()

	var out []*expedition.Expedition
	for rows.Next() {
		exp, err := scanExpedition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, exp := range out {
		if err := loadRelations(ctx, r.conn, exp); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *ExpeditionRepository) queryIDs(ctx context.Context, query string, args ...interface{}) ([]shared.ExpeditionID, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expedition ids: %w", err)
	}
	defer rows.Close()

	var ids []shared.ExpeditionID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, shared.ExpeditionID(id))
	}
	return ids, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION SCOPE
// ══════════════════════════════════════════════════════════════════════════════

type expeditionTx struct {
	q pgx.Tx
}

// Get loads the expedition under a row lock.
func (t *expeditionTx) Get(ctx context.Context, id shared.ExpeditionID) (*expedition.Expedition, error) {
	query := fmt.Sprintf("SELECT %s FROM expeditions WHERE id = $1 FOR UPDATE", expeditionColumns)
	exp, err := scanExpedition(t.q.QueryRow(ctx, query, id.String()))
	if err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, t.q, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// Insert stores a new expedition row.
func (t *expeditionTx) Insert(ctx context.Context, e *expedition.Expedition) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO expeditions (
			id, name, town_id, status, duration_days, path,
			current_day_direction, direction_set_by, direction_set_at,
			departed_at, return_at, returned_at, return_reason,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID.String(), e.Name, e.TownID.String(), e.Status.String(), e.Duration.Int(),
		pathToStrings(e.Path), directionPtr(e.CurrentDayDirection), nullString(e.DirectionSetBy.String()),
		e.DirectionSetAt, e.DepartedAt, e.ReturnAt, e.ReturnedAt, nullString(string(e.ReturnReason)),
		e.CreatedBy.String(), e.CreatedAt, e.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return shared.WrapError("expedition", "Insert", shared.ErrAlreadyExists, "expedition already exists", err)
	}
	return err
}

// Save updates the aggregate's scalar fields and path.
func (t *expeditionTx) Save(ctx context.Context, e *expedition.Expedition) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE expeditions SET
			name = $2, status = $3, duration_days = $4, path = $5,
			current_day_direction = $6, direction_set_by = $7, direction_set_at = $8,
			departed_at = $9, return_at = $10, returned_at = $11, return_reason = $12,
			updated_at = $13
		WHERE id = $1`,
		e.ID.String(), e.Name, e.Status.String(), e.Duration.Int(), pathToStrings(e.Path),
		directionPtr(e.CurrentDayDirection), nullString(e.DirectionSetBy.String()), e.DirectionSetAt,
		e.DepartedAt, e.ReturnAt, e.ReturnedAt, nullString(string(e.ReturnReason)), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save expedition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrExpeditionNotFound
	}
	return nil
}

// oneActiveMembershipIndex is the partial unique index on
// expedition_members(character_id) WHERE is_active: the final arbiter of
// concurrent joins against different expeditions.
const oneActiveMembershipIndex = "uq_expedition_members_one_active"

// AddMember inserts an active membership row. Unique violations distinguish a
// duplicate join to the same expedition (primary key) from a concurrent join
// to another active one (partial unique index).
func (t *expeditionTx) AddMember(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID, joinedAt time.Time) error {
	_, err := t.q.Exec(ctx,
		"INSERT INTO expedition_members (expedition_id, character_id, joined_at, is_active) VALUES ($1, $2, $3, TRUE)",
		id.String(), characterID.String(), joinedAt)
	return memberInsertError(err)
}

// memberInsertError maps a membership insert failure onto the domain error
// matching the violated constraint.
func memberInsertError(err error) error {
	if err == nil {
		return nil
	}
	if UniqueConstraint(err) == oneActiveMembershipIndex {
		return shared.ErrAlreadyOnExpedition
	}
	if IsUniqueViolation(err) {
		return shared.ErrAlreadyMember
	}
	return err
}

// RemoveMember deletes a membership row.
func (t *expeditionTx) RemoveMember(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID) error {
	tag, err := t.q.Exec(ctx,
		"DELETE FROM expedition_members WHERE expedition_id = $1 AND character_id = $2",
		id.String(), characterID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCharacterNotMember
	}
	return nil
}

// HasActiveMembership reports whether the character belongs to another
// non-returned expedition. The is_active flag is the same signal the unique
// index arbitrates on, so the check and the constraint cannot disagree.
func (t *expeditionTx) HasActiveMembership(ctx context.Context, characterID shared.CharacterID, exclude shared.ExpeditionID) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM expedition_members m
			WHERE m.character_id = $1 AND m.is_active AND m.expedition_id != $2
		)`,
		characterID.String(), exclude.String()).Scan(&exists)
	return exists, err
}

// ReleaseMembers flags the expedition's membership rows inactive, freeing the
// characters for new expeditions while keeping the roster for history.
func (t *expeditionTx) ReleaseMembers(ctx context.Context, id shared.ExpeditionID) error {
	_, err := t.q.Exec(ctx,
		"UPDATE expedition_members SET is_active = FALSE WHERE expedition_id = $1",
		id.String())
	return err
}

// SetVote records or withdraws an emergency vote.
func (t *expeditionTx) SetVote(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID, voted bool) error {
	if voted {
		_, err := t.q.Exec(ctx, `
			INSERT INTO expedition_votes (expedition_id, character_id)
			VALUES ($1, $2)
			ON CONFLICT (expedition_id, character_id) DO NOTHING`,
			id.String(), characterID.String())
		return err
	}
	_, err := t.q.Exec(ctx,
		"DELETE FROM expedition_votes WHERE expedition_id = $1 AND character_id = $2",
		id.String(), characterID.String())
	return err
}

// ClearVotes deletes all votes of an expedition.
func (t *expeditionTx) ClearVotes(ctx context.Context, id shared.ExpeditionID) error {
	_, err := t.q.Exec(ctx,
		"DELETE FROM expedition_votes WHERE expedition_id = $1", id.String())
	return err
}

// Stocks returns a ledger bound to this transaction.
func (t *expeditionTx) Stocks() resource.Ledger {
	return &StockLedger{q: t.q}
}

// ══════════════════════════════════════════════════════════════════════════════
// SCANNING
// ══════════════════════════════════════════════════════════════════════════════

func scanExpedition(row pgx.Row) (*expedition.Expedition, error) {
	var (
		e            expedition.Expedition
		id, townID   string
		status       string
		durationDays int
		path         []string
		currentDir   *string
		setBy        *string
		returnReason *string
		createdBy    string
	)

	err := row.Scan(
		&id, &e.Name, &townID, &status, &durationDays, &path,
		&currentDir, &setBy, &e.DirectionSetAt,
		&e.DepartedAt, &e.ReturnAt, &e.ReturnedAt, &returnReason,
		&createdBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrExpeditionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan expedition: %w", err)
	}

	e.ID = shared.ExpeditionID(id)
	e.TownID = shared.TownID(townID)
	e.Status = expedition.Status(status)
	e.Duration = shared.DurationDays(durationDays)
	e.CreatedBy = shared.CharacterID(createdBy)
	e.Path = make([]expedition.Direction, len(path))
	for i, d := range path {
		e.Path[i] = expedition.Direction(d)
	}
	if currentDir != nil {
		d := expedition.Direction(*currentDir)
		e.CurrentDayDirection = &d
	}
	if setBy != nil {
		e.DirectionSetBy = shared.CharacterID(*setBy)
	}
	if returnReason != nil {
		e.ReturnReason = shared.ReturnReason(*returnReason)
	}
	e.Members = []expedition.Member{}
	e.Votes = []shared.CharacterID{}
	return &e, nil
}

// loadRelations attaches members and votes to the aggregate.
func loadRelations(ctx context.Context, q Querier, e *expedition.Expedition) error {
	rows, err := q.Query(ctx,
		"SELECT character_id, joined_at FROM expedition_members WHERE expedition_id = $1 ORDER BY joined_at",
		e.ID.String())
	if err != nil {
		return fmt.Errorf("postgres: load members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m expedition.Member
		var characterID string
		if err := rows.Scan(&characterID, &m.JoinedAt); err != nil {
			return err
		}
		m.CharacterID = shared.CharacterID(characterID)
		e.Members = append(e.Members, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	voteRows, err := q.Query(ctx,
		"SELECT character_id FROM expedition_votes WHERE expedition_id = $1 ORDER BY voted_at",
		e.ID.String())
	if err != nil {
		return fmt.Errorf("postgres: load votes: %w", err)
	}
	defer voteRows.Close()
	for voteRows.Next() {
		var characterID string
		if err := voteRows.Scan(&characterID); err != nil {
			return err
		}
		e.Votes = append(e.Votes, shared.CharacterID(characterID))
	}
	return voteRows.Err()
}

func prefixColumns(alias string) string {
	return fmt.Sprintf(`
	%[1]s.id, %[1]s.name, %[1]s.town_id, %[1]s.status, %[1]s.duration_days, %[1]s.path,
	%[1]s.current_day_direction, %[1]s.direction_set_by, %[1]s.direction_set_at,
	%[1]s.departed_at, %[1]s.return_at, %[1]s.returned_at, %[1]s.return_reason,
	%[1]s.created_by, %[1]s.created_at, %[1]s.updated_at`, alias)
}

func pathToStrings(path []expedition.Direction) []string {
	out := make([]string, len(path))
	for i, d := range path {
		out[i] = d.String()
	}
	return out
}

func directionPtr(d *expedition.Direction) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
