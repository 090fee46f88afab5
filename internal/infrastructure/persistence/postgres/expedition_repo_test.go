package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

func TestMemberInsertError(t *testing.T) {
	assert.NoError(t, memberInsertError(nil))

	// The partial unique index on active memberships fires when a character
	// tries to board a second live expedition.
	busy := &pgconn.PgError{Code: "23505", ConstraintName: oneActiveMembershipIndex}
	assert.ErrorIs(t, memberInsertError(busy), shared.ErrAlreadyOnExpedition)

	// Any other unique violation is the roster's own primary key.
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "expedition_members_pkey"}
	assert.ErrorIs(t, memberInsertError(dup), shared.ErrAlreadyMember)

	// Unrelated errors pass through untouched.
	boom := errors.New("connection reset")
	assert.Same(t, boom, memberInsertError(boom))
	fk := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(fk), memberInsertError(fk))
}

func TestGetMigrations_SequentialAndReversible(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}

func TestGetMigrations_OneActiveMembershipArbiter(t *testing.T) {
	migrations := GetMigrations()
	last := migrations[len(migrations)-1]
	assert.Equal(t, "one_active_expedition_per_character", last.Name)
	assert.Contains(t, last.UpSQL, "CREATE UNIQUE INDEX IF NOT EXISTS "+oneActiveMembershipIndex)
	assert.Contains(t, last.UpSQL, "WHERE is_active")
	// The index only covers the character column, so it rejects a second
	// active row regardless of which expedition it belongs to.
	assert.True(t, strings.Contains(last.UpSQL, "ON expedition_members(character_id)"))
	assert.Contains(t, last.DownSQL, "DROP INDEX IF EXISTS "+oneActiveMembershipIndex)
}
