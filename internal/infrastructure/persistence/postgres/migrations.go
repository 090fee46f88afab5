package postgres

// Embedded migrations for the expedition schema. Each migration is applied in
// its own transaction by the Migrator; the quantity CHECK on resource_stocks
// is the final guard against negative balances regardless of application bugs.

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_world",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_expeditions",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_resource_stocks",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "one_active_expedition_per_character",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: towns, characters, resource type catalog
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS towns (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS characters (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    town_id    TEXT REFERENCES towns(id),
    is_alive   BOOLEAN NOT NULL DEFAULT TRUE,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_characters_town ON characters(town_id);

CREATE TABLE IF NOT EXISTS resource_types (
    id   SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

-- Base catalog; further types are added by game operators.
INSERT INTO resource_types (name) VALUES
    ('Vivres'),
    ('Bois'),
    ('Pierre'),
    ('Ferraille')
ON CONFLICT (name) DO NOTHING;
`

const migration001Down = `
DROP TABLE IF EXISTS resource_types;
DROP TABLE IF EXISTS characters;
DROP TABLE IF EXISTS towns;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: expeditions, members, emergency votes
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS expeditions (
    id                    UUID PRIMARY KEY,
    name                  TEXT NOT NULL,
    town_id               TEXT NOT NULL REFERENCES towns(id),
    status                TEXT NOT NULL DEFAULT 'PLANNING'
                          CHECK (status IN ('PLANNING', 'LOCKED', 'DEPARTED', 'RETURNED')),
    duration_days         INTEGER NOT NULL CHECK (duration_days >= 1),
    path                  TEXT[] NOT NULL DEFAULT '{}',
    current_day_direction TEXT,
    direction_set_by      TEXT,
    direction_set_at      TIMESTAMP WITH TIME ZONE,
    departed_at           TIMESTAMP WITH TIME ZONE,
    return_at             TIMESTAMP WITH TIME ZONE,
    returned_at           TIMESTAMP WITH TIME ZONE,
    return_reason         TEXT,
    created_by            TEXT NOT NULL,
    created_at            TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_expeditions_town ON expeditions(town_id);
CREATE INDEX IF NOT EXISTS idx_expeditions_status ON expeditions(status);
CREATE INDEX IF NOT EXISTS idx_expeditions_return_at
    ON expeditions(return_at) WHERE status = 'DEPARTED';

CREATE TABLE IF NOT EXISTS expedition_members (
    expedition_id UUID NOT NULL REFERENCES expeditions(id) ON DELETE CASCADE,
    character_id  TEXT NOT NULL,
    joined_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (expedition_id, character_id)
);

CREATE INDEX IF NOT EXISTS idx_expedition_members_character
    ON expedition_members(character_id);

CREATE TABLE IF NOT EXISTS expedition_votes (
    expedition_id UUID NOT NULL REFERENCES expeditions(id) ON DELETE CASCADE,
    character_id  TEXT NOT NULL,
    voted_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (expedition_id, character_id)
);
`

const migration002Down = `
DROP TABLE IF EXISTS expedition_votes;
DROP TABLE IF EXISTS expedition_members;
DROP TABLE IF EXISTS expeditions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: resource stock ledger
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS resource_stocks (
    location_type    TEXT NOT NULL CHECK (location_type IN ('CITY', 'EXPEDITION')),
    location_id      TEXT NOT NULL,
    resource_type_id INTEGER NOT NULL REFERENCES resource_types(id),
    quantity         INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    updated_at       TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (location_type, location_id, resource_type_id)
);

CREATE INDEX IF NOT EXISTS idx_resource_stocks_location
    ON resource_stocks(location_type, location_id);
`

const migration003Down = `
DROP TABLE IF EXISTS resource_stocks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: one active expedition per character
// ══════════════════════════════════════════════════════════════════════════════

// The application checks membership before inserting, but under READ COMMITTED
// two concurrent joins against different expeditions pass that check together.
// The partial unique index is the final arbiter: membership rows are flagged
// inactive when the expedition returns, so only live memberships compete.
const migration004Up = `
ALTER TABLE expedition_members
    ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE;

UPDATE expedition_members m
SET is_active = FALSE
FROM expeditions e
WHERE e.id = m.expedition_id AND e.status = 'RETURNED';

CREATE UNIQUE INDEX IF NOT EXISTS uq_expedition_members_one_active
    ON expedition_members(character_id) WHERE is_active;
`

const migration004Down = `
DROP INDEX IF EXISTS uq_expedition_members_one_active;
ALTER TABLE expedition_members DROP COLUMN IF EXISTS is_active;
`
