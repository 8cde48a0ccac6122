package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	lead_id     SERIAL PRIMARY KEY,
	user_id     INTEGER NOT NULL,
	name        TEXT NOT NULL,
	email       TEXT,
	phone       TEXT,
	company     TEXT,
	position    TEXT,
	status      TEXT NOT NULL DEFAULT 'new',
	notes       TEXT,
	custom_data JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS leads_user_id_created_at_idx ON leads (user_id, created_at DESC);
`

// Migrate creates the leads table if it doesn't exist yet
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrating leads schema")
}
