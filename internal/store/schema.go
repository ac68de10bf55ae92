// Package store holds the persistence adapters: Postgres for drafts,
// favourites and session state, and DynamoDB as an alternative session
// backend for serverless deployments.
package store

import (
	"context"
	"fmt"
)

// Schema creates the tables the Postgres adapters use. Drafts keep the
// export payload as JSONB with field names unchanged, so existing documents
// load without migration.
const Schema = `
CREATE TABLE IF NOT EXISTS export_drafts (
	user_id         TEXT        NOT NULL,
	document_number TEXT        NOT NULL,
	contact_id      TEXT        NOT NULL DEFAULT '',
	payload         JSONB       NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, document_number)
);

CREATE TABLE IF NOT EXISTS session_records (
	user_id    TEXT        NOT NULL,
	contact_id TEXT        NOT NULL DEFAULT '',
	key        TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, contact_id, key)
);

CREATE INDEX IF NOT EXISTS session_records_updated_at_idx ON session_records (updated_at);

CREATE TABLE IF NOT EXISTS favourite_products (
	user_id    TEXT        NOT NULL,
	product_id TEXT        NOT NULL,
	product    JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, product_id)
);
`

// EnsureSchema applies Schema. Every statement is idempotent.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
