package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates the record store tables if they do not exist.
const schema = `
CREATE TABLE IF NOT EXISTS crawl_jobs (
	id              UUID PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	name            TEXT NOT NULL,
	base_url        TEXT NOT NULL,
	schedule        TEXT NOT NULL,
	template_id     TEXT NOT NULL DEFAULT '',
	credential_id   UUID,
	max_depth       INT NOT NULL DEFAULT 0,
	max_pages       INT NOT NULL DEFAULT 0,
	delay_ms        INT NOT NULL DEFAULT 0,
	timeout_seconds INT NOT NULL DEFAULT 0,
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	status          TEXT NOT NULL DEFAULT 'idle',
	last_run        TIMESTAMPTZ,
	next_run        TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS job_runs (
	id                UUID PRIMARY KEY,
	job_id            UUID NOT NULL REFERENCES crawl_jobs(id) ON DELETE CASCADE,
	status            TEXT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at      TIMESTAMPTZ,
	urls_processed    INT NOT NULL DEFAULT 0,
	urls_successful   INT NOT NULL DEFAULT 0,
	urls_failed       INT NOT NULL DEFAULT 0,
	documents_created INT NOT NULL DEFAULT 0,
	documents_updated INT NOT NULL DEFAULT 0,
	changes_detected  INT NOT NULL DEFAULT 0,
	error_message     TEXT,
	logs              JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS documents (
	id           UUID PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	version      INT NOT NULL,
	is_active    BOOLEAN NOT NULL DEFAULT TRUE,
	metadata     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (tenant_id, url, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS documents_one_active
	ON documents (tenant_id, url) WHERE is_active;

CREATE TABLE IF NOT EXISTS change_records (
	id                UUID PRIMARY KEY,
	document_id       UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	job_run_id        UUID,
	change_type       TEXT NOT NULL,
	old_content_hash  TEXT,
	new_content_hash  TEXT NOT NULL,
	change_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	summary           TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS credentials (
	id                UUID PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	name              TEXT NOT NULL,
	domain            TEXT NOT NULL,
	kind              TEXT NOT NULL,
	encrypted_payload TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
