package domain

import (
	"time"
)

// VersionedDocument is one stored version of a crawled page.
// For a given (tenant, url) versions are strictly increasing and exactly
// one version is active at a time. Old versions are deactivated, never
// deleted.
type VersionedDocument struct {
	ID          string    `db:"id"           json:"id"`
	TenantID    string    `db:"tenant_id"    json:"tenant_id"`
	URL         string    `db:"url"          json:"url"`
	Title       string    `db:"title"        json:"title"`
	Content     string    `db:"content"      json:"content"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	Version     int       `db:"version"      json:"version"`
	IsActive    bool      `db:"is_active"    json:"is_active"`
	Metadata    JSONBMap  `db:"metadata"     json:"metadata,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// Change types recorded against a document version transition.
const (
	ChangeTypeCreated        = "created"
	ChangeTypeUpdated        = "updated"
	ChangeTypeDeleted        = "deleted"
	ChangeTypeTitleChanged   = "title_changed"
	ChangeTypeContentChanged = "content_changed"
)

// ChangeRecord is one detected transition in a document's version chain.
// Records are append-only.
type ChangeRecord struct {
	ID               string    `db:"id"                json:"id"`
	DocumentID       string    `db:"document_id"       json:"document_id"`
	JobRunID         string    `db:"job_run_id"        json:"job_run_id"`
	ChangeType       string    `db:"change_type"       json:"change_type"`
	OldContentHash   *string   `db:"old_content_hash"  json:"old_content_hash,omitempty"`
	NewContentHash   string    `db:"new_content_hash"  json:"new_content_hash"`
	ChangePercentage float64   `db:"change_percentage" json:"change_percentage"`
	Summary          string    `db:"summary"           json:"summary"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
}
