package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitewatch/sitewatch/internal/changes"
	"github.com/sitewatch/sitewatch/internal/domain"
)

// documentColumns is the select list shared by document queries.
const documentColumns = `id, tenant_id, url, title, content, content_hash,
	version, is_active, metadata, created_at`

// DocumentRepository handles database operations for versioned documents.
// It enforces the single-active-version invariant: deactivating the prior
// version and inserting its successor happen in one transaction.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ changes.DocumentStore = (*DocumentRepository)(nil)

// GetActive returns the active version for (tenant, url).
func (r *DocumentRepository) GetActive(
	ctx context.Context,
	tenantID, url string,
) (*domain.VersionedDocument, error) {
	var doc domain.VersionedDocument
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE tenant_id = $1 AND url = $2 AND is_active`

	err := r.db.GetContext(ctx, &doc, query, tenantID, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, changes.ErrNoActiveDocument
		}
		return nil, fmt.Errorf("failed to get active document: %w", err)
	}

	return &doc, nil
}

// CreateVersion inserts a new document version.
func (r *DocumentRepository) CreateVersion(ctx context.Context, doc *domain.VersionedDocument) error {
	if err := insertVersion(ctx, r.db, doc); err != nil {
		return err
	}
	return nil
}

// ReplaceActive deactivates the prior version and inserts the new active
// version in one transaction. The prior version is never deleted.
func (r *DocumentRepository) ReplaceActive(
	ctx context.Context,
	newDoc *domain.VersionedDocument,
	oldID string,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_active = FALSE WHERE id = $1 AND is_active`, oldID)
	if err != nil {
		return fmt.Errorf("failed to deactivate prior version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: active document %s", ErrNotFound, oldID)
	}

	if insertErr := insertVersion(ctx, tx, newDoc); insertErr != nil {
		return insertErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit version swap: %w", commitErr)
	}

	return nil
}

// ListVersions returns the full version chain for (tenant, url), newest
// first.
func (r *DocumentRepository) ListVersions(
	ctx context.Context,
	tenantID, url string,
) ([]*domain.VersionedDocument, error) {
	var docs []*domain.VersionedDocument
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE tenant_id = $1 AND url = $2
		ORDER BY version DESC`

	err := r.db.SelectContext(ctx, &docs, query, tenantID, url)
	if err != nil {
		return nil, fmt.Errorf("failed to list document versions: %w", err)
	}

	if docs == nil {
		docs = []*domain.VersionedDocument{}
	}

	return docs, nil
}

// execer abstracts sqlx.DB and sqlx.Tx for shared statements.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertVersion inserts one document version row.
func insertVersion(ctx context.Context, db execer, doc *domain.VersionedDocument) error {
	query := `
		INSERT INTO documents (id, tenant_id, url, title, content, content_hash,
			version, is_active, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := db.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.TenantID,
		doc.URL,
		doc.Title,
		doc.Content,
		doc.ContentHash,
		doc.Version,
		doc.IsActive,
		doc.Metadata,
		doc.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert document version: %w", err)
	}

	return nil
}
