package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitewatch/sitewatch/internal/changes"
	"github.com/sitewatch/sitewatch/internal/domain"
)

// ChangeRepository handles database operations for change records. Records
// are append-only; there is no update or delete path.
type ChangeRepository struct {
	db *sqlx.DB
}

// NewChangeRepository creates a new change repository.
func NewChangeRepository(db *sqlx.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

var _ changes.ChangeStore = (*ChangeRepository)(nil)

// Create appends one change record.
func (r *ChangeRepository) Create(ctx context.Context, record *domain.ChangeRecord) error {
	query := `
		INSERT INTO change_records (id, document_id, job_run_id, change_type,
			old_content_hash, new_content_hash, change_percentage, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.DocumentID,
		record.JobRunID,
		record.ChangeType,
		record.OldContentHash,
		record.NewContentHash,
		record.ChangePercentage,
		record.Summary,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create change record: %w", err)
	}

	return nil
}

// ListByDocument returns the change history for a document, newest first.
func (r *ChangeRepository) ListByDocument(
	ctx context.Context,
	documentID string,
	limit int,
) ([]*domain.ChangeRecord, error) {
	var records []*domain.ChangeRecord
	query := `
		SELECT id, document_id, job_run_id, change_type, old_content_hash,
		       new_content_hash, change_percentage, summary, created_at
		FROM change_records
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &records, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list change records: %w", err)
	}

	if records == nil {
		records = []*domain.ChangeRecord{}
	}

	return records, nil
}
