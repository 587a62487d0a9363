package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitewatch/sitewatch/internal/domain"
)

// credentialColumns is the select list shared by credential queries.
const credentialColumns = `id, tenant_id, name, domain, kind, encrypted_payload,
	created_at, updated_at`

// CredentialRepository handles database operations for credential
// descriptors. Payloads are stored encrypted; this layer never sees
// plaintext.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a new credential descriptor.
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.CredentialDescriptor) error {
	query := `
		INSERT INTO credentials (id, tenant_id, name, domain, kind, encrypted_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		cred.ID,
		cred.TenantID,
		cred.Name,
		cred.Domain,
		cred.Kind,
		cred.EncryptedPayload,
	).Scan(&cred.CreatedAt, &cred.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// GetByID retrieves a credential descriptor by its ID.
func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*domain.CredentialDescriptor, error) {
	var cred domain.CredentialDescriptor
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	err := r.db.GetContext(ctx, &cred, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: credential %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return &cred, nil
}

// List retrieves credential descriptors for a tenant.
func (r *CredentialRepository) List(ctx context.Context, tenantID string) ([]*domain.CredentialDescriptor, error) {
	var creds []*domain.CredentialDescriptor
	query := `SELECT ` + credentialColumns + `
		FROM credentials
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &creds, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	if creds == nil {
		creds = []*domain.CredentialDescriptor{}
	}

	return creds, nil
}

// Delete removes a credential descriptor.
func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: credential %s", ErrNotFound, id)
	}

	return nil
}
