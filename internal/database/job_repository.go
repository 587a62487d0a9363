package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sitewatch/sitewatch/internal/domain"
)

// jobColumns is the select list shared by job queries.
const jobColumns = `id, tenant_id, name, base_url, schedule, template_id, credential_id,
	max_depth, max_pages, delay_ms, timeout_seconds, active, status, last_run, next_run,
	created_at, updated_at`

// JobRepository handles database operations for crawl jobs.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new crawl job.
func (r *JobRepository) Create(ctx context.Context, job *domain.CrawlJob) error {
	query := `
		INSERT INTO crawl_jobs (id, tenant_id, name, base_url, schedule, template_id,
			credential_id, max_depth, max_pages, delay_ms, timeout_seconds, active, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		job.ID,
		job.TenantID,
		job.Name,
		job.BaseURL,
		job.Schedule,
		job.TemplateID,
		job.CredentialID,
		job.MaxDepth,
		job.MaxPages,
		job.DelayMS,
		job.TimeoutSeconds,
		job.Active,
		job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a crawl job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.CrawlJob, error) {
	var job domain.CrawlJob
	query := `SELECT ` + jobColumns + ` FROM crawl_jobs WHERE id = $1`

	err := r.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListActive retrieves all active jobs.
func (r *JobRepository) ListActive(ctx context.Context) ([]*domain.CrawlJob, error) {
	var jobs []*domain.CrawlJob
	query := `SELECT ` + jobColumns + ` FROM crawl_jobs WHERE active ORDER BY created_at`

	err := r.db.SelectContext(ctx, &jobs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	if jobs == nil {
		jobs = []*domain.CrawlJob{}
	}

	return jobs, nil
}

// List retrieves jobs for a tenant with pagination.
func (r *JobRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.CrawlJob, error) {
	var jobs []*domain.CrawlJob
	query := `SELECT ` + jobColumns + `
		FROM crawl_jobs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &jobs, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	if jobs == nil {
		jobs = []*domain.CrawlJob{}
	}

	return jobs, nil
}

// Update updates an existing crawl job.
func (r *JobRepository) Update(ctx context.Context, job *domain.CrawlJob) error {
	query := `
		UPDATE crawl_jobs
		SET name = $1, base_url = $2, schedule = $3, template_id = $4,
		    credential_id = $5, max_depth = $6, max_pages = $7, delay_ms = $8,
		    timeout_seconds = $9, active = $10, status = $11, last_run = $12,
		    next_run = $13, updated_at = NOW()
		WHERE id = $14
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		job.Name,
		job.BaseURL,
		job.Schedule,
		job.TemplateID,
		job.CredentialID,
		job.MaxDepth,
		job.MaxPages,
		job.DelayMS,
		job.TimeoutSeconds,
		job.Active,
		job.Status,
		job.LastRun,
		job.NextRun,
		job.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return requireRow(result, job.ID)
}

// UpdateStatus updates only the lifecycle status and run timestamps.
func (r *JobRepository) UpdateStatus(
	ctx context.Context,
	id, status string,
	lastRun, nextRun *time.Time,
) error {
	query := `
		UPDATE crawl_jobs
		SET status = $1,
		    last_run = COALESCE($2, last_run),
		    next_run = COALESCE($3, next_run),
		    updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, status, lastRun, nextRun, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return requireRow(result, id)
}

// Delete removes a crawl job.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM crawl_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return requireRow(result, id)
}

// requireRow converts a zero-rows-affected result into ErrNotFound.
func requireRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}

	return nil
}
