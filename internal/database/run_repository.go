package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitewatch/sitewatch/internal/domain"
)

// runColumns is the select list shared by run queries.
const runColumns = `id, job_id, status, started_at, completed_at, urls_processed,
	urls_successful, urls_failed, documents_created, documents_updated,
	changes_detected, error_message, logs`

// RunRepository handles database operations for job runs.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new job run in the running state.
func (r *RunRepository) Create(ctx context.Context, run *domain.JobRun) error {
	query := `
		INSERT INTO job_runs (id, job_id, status, started_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, run.ID, run.JobID, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create job run: %w", err)
	}

	return nil
}

// Finalize writes a run's terminal state. Runs transition only from
// running to completed or failed; the WHERE clause enforces that a
// terminal run is never rewritten.
func (r *RunRepository) Finalize(ctx context.Context, run *domain.JobRun) error {
	query := `
		UPDATE job_runs
		SET status = $1, completed_at = $2, urls_processed = $3,
		    urls_successful = $4, urls_failed = $5, documents_created = $6,
		    documents_updated = $7, changes_detected = $8, error_message = $9,
		    logs = $10
		WHERE id = $11 AND status = 'running'
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		run.Status,
		run.CompletedAt,
		run.URLsProcessed,
		run.URLsSuccessful,
		run.URLsFailed,
		run.DocumentsCreated,
		run.DocumentsUpdated,
		run.ChangesDetected,
		run.ErrorMessage,
		run.Logs,
		run.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to finalize job run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: running job run %s", ErrNotFound, run.ID)
	}

	return nil
}

// GetByID retrieves a job run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.JobRun, error) {
	var run domain.JobRun
	query := `SELECT ` + runColumns + ` FROM job_runs WHERE id = $1`

	err := r.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: job run %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}

	return &run, nil
}

// ListByJob retrieves the most recent runs for a job.
func (r *RunRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]*domain.JobRun, error) {
	var runs []*domain.JobRun
	query := `SELECT ` + runColumns + `
		FROM job_runs
		WHERE job_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &runs, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}

	if runs == nil {
		runs = []*domain.JobRun{}
	}

	return runs, nil
}
