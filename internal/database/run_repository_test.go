package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sitewatch/sitewatch/internal/database"
	"github.com/sitewatch/sitewatch/internal/domain"
)

func TestRunRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewRunRepository(db)
	ctx := context.Background()

	startedAt := time.Now()

	mock.ExpectExec("INSERT INTO job_runs").
		WithArgs("run-1", "job-123", "running", startedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &domain.JobRun{
		ID:        "run-1",
		JobID:     "job-123",
		Status:    domain.RunStatusRunning,
		StartedAt: startedAt,
	}

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_Finalize(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewRunRepository(db)
	ctx := context.Background()

	completedAt := time.Now()
	errorMessage := "traversal failed: connection refused"

	mock.ExpectExec("UPDATE job_runs").
		WithArgs(
			"failed",
			completedAt,
			10,
			8,
			2,
			3,
			1,
			4,
			errorMessage,
			sqlmock.AnyArg(),
			"run-1",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &domain.JobRun{
		ID:               "run-1",
		JobID:            "job-123",
		Status:           domain.RunStatusFailed,
		CompletedAt:      &completedAt,
		URLsProcessed:    10,
		URLsSuccessful:   8,
		URLsFailed:       2,
		DocumentsCreated: 3,
		DocumentsUpdated: 1,
		ChangesDetected:  4,
		ErrorMessage:     &errorMessage,
		Logs: domain.RunLogs{
			{URL: "https://example.com/a", Error: "http status 500"},
		},
	}

	if err := repo.Finalize(ctx, run); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_Finalize_TerminalRunIsImmutable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewRunRepository(db)
	ctx := context.Background()

	completedAt := time.Now()

	// The WHERE clause only matches runs still in the running state, so a
	// second finalize affects zero rows.
	mock.ExpectExec("UPDATE job_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	run := &domain.JobRun{
		ID:          "run-1",
		JobID:       "job-123",
		Status:      domain.RunStatusCompleted,
		CompletedAt: &completedAt,
	}

	err := repo.Finalize(ctx, run)
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("Finalize() error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewRunRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM job_runs WHERE id").
		WithArgs("missing-run").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(ctx, "missing-run")
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_ListByJob(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewRunRepository(db)
	ctx := context.Background()

	started := time.Now().Add(-time.Hour)
	completed := started.Add(2 * time.Minute)

	rows := sqlmock.NewRows([]string{
		"id", "job_id", "status", "started_at", "completed_at", "urls_processed",
		"urls_successful", "urls_failed", "documents_created", "documents_updated",
		"changes_detected", "error_message", "logs",
	}).AddRow(
		"run-1", "job-123", "completed", started, completed,
		5, 5, 0, 2, 1, 3, nil, []byte(`[]`),
	)

	mock.ExpectQuery("SELECT (.+) FROM job_runs").
		WithArgs("job-123", 20).
		WillReturnRows(rows)

	runs, err := repo.ListByJob(ctx, "job-123", 20)
	if err != nil {
		t.Fatalf("ListByJob() error = %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != domain.RunStatusCompleted {
		t.Errorf("expected completed status, got %s", runs[0].Status)
	}
	if runs[0].ChangesDetected != 3 {
		t.Errorf("expected 3 changes detected, got %d", runs[0].ChangesDetected)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
