package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sitewatch/sitewatch/internal/changes"
	"github.com/sitewatch/sitewatch/internal/database"
	"github.com/sitewatch/sitewatch/internal/domain"
)

func testDocument(id string, version int) *domain.VersionedDocument {
	return &domain.VersionedDocument{
		ID:          id,
		TenantID:    "tenant-1",
		URL:         "https://example.com/page",
		Title:       "Page",
		Content:     "page content",
		ContentHash: "abc123",
		Version:     version,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
}

func TestDocumentRepository_GetActive_NoActiveVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewDocumentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("tenant-1", "https://example.com/page").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetActive(ctx, "tenant-1", "https://example.com/page")
	if !errors.Is(err, changes.ErrNoActiveDocument) {
		t.Fatalf("GetActive() error = %v, want ErrNoActiveDocument", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDocumentRepository_ReplaceActive_SwapsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewDocumentRepository(db)
	ctx := context.Background()

	newDoc := testDocument("doc-v2", 2)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET is_active = FALSE").
		WithArgs("doc-v1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			newDoc.ID,
			newDoc.TenantID,
			newDoc.URL,
			newDoc.Title,
			newDoc.Content,
			newDoc.ContentHash,
			newDoc.Version,
			newDoc.IsActive,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.ReplaceActive(ctx, newDoc, "doc-v1"); err != nil {
		t.Fatalf("ReplaceActive() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDocumentRepository_ReplaceActive_MissingPriorRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewDocumentRepository(db)
	ctx := context.Background()

	// When the prior version was already deactivated by a concurrent swap,
	// nothing is inserted and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET is_active = FALSE").
		WithArgs("doc-v1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReplaceActive(ctx, testDocument("doc-v2", 2), "doc-v1")
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("ReplaceActive() error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDocumentRepository_CreateVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewDocumentRepository(db)
	ctx := context.Background()

	doc := testDocument("doc-v1", 1)

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.TenantID,
			doc.URL,
			doc.Title,
			doc.Content,
			doc.ContentHash,
			doc.Version,
			doc.IsActive,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateVersion(ctx, doc); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
