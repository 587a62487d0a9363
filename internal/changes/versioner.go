package changes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitewatch/sitewatch/internal/domain"
)

// ErrNoActiveDocument is returned by a DocumentStore when no active
// version exists for a (tenant, url).
var ErrNoActiveDocument = errors.New("no active document version")

// createdChangePercentage is recorded for first-seen documents.
const createdChangePercentage = 100.0

// DocumentStore persists versioned documents.
type DocumentStore interface {
	// GetActive returns the active version for (tenant, url), or
	// ErrNoActiveDocument.
	GetActive(ctx context.Context, tenantID, url string) (*domain.VersionedDocument, error)
	// CreateVersion inserts a new version (used for version 1).
	CreateVersion(ctx context.Context, doc *domain.VersionedDocument) error
	// ReplaceActive atomically deactivates the old version and inserts the
	// new one. The old version is never deleted.
	ReplaceActive(ctx context.Context, newDoc *domain.VersionedDocument, oldID string) error
}

// ChangeStore persists change records.
type ChangeStore interface {
	Create(ctx context.Context, record *domain.ChangeRecord) error
}

// Outcome reports what Apply did for one page.
type Outcome struct {
	Created        bool
	Updated        bool
	ChangeDetected bool
	Document       *domain.VersionedDocument
}

// Versioner decides whether a re-crawled page warrants a new document
// version and records the transition.
type Versioner struct {
	documents DocumentStore
	records   ChangeStore
	detector  *Detector
}

// NewVersioner creates a versioner.
func NewVersioner(documents DocumentStore, records ChangeStore, detector *Detector) *Versioner {
	if detector == nil {
		detector = NewDetector(0)
	}
	return &Versioner{documents: documents, records: records, detector: detector}
}

// Apply runs the versioning policy for one scraped page:
//
//   - no prior active version: create version 1, record "created"
//   - significant content change: create version n+1, deactivate the prior
//     version, record "updated"
//   - title changed with insignificant content change: create version n+1,
//     record "title_changed"
//   - otherwise: idempotent no-op
func (v *Versioner) Apply(
	ctx context.Context,
	tenantID, runID string,
	page *domain.ScrapedPage,
) (*Outcome, error) {
	prior, err := v.documents.GetActive(ctx, tenantID, page.URL)
	if errors.Is(err, ErrNoActiveDocument) {
		return v.createFirst(ctx, tenantID, runID, page)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active document: %w", err)
	}

	change := v.detector.Detect(prior.Content, page.Content)
	titleChanged := prior.Title != page.Title

	if !change.Significant && !titleChanged {
		return &Outcome{Document: prior}, nil
	}

	changeType := domain.ChangeTypeUpdated
	if !change.Significant && titleChanged {
		changeType = domain.ChangeTypeTitleChanged
	}

	next := newVersion(tenantID, page)
	next.Version = prior.Version + 1

	if replaceErr := v.documents.ReplaceActive(ctx, next, prior.ID); replaceErr != nil {
		return nil, fmt.Errorf("failed to replace active version: %w", replaceErr)
	}

	record := &domain.ChangeRecord{
		ID:               uuid.NewString(),
		DocumentID:       next.ID,
		JobRunID:         runID,
		ChangeType:       changeType,
		OldContentHash:   &prior.ContentHash,
		NewContentHash:   next.ContentHash,
		ChangePercentage: change.Percentage,
		Summary:          change.Summary,
		CreatedAt:        time.Now(),
	}
	if recordErr := v.records.Create(ctx, record); recordErr != nil {
		return nil, fmt.Errorf("failed to record change: %w", recordErr)
	}

	return &Outcome{Updated: true, ChangeDetected: true, Document: next}, nil
}

// createFirst creates version 1 for a URL never seen before.
func (v *Versioner) createFirst(
	ctx context.Context,
	tenantID, runID string,
	page *domain.ScrapedPage,
) (*Outcome, error) {
	doc := newVersion(tenantID, page)
	doc.Version = 1

	if createErr := v.documents.CreateVersion(ctx, doc); createErr != nil {
		return nil, fmt.Errorf("failed to create first version: %w", createErr)
	}

	record := &domain.ChangeRecord{
		ID:               uuid.NewString(),
		DocumentID:       doc.ID,
		JobRunID:         runID,
		ChangeType:       domain.ChangeTypeCreated,
		NewContentHash:   doc.ContentHash,
		ChangePercentage: createdChangePercentage,
		Summary:          "document first crawled",
		CreatedAt:        time.Now(),
	}
	if recordErr := v.records.Create(ctx, record); recordErr != nil {
		return nil, fmt.Errorf("failed to record creation: %w", recordErr)
	}

	return &Outcome{Created: true, ChangeDetected: true, Document: doc}, nil
}

// newVersion builds an active VersionedDocument from a scraped page.
func newVersion(tenantID string, page *domain.ScrapedPage) *domain.VersionedDocument {
	return &domain.VersionedDocument{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		URL:         page.URL,
		Title:       page.Title,
		Content:     page.Content,
		ContentHash: page.ContentHash,
		IsActive:    true,
		Metadata: domain.JSONBMap{
			"word_count":   page.WordCount,
			"reading_time": page.ReadingTime,
			"author":       page.Metadata.Author,
			"language":     page.Metadata.Language,
			"description":  page.Metadata.Description,
		},
		CreatedAt: time.Now(),
	}
}
