package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitewatch/sitewatch/internal/domain"
)

// DocumentStore is the document read surface the handlers need.
type DocumentStore interface {
	ListVersions(ctx context.Context, tenantID, url string) ([]*domain.VersionedDocument, error)
}

// ChangeStore is the change-record read surface the handlers need.
type ChangeStore interface {
	ListByDocument(ctx context.Context, documentID string, limit int) ([]*domain.ChangeRecord, error)
}

// DocumentsHandler serves the version and change history browser.
type DocumentsHandler struct {
	documents DocumentStore
	changes   ChangeStore
	tenant    string
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(documents DocumentStore, changes ChangeStore, tenant string) *DocumentsHandler {
	return &DocumentsHandler{documents: documents, changes: changes, tenant: tenant}
}

// ListVersions handles GET /api/v1/documents/versions?url=...
// The full chain is returned newest first; exactly one entry is active.
func (h *DocumentsHandler) ListVersions(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		respondBadRequest(c, "url query parameter is required")
		return
	}

	versions, err := h.documents.ListVersions(c.Request.Context(), h.tenant, pageURL)
	if err != nil {
		respondInternalError(c, "Failed to retrieve versions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": pageURL, "versions": versions})
}

// ListChanges handles GET /api/v1/documents/:id/changes
func (h *DocumentsHandler) ListChanges(c *gin.Context) {
	id := c.Param("id")
	limit, _ := parseLimitOffset(c)

	records, err := h.changes.ListByDocument(c.Request.Context(), id, limit)
	if err != nil {
		respondInternalError(c, "Failed to retrieve change records")
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": records})
}
