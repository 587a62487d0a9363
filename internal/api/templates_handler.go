package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitewatch/sitewatch/internal/templates"
)

// TemplatesHandler exposes the static template catalog.
type TemplatesHandler struct{}

// NewTemplatesHandler creates a templates handler.
func NewTemplatesHandler() *TemplatesHandler {
	return &TemplatesHandler{}
}

// ListTemplates handles GET /api/v1/templates
func (h *TemplatesHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": templates.IDs()})
}

// GetTemplate handles GET /api/v1/templates/:id
func (h *TemplatesHandler) GetTemplate(c *gin.Context) {
	tmpl, err := templates.ByID(c.Param("id"))
	if err != nil {
		respondNotFound(c, "Template")
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

// SuggestTemplate handles GET /api/v1/templates/suggest?url=...
func (h *TemplatesHandler) SuggestTemplate(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		respondBadRequest(c, "url query parameter is required")
		return
	}

	c.JSON(http.StatusOK, templates.SuggestForURL(pageURL))
}
