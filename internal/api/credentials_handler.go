package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitewatch/sitewatch/internal/authn"
	"github.com/sitewatch/sitewatch/internal/database"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/secrets"
)

// CredentialWriteStore is the credential persistence surface the handlers
// need.
type CredentialWriteStore interface {
	Create(ctx context.Context, cred *domain.CredentialDescriptor) error
	List(ctx context.Context, tenantID string) ([]*domain.CredentialDescriptor, error)
	Delete(ctx context.Context, id string) error
}

// CreateCredentialRequest is the payload for storing a credential. The
// payload is encrypted before it touches the database and is never echoed
// back.
type CreateCredentialRequest struct {
	Name    string          `json:"name" binding:"required"`
	Domain  string          `json:"domain" binding:"required"`
	Kind    string          `json:"kind" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// CredentialsHandler handles credential HTTP requests.
type CredentialsHandler struct {
	creds  CredentialWriteStore
	cipher *secrets.Cipher
	tenant string
}

// NewCredentialsHandler creates a credentials handler.
func NewCredentialsHandler(creds CredentialWriteStore, cipher *secrets.Cipher, tenant string) *CredentialsHandler {
	return &CredentialsHandler{creds: creds, cipher: cipher, tenant: tenant}
}

// CreateCredential handles POST /api/v1/credentials. The payload is parsed
// once to reject malformed or unsupported credentials, then stored
// encrypted.
func (h *CredentialsHandler) CreateCredential(c *gin.Context) {
	var req CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if _, err := authn.ParseAuthConfig(req.Kind, req.Payload); err != nil {
		if errors.Is(err, authn.ErrSSOUnsupported) {
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondBadRequest(c, err.Error())
		return
	}

	encrypted, encryptErr := h.cipher.Encrypt(req.Payload)
	if encryptErr != nil {
		respondInternalError(c, "Failed to encrypt credential")
		return
	}

	cred := &domain.CredentialDescriptor{
		ID:               uuid.NewString(),
		TenantID:         h.tenant,
		Name:             req.Name,
		Domain:           req.Domain,
		Kind:             req.Kind,
		EncryptedPayload: encrypted,
	}

	if err := h.creds.Create(c.Request.Context(), cred); err != nil {
		respondInternalError(c, "Failed to create credential")
		return
	}

	c.JSON(http.StatusCreated, cred)
}

// ListCredentials handles GET /api/v1/credentials. Only descriptors are
// returned; encrypted payloads never leave the server.
func (h *CredentialsHandler) ListCredentials(c *gin.Context) {
	creds, err := h.creds.List(c.Request.Context(), h.tenant)
	if err != nil {
		respondInternalError(c, "Failed to retrieve credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}

// DeleteCredential handles DELETE /api/v1/credentials/:id
func (h *CredentialsHandler) DeleteCredential(c *gin.Context) {
	id := c.Param("id")

	if err := h.creds.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "Credential")
			return
		}
		respondInternalError(c, "Failed to delete credential")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credential deleted successfully"})
}
