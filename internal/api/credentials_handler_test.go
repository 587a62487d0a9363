package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sitewatch/sitewatch/internal/api"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/secrets"
)

// mockCredentialStore implements api.CredentialWriteStore for testing.
type mockCredentialStore struct {
	created []*domain.CredentialDescriptor
}

func (m *mockCredentialStore) Create(ctx context.Context, cred *domain.CredentialDescriptor) error {
	m.created = append(m.created, cred)
	return nil
}

func (m *mockCredentialStore) List(ctx context.Context, tenantID string) ([]*domain.CredentialDescriptor, error) {
	return m.created, nil
}

func (m *mockCredentialStore) Delete(ctx context.Context, id string) error {
	return nil
}

func newCredentialsRouter(t *testing.T, store *mockCredentialStore) *gin.Engine {
	t.Helper()

	cipher, err := secrets.NewCipher("test-secret")
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := api.NewCredentialsHandler(store, cipher, "tenant-1")
	router.POST("/api/v1/credentials", handler.CreateCredential)
	router.GET("/api/v1/credentials", handler.ListCredentials)

	return router
}

func TestCredentialsHandler_CreateCredential(t *testing.T) {
	store := &mockCredentialStore{}
	router := newCredentialsRouter(t, store)

	body := `{"name":"wiki service account","domain":"wiki.example.com","kind":"form",` +
		`"payload":{"username":"svc","password":"hunter2"}}`
	w := postJSON(router, "/api/v1/credentials", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	if strings.Contains(w.Body.String(), "hunter2") {
		t.Error("plaintext password must never be echoed back")
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 stored credential, got %d", len(store.created))
	}
	stored := store.created[0]
	if strings.Contains(stored.EncryptedPayload, "hunter2") {
		t.Error("payload must be encrypted before it reaches the store")
	}
	if stored.Kind != domain.AuthKindForm {
		t.Errorf("expected kind form, got %q", stored.Kind)
	}
}

func TestCredentialsHandler_CreateCredential_SSORefused(t *testing.T) {
	store := &mockCredentialStore{}
	router := newCredentialsRouter(t, store)

	body := `{"name":"okta","domain":"mycompany.okta.com","kind":"sso","payload":{"provider":"okta"}}`
	w := postJSON(router, "/api/v1/credentials", body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for sso credentials, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.created) != 0 {
		t.Error("sso credentials must never be stored")
	}
}

func TestCredentialsHandler_CreateCredential_InvalidPayload(t *testing.T) {
	store := &mockCredentialStore{}
	router := newCredentialsRouter(t, store)

	// Form credentials without a password are rejected before encryption.
	body := `{"name":"broken","domain":"example.com","kind":"form","payload":{"username":"svc"}}`
	w := postJSON(router, "/api/v1/credentials", body)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if len(store.created) != 0 {
		t.Error("invalid credentials must never be stored")
	}
}

func TestCredentialsHandler_ListCredentials_OmitsPayload(t *testing.T) {
	store := &mockCredentialStore{}
	router := newCredentialsRouter(t, store)

	body := `{"name":"wiki service account","domain":"wiki.example.com","kind":"basic",` +
		`"payload":{"username":"svc","password":"hunter2"}}`
	if w := postJSON(router, "/api/v1/credentials", body); w.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "encrypted_payload") {
		t.Error("encrypted payloads must never leave the server")
	}
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Error("plaintext must never leave the server")
	}
}
