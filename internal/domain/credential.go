package domain

import (
	"time"
)

// Authentication kinds supported by the credential store.
const (
	AuthKindBasic  = "basic"
	AuthKindForm   = "form"
	AuthKindCookie = "cookie"
	AuthKindHeader = "header"
	AuthKindSSO    = "sso"
)

// CredentialDescriptor references an encrypted credential for a target
// domain. The payload is decrypted only inside the authentication adapter
// at use time and is never logged in plaintext.
type CredentialDescriptor struct {
	ID               string    `db:"id"                json:"id"`
	TenantID         string    `db:"tenant_id"         json:"tenant_id"`
	Name             string    `db:"name"              json:"name"`
	Domain           string    `db:"domain"            json:"domain"`
	Kind             string    `db:"kind"              json:"kind"`
	EncryptedPayload string    `db:"encrypted_payload" json:"-"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"        json:"updated_at"`
}
