// Package secrets provides symmetric encryption for credential payloads.
// Payloads are encrypted at rest with AES-256-GCM under a key derived from
// an operator-supplied secret.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for key derivation.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	keyLenBytes  = 32
	saltLenBytes = 16
)

// ErrCiphertextTooShort is returned when a ciphertext is too small to
// contain the salt and nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Cipher encrypts and decrypts credential payloads.
type Cipher struct {
	secret []byte
}

// NewCipher creates a cipher from the operator-supplied secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret must not be empty")
	}
	return &Cipher{secret: []byte(secret)}, nil
}

// Encrypt encrypts a plaintext payload and returns a base64 ciphertext.
// Layout: salt || nonce || sealed.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltLenBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts a base64 ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	if len(raw) < saltLenBytes {
		return nil, ErrCiphertextTooShort
	}

	salt := raw[:saltLenBytes]

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	if len(raw) < saltLenBytes+gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce := raw[saltLenBytes : saltLenBytes+gcm.NonceSize()]
	sealed := raw[saltLenBytes+gcm.NonceSize():]

	plaintext, openErr := gcm.Open(nil, nonce, sealed, nil)
	if openErr != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", openErr)
	}

	return plaintext, nil
}

// aead builds an AES-256-GCM AEAD with a key derived from the secret and salt.
func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(c.secret, salt, scryptN, scryptR, scryptP, keyLenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return gcm, nil
}
