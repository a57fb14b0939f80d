package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// DecryptError reports ciphertext that could not be authenticated or decoded.
// A tampered or foreign-key token is a distinct failure from a missing one.
type DecryptError struct {
	cause error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("unable to decrypt stored token: %v", e.cause)
}

func (e *DecryptError) Unwrap() error {
	return e.cause
}

// TokenCipher encrypts and decrypts stored OAuth secrets with AES-256-GCM.
// The nonce is prepended to each ciphertext so a token is self-contained.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a cipher from a base64-encoded key. Keys that do not
// decode to a valid AES length are reduced to 32 bytes with SHA-256 so that
// operator-provisioned passphrases still work.
func NewTokenCipher(encodedKey string) (*TokenCipher, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("encryption key must be configured")
	}

	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		key = []byte(encodedKey)
	}
	if l := len(key); l != 16 && l != 24 && l != 32 {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals a UTF-8 string and returns nonce-prefixed ciphertext bytes.
func (c *TokenCipher) Encrypt(value string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, []byte(value), nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext and returns the string contents.
func (c *TokenCipher) Decrypt(token []byte) (string, error) {
	if len(token) < c.aead.NonceSize() {
		return "", &DecryptError{cause: fmt.Errorf("ciphertext shorter than nonce")}
	}

	nonce, ciphertext := token[:c.aead.NonceSize()], token[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &DecryptError{cause: err}
	}

	return string(plaintext), nil
}
