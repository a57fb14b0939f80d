package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"publish-service/app/domain"
	"publish-service/app/utils/crypto"
)

// CredentialRepository stores per-user OAuth access tokens in the
// user_tokens table. Tokens are encrypted at rest and only decrypted on the
// way into a signed request.
type CredentialRepository struct {
	client *Client
	cipher *crypto.TokenCipher
	logger *slog.Logger
}

func NewCredentialRepository(client *Client, cipher *crypto.TokenCipher, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{client: client, cipher: cipher, logger: logger}
}

const userTokensSchema = `
CREATE TABLE IF NOT EXISTS user_tokens (
    user_id BIGINT UNSIGNED NOT NULL,
    username VARCHAR(255) NOT NULL,
    access_token VARBINARY(512) NOT NULL,
    access_secret VARBINARY(512) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    last_used_at TIMESTAMP NULL DEFAULT NULL,
    rotated_at TIMESTAMP NULL DEFAULT NULL,
    PRIMARY KEY (user_id),
    UNIQUE KEY uq_user_tokens_username (username)
)`

// EnsureSchema creates the user_tokens table when missing.
func (r *CredentialRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.client.Execute(ctx, userTokensSchema)
	if err != nil {
		return fmt.Errorf("ensure user_tokens schema: %w", err)
	}
	return nil
}

// Upsert stores a user's access token pair, encrypting both halves. An
// existing row gets the new pair and a rotated_at stamp.
func (r *CredentialRepository) Upsert(ctx context.Context, userID int64, username, accessKey, accessSecret string) error {
	encKey, err := r.cipher.Encrypt(accessKey)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	encSecret, err := r.cipher.Encrypt(accessSecret)
	if err != nil {
		return fmt.Errorf("encrypt access secret: %w", err)
	}

	query := `INSERT INTO user_tokens (user_id, username, access_token, access_secret)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    username = VALUES(username),
    access_token = VALUES(access_token),
    access_secret = VALUES(access_secret),
    rotated_at = NOW()`

	if _, err := r.client.Execute(ctx, query, userID, username, encKey, encSecret); err != nil {
		return fmt.Errorf("upsert credentials for %s: %w", username, err)
	}
	r.logger.Info("credentials stored", "user", username)
	return nil
}

// Get returns the encrypted bundle for a user id.
func (r *CredentialRepository) Get(ctx context.Context, userID int64) (*domain.CredentialBundle, error) {
	return r.getOne(ctx, "user_id = ?", userID)
}

// GetByUsername returns the encrypted bundle for a username.
func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (*domain.CredentialBundle, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *CredentialRepository) getOne(ctx context.Context, where string, arg any) (*domain.CredentialBundle, error) {
	query := `SELECT user_id, username, access_token, access_secret,
    created_at, updated_at, last_used_at, rotated_at
FROM user_tokens WHERE ` + where

	rows, err := r.client.Fetch(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("fetch credentials: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return bundleFromRow(rows[0])
}

// Decrypted returns the user's access pair in the clear and stamps
// last_used_at. A tampered or wrongly-keyed row surfaces as a DecryptError
// so the caller can treat the credential as unusable rather than transient.
func (r *CredentialRepository) Decrypted(ctx context.Context, username string) (domain.Credentials, error) {
	bundle, err := r.GetByUsername(ctx, username)
	if err != nil {
		return domain.Credentials{}, err
	}

	accessKey, err := r.cipher.Decrypt(bundle.AccessToken)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypt access token for %s: %w", username, err)
	}
	accessSecret, err := r.cipher.Decrypt(bundle.AccessSecret)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypt access secret for %s: %w", username, err)
	}

	if _, err := r.client.Execute(ctx,
		"UPDATE user_tokens SET last_used_at = NOW() WHERE user_id = ?", bundle.UserID); err != nil {
		// The pair is usable; a failed touch is not worth failing the publish.
		r.logger.Warn("failed to stamp last_used_at", "user", username, "error", err)
	}

	return domain.Credentials{AccessKey: accessKey, AccessSecret: accessSecret}, nil
}

// Delete removes a user's credentials by id.
func (r *CredentialRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.client.Execute(ctx, "DELETE FROM user_tokens WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// DeleteByUsername removes a user's credentials by name. Used when the wiki
// reports the authorization as revoked.
func (r *CredentialRepository) DeleteByUsername(ctx context.Context, username string) error {
	if _, err := r.client.Execute(ctx, "DELETE FROM user_tokens WHERE username = ?", username); err != nil {
		return fmt.Errorf("delete credentials for %s: %w", username, err)
	}
	r.logger.Info("credentials deleted", "user", username)
	return nil
}

func bundleFromRow(row map[string]any) (*domain.CredentialBundle, error) {
	bundle := &domain.CredentialBundle{}

	switch id := row["user_id"].(type) {
	case int64:
		bundle.UserID = id
	case uint64:
		bundle.UserID = int64(id)
	default:
		return nil, errors.New("user_tokens row has no numeric user_id")
	}

	bundle.Username, _ = row["username"].(string)

	switch token := row["access_token"].(type) {
	case string:
		bundle.AccessToken = []byte(token)
	case []byte:
		bundle.AccessToken = token
	}
	switch secret := row["access_secret"].(type) {
	case string:
		bundle.AccessSecret = []byte(secret)
	case []byte:
		bundle.AccessSecret = secret
	}

	bundle.CreatedAt = timePtr(row["created_at"])
	bundle.UpdatedAt = timePtr(row["updated_at"])
	bundle.LastUsedAt = timePtr(row["last_used_at"])
	bundle.RotatedAt = timePtr(row["rotated_at"])
	return bundle, nil
}
