package domain

import "time"

// CredentialBundle is one user's encrypted OAuth credentials. The token and
// secret stay encrypted until a caller asks the store to decrypt them.
type CredentialBundle struct {
	UserID       int64
	Username     string
	AccessToken  []byte
	AccessSecret []byte
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	LastUsedAt   *time.Time
	RotatedAt    *time.Time
}

// Credentials is a decrypted OAuth key/secret pair.
type Credentials struct {
	AccessKey    string
	AccessSecret string
}

// Complete reports whether both halves of the pair are present.
func (c Credentials) Complete() bool {
	return c.AccessKey != "" && c.AccessSecret != ""
}

// CXTokenResult is the outcome of a translation-tool token request. When the
// wiki reports the stored authorization as revoked, AccessDeleted is set and
// the credential row has been removed.
type CXTokenResult struct {
	Response      map[string]any
	AccessDeleted bool
}
