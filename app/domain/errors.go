package domain

import "errors"

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Marker strings used inside API responses. Wiki-side failures are data, not
// Go errors, so callers branch on these values rather than error types.
const (
	// ErrCSRFTokenFailed marks a response whose CSRF token fetch failed
	// before the signed POST could be issued.
	ErrCSRFTokenFailed = "get_csrftoken failed"

	// ErrInvalidAuthorization is the wiki error code meaning the stored
	// credentials were revoked; receiving it triggers credential deletion.
	ErrInvalidAuthorization = "mwoauth-invalid-authorization-invalid-user"
)
