package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"publish-service/app/domain"
)

// noAccessBody is the shared error payload for requests without a usable
// stored credential.
func noAccessBody() map[string]any {
	return map[string]any{
		"error": map[string]any{"code": "no access", "info": "no access"},
	}
}

// CXToken fetches a Content Translation token for the user on the named
// wiki. A revoked grant reported by the wiki deletes the stored credential
// so the tool re-runs its OAuth handshake.
func (u *PublishUsecase) CXToken(ctx context.Context, wiki, username string) (*domain.CXTokenResult, error) {
	user := u.deps.Formatter.FormatUser(username)

	creds, err := u.deps.Credentials.Decrypted(ctx, user)
	if err != nil || !creds.Complete() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			u.deps.Logger.Error("credential lookup failed", "user", user, "error", err)
		}
		return &domain.CXTokenResult{Response: noAccessBody()}, nil
	}

	data, err := u.deps.Wiki.CXToken(ctx, cxTokenURL(wiki), creds)
	if err != nil {
		u.deps.Logger.Warn("cxtoken call failed", "wiki", wiki, "user", user, "error", err)
		return &domain.CXTokenResult{Response: map[string]any{
			"error": map[string]any{"code": "cxtoken_failed", "info": err.Error()},
		}}, nil
	}

	result := &domain.CXTokenResult{Response: data}
	if domain.ContainsToken(data, domain.ErrInvalidAuthorization) {
		u.deps.Logger.Info("authorization revoked, deleting credential", "user", user)
		if err := u.deps.Credentials.DeleteByUsername(ctx, user); err != nil {
			u.deps.Logger.Error("credential delete failed", "user", user, "error", err)
		} else {
			result.AccessDeleted = true
		}
	}
	return result, nil
}

// cxTokenURL maps the wiki query parameter to an api.php URL. Full host
// names pass through; bare language codes address that language's
// Wikipedia.
func cxTokenURL(wiki string) string {
	if strings.Contains(wiki, ".") {
		return fmt.Sprintf("https://%s/w/api.php", wiki)
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", wiki)
}
