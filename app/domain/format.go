package domain

import (
	"fmt"
	"strings"
)

// Formatter normalizes usernames and titles the way the wikis expect them,
// applying the configured special-user alias table.
type Formatter struct {
	specialUsers   map[string]string
	noHashtagUsers map[string]bool
	hashtag        string
}

// NewFormatter builds a Formatter from the configured alias table, the
// no-hashtag identity list, and the campaign hashtag.
func NewFormatter(specialUsers map[string]string, noHashtagUsers []string, hashtag string) *Formatter {
	noHashtag := make(map[string]bool, len(noHashtagUsers))
	for _, u := range noHashtagUsers {
		noHashtag[u] = true
	}

	return &Formatter{
		specialUsers:   specialUsers,
		noHashtagUsers: noHashtag,
		hashtag:        hashtag,
	}
}

// FormatUser maps special-user aliases to their canonical identity and
// replaces underscores with spaces. Idempotent.
func (f *Formatter) FormatUser(user string) string {
	if canonical, ok := f.specialUsers[user]; ok {
		user = canonical
	}
	return strings.ReplaceAll(user, "_", " ")
}

// FormatTitle replaces underscores with spaces and rewrites alias-owned
// subpage prefixes to the canonical identity. Idempotent.
func (f *Formatter) FormatTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	for alias, canonical := range f.specialUsers {
		title = strings.ReplaceAll(title, alias+"/", canonical+"/")
	}
	return title
}

// DetermineHashtag returns the campaign hashtag, or "" when a no-hashtag
// identity publishes into its own namespace.
func (f *Formatter) DetermineHashtag(title, user string) string {
	if f.noHashtagUsers[user] && strings.Contains(title, user) {
		return ""
	}
	return f.hashtag
}

// MakeSummary builds the edit summary linking back to the source revision.
func MakeSummary(revid, sourcetitle, targetLang, hashtag string) string {
	return fmt.Sprintf(
		"Created by translating the page [[:mdwiki:Special:Redirect/revision/%s|%s]] to:%s %s",
		revid, sourcetitle, targetLang, hashtag,
	)
}
