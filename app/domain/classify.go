package domain

import "strings"

// Result tokens recorded in publish reports. Each publish operation is
// classified into exactly one of these.
const (
	ResultSuccess  = "success"
	ResultCaptcha  = "captcha"
	ResultNoAccess = "noaccess"
	ResultErrors   = "errors"
)

// classifierRule labels a response when its token appears anywhere in the
// parsed response tree. Rules are evaluated in order; the first match wins.
type classifierRule struct {
	token string
	label string
}

// editErrorRules is the fixed priority list for failed wiki edits. The label
// equals the matched token.
var editErrorRules = []classifierRule{
	{token: "protectedpage", label: "protectedpage"},
	{token: "titleblacklist", label: "titleblacklist"},
	{token: "ratelimited", label: "ratelimited"},
	{token: "editconflict", label: "editconflict"},
	{token: "spam filter", label: "spam filter"},
	{token: "abusefilter", label: "abusefilter"},
	{token: "mwoauth-invalid-authorization", label: "mwoauth-invalid-authorization"},
}

// wikidataErrorRules is the fixed priority list for failed sitelink updates.
var wikidataErrorRules = []classifierRule{
	{token: "Links to user pages", label: "wd_user_pages"},
	{token: "get_csrftoken", label: "wd_csrftoken"},
	{token: "protectedpage", label: "wd_protectedpage"},
}

// ClassifyEditError scans a failed edit response and returns the matching
// result token, defaulting to ResultErrors.
func ClassifyEditError(response any) string {
	return classify(response, editErrorRules, ResultErrors)
}

// ClassifyWikidataError scans a failed sitelink response and returns the
// matching result token, defaulting to "wd_errors".
func ClassifyWikidataError(response any) string {
	return classify(response, wikidataErrorRules, "wd_errors")
}

func classify(response any, rules []classifierRule, fallback string) string {
	for _, rule := range rules {
		if ContainsToken(response, rule.token) {
			return rule.label
		}
	}
	return fallback
}

// ContainsToken walks a parsed response looking for the literal token in any
// string key or value. This keeps the fixed-priority containment semantics
// without stringifying the whole response.
func ContainsToken(node any, token string) bool {
	switch v := node.(type) {
	case string:
		return strings.Contains(v, token)
	case map[string]any:
		for key, value := range v {
			if strings.Contains(key, token) || ContainsToken(value, token) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if ContainsToken(item, token) {
				return true
			}
		}
	case error:
		return strings.Contains(v.Error(), token)
	}
	return false
}
