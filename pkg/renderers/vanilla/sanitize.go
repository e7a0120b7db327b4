package vanilla

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

func sanitizeLabelMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(labelSanitizer().Sanitize(trimmed))
}

// labelSanitizer allows inline phrasing markup only.
func labelSanitizer() *bluemonday.Policy {
	labelPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "em", "i", "small", "sub", "sup", "code", "br")
		policy.AllowAttrs("class").OnElements("span", "abbr", "small")
		policy.AllowAttrs("title").OnElements("abbr")
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireParseableURLs(true)
		policy.AllowURLSchemes("http", "https", "mailto")
		policy.RequireNoFollowOnLinks(true)
		labelPolicy = policy
	})
	return labelPolicy
}
