package fields

import (
	"regexp"
	"strings"

	"github.com/smartfill/smartfill/internal/domain"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// InferKey maps evidence to a profile key. A canonical key is returned when
// any keyword of a Table entry occurs in the evidence pool. Otherwise the key
// is derived from the first non-empty of name, id, label and placeholder,
// lower-cased, trimmed and with whitespace runs replaced by "_".
func InferKey(ev Evidence) (string, bool) {
	pool := ev.Pool()
	for _, entry := range Table {
		if containsAny(pool, entry.Keywords) {
			return entry.Key, true
		}
	}

	key := FallbackKey(ev)
	return key, key != ""
}

// FallbackKey derives a custom-field key from raw evidence.
func FallbackKey(ev Evidence) string {
	for _, s := range []string{ev.Name, ev.ID, ev.Label, ev.Placeholder} {
		if s == "" {
			continue
		}
		return whitespaceRun.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), "_")
	}
	return ""
}

// Sanitize applies key-specific cleanup before a value is stored.
func Sanitize(key, value string) string {
	if key == domain.KeyAadhaar {
		return domain.StripSpaces(value)
	}
	return value
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
