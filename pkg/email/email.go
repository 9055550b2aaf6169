// Package email derives display names from account addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName turns "jordan.lee@example.com" into "Jordan Lee". Separators are dots,
// underscores, hyphens and plus signs; digits-only parts are dropped. It returns "" when nothing
// usable remains.
func DisplayName(address string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(address), "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.IndexFunc(p, unicode.IsLetter) < 0 {
			continue
		}
		words = append(words, capitalize(p))
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
