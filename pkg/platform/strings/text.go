// Package strings holds text helpers shared by search and intake code.
package strings

import (
	"strings"
)

// CleanList trims each value and drops blanks and repeats, keeping first-seen order and case.
func CleanList(values []string) []string {
	return cleanList(values, strings.TrimSpace)
}

// FoldList is CleanList with values lowercased first, so "Theft" and "theft" collapse.
func FoldList(values []string) []string {
	return cleanList(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func cleanList(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ContainsFold reports whether substr occurs in s, ignoring case. An empty substr never matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// AnyContainsFold reports whether any value contains substr, ignoring case.
func AnyContainsFold(values []string, substr string) bool {
	for _, v := range values {
		if ContainsFold(v, substr) {
			return true
		}
	}
	return false
}
