// Package strings provides helpers for the skill tags carried by experts and
// open-pool requests.
package strings

import (
	"strings"
)

// NormalizeTags trims, lowercases and de-duplicates tags, dropping empty
// entries. Order of first occurrence is preserved.
//
// Example:
//
//	NormalizeTags([]string{"  AML ", "tax", "aml", ""})
//	// Returns: []string{"aml", "tax"}
func NormalizeTags(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		tag := strings.ToLower(strings.TrimSpace(v))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			result = append(result, tag)
		}
	}

	return result
}

// Intersects reports whether a and b share at least one tag, compared
// case-insensitively after trimming.
func Intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, tag := range NormalizeTags(a) {
		set[tag] = struct{}{}
	}
	for _, tag := range NormalizeTags(b) {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}
