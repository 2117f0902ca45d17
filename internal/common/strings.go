package common

import (
	"slices"
	"strings"
)

// NormalizeIdentifier canonicalizes an identifier for grouping and result
// keys: surrounding whitespace dropped, lowercased. Connectors may apply
// stricter, source-specific matching on top of this.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// SortIdentifiers orders identifiers case-insensitively in place and returns
// the slice. Equal folded keys fall back to byte order so the result is
// stable across runs.
func SortIdentifiers(identifiers []string) []string {
	slices.SortFunc(identifiers, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return identifiers
}
