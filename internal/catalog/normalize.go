package catalog

import (
	"fmt"
	"strings"
)

// CanonicalTitle strips the trailing discount decoration that listing titles
// carry after a "-" separator and trims surrounding whitespace. Identifier
// derivation always starts from the canonical title so a price-drop rename
// does not duplicate the product.
func CanonicalTitle(raw string) string {
	before, _, _ := strings.Cut(raw, "-")
	return strings.TrimSpace(before)
}

// Caption builds the text that gets embedded for a product: the canonical
// title followed by the detail lines joined with single spaces. Deterministic
// and side-effect free.
func Caption(title string, details []string) string {
	return strings.TrimSpace(fmt.Sprintf("%s. %s", title, strings.Join(details, " ")))
}

// Dedupe returns the input with duplicates removed, preserving the order of
// first occurrence. Empty strings are dropped.
func Dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
