package services

import (
	"strings"
)

// stopTokens are brand and noise words that carry no identity when comparing
// a provider category label against a canonical set name. Kept as a single
// named list so matching behavior stays centrally auditable.
var stopTokens = map[string]struct{}{
	"base":      {},
	"short":     {},
	"print":     {},
	"refractor": {},
	"trading":   {},
	"card":      {},
	"cards":     {},
	"tcg":       {},
	"marvel":    {},
	"topps":     {},
	"panini":    {},
	"fleer":     {},
	"skybox":    {},
	"impel":     {},
	"donruss":   {},
	"upper":     {},
	"deck":      {},
}

// NormalizeName canonicalizes a free-text name for comparison: lowercase,
// letters/digits/whitespace only, single spaces, stop tokens removed.
// Deterministic and side-effect free; empty input yields empty output.
func NormalizeName(s string) string {
	sanitized := sanitizeLabel(s)
	if sanitized == "" {
		return ""
	}

	fields := strings.Fields(sanitized)
	kept := fields[:0]
	for _, f := range fields {
		if _, stop := stopTokens[f]; stop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// sanitizeLabel lowercases and strips everything but letters, digits and
// whitespace, collapsing runs of whitespace. Unlike NormalizeName it keeps
// stop tokens, which the structural match tier needs intact.
func sanitizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		default:
			// Punctuation separates tokens rather than fusing them:
			// "Spider-Man" and "Spider Man" must normalize identically.
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
