package services

import (
	"regexp"
	"strings"
)

// ParsedIdentity is the card identity extracted from one listing title.
// An empty CardNumber is a valid outcome, not an error; callers decide
// whether to reject such listings.
type ParsedIdentity struct {
	CardNumber  string `json:"card_number"`
	CardName    string `json:"card_name"`
	SetNameHint string `json:"set_name_hint"`
}

// Listing titles follow a handful of layouts. Card numbers are alphanumeric
// tokens that may contain hyphens ("I-13", "TG17").
var (
	// "Spider-Man [Gold Foil] #12" - bracketed variant with trailing number
	reVariantNumber = regexp.MustCompile(`^(.+?)\s+\[([^\]]+)\]\s+#([A-Za-z0-9][A-Za-z0-9-]*)$`)

	// "Colossus #64" - name with trailing number
	reTrailingNumber = regexp.MustCompile(`^(.+?)\s+#([A-Za-z0-9][A-Za-z0-9-]*)$`)

	// "1992 Marvel Masterpieces #15 Spider-Man" - set prefix, embedded number, name
	reEmbeddedNumber = regexp.MustCompile(`^(.+?)\s+#([A-Za-z0-9][A-Za-z0-9-]*)\s+(.+)$`)
)

// ParseListingTitle extracts a card identity from a free-text listing title.
// Rules are tried in order and the first match wins; a title with no
// recognizable number token falls through to {"", title, ""}.
func ParseListingTitle(title string) ParsedIdentity {
	title = strings.TrimSpace(title)

	if m := reVariantNumber.FindStringSubmatch(title); m != nil {
		return ParsedIdentity{
			CardNumber: m[3],
			CardName:   strings.TrimSpace(m[1]) + " [" + m[2] + "]",
		}
	}

	if m := reTrailingNumber.FindStringSubmatch(title); m != nil {
		return ParsedIdentity{
			CardNumber: m[2],
			CardName:   strings.TrimSpace(m[1]),
		}
	}

	if m := reEmbeddedNumber.FindStringSubmatch(title); m != nil {
		return ParsedIdentity{
			CardNumber:  m[2],
			CardName:    strings.TrimSpace(m[3]),
			SetNameHint: strings.TrimSpace(m[1]),
		}
	}

	return ParsedIdentity{CardName: title}
}
