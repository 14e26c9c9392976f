package services

import (
	"regexp"
	"strings"

	"github.com/cardvault/backend/internal/models"
)

// MatchStrategy describes the tier by which a listing was attached to a set.
type MatchStrategy string

const (
	MatchStrategyExact        MatchStrategy = "exact"
	MatchStrategySimilarity   MatchStrategy = "similarity"
	MatchStrategyTokenOverlap MatchStrategy = "token_overlap"
	MatchStrategyStructural   MatchStrategy = "structural"
)

// tier order for tie-breaking; lower is stronger.
var strategyRank = map[MatchStrategy]int{
	MatchStrategyExact:        0,
	MatchStrategySimilarity:   1,
	MatchStrategyTokenOverlap: 2,
	MatchStrategyStructural:   3,
}

// MatchResult holds the outcome of matching one listing against the
// candidate sets. Transient: used for logging and audit, never persisted.
type MatchResult struct {
	SetID      string        `json:"set_id"`
	Strategy   MatchStrategy `json:"strategy"`
	Confidence float64       `json:"confidence"`
}

// MatchConfig holds the matcher thresholds. Values are named configuration,
// not inlined literals, so behavior is centrally auditable.
type MatchConfig struct {
	SimilarityThreshold   float64
	TokenOverlapThreshold float64
	StructuralConfidence  float64
}

// DefaultMatchConfig returns the default matching configuration.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		SimilarityThreshold:   0.85,
		TokenOverlapThreshold: 0.60,
		StructuralConfidence:  0.75,
	}
}

// Vocabularies for the structural tier. A set name that carries a year, a
// manufacturer and a product line is structurally identifiable even when
// string similarity falls short.
var (
	manufacturerTokens = []string{"upper deck", "topps", "panini", "fleer", "skybox", "impel", "donruss"}
	productLineTokens  = []string{"marvel", "platinum", "chrome", "ultra", "prizm", "masterpieces", "metal"}
	yearToken          = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// SetMatcher decides whether an external listing belongs to a canonical set.
type SetMatcher struct {
	cfg MatchConfig
}

func NewSetMatcher(cfg MatchConfig) *SetMatcher {
	return &SetMatcher{cfg: cfg}
}

// Match returns the best-matching candidate set for a listing, or nil when
// no candidate passes any tier. Tiers are first-hit-wins per candidate;
// across candidates the highest confidence wins, with ties broken by tier
// strength and then by shorter set name (prefer the base set over a longer
// subset-qualified name). An exact hit short-circuits remaining candidates.
func (m *SetMatcher) Match(listing models.ExternalListing, candidates []models.CardSet) *MatchResult {
	label := NormalizeName(listing.CategoryLabel)
	rawLabel := sanitizeLabel(listing.CategoryLabel)

	var best *MatchResult
	var bestName string

	for _, set := range candidates {
		result := m.matchOne(label, rawLabel, set)
		if result == nil {
			continue
		}
		if result.Strategy == MatchStrategyExact {
			return result
		}
		if best == nil || betterMatch(result, set.Name, best, bestName) {
			best = result
			bestName = set.Name
		}
	}

	return best
}

// matchOne runs the tier cascade for a single candidate set.
func (m *SetMatcher) matchOne(label, rawLabel string, set models.CardSet) *MatchResult {
	name := NormalizeName(set.Name)

	if label != "" && label == name {
		return &MatchResult{SetID: set.ID, Strategy: MatchStrategyExact, Confidence: 1.0}
	}

	if label != "" && name != "" {
		if score := SimilarityScore(label, name); score >= m.cfg.SimilarityThreshold {
			return &MatchResult{SetID: set.ID, Strategy: MatchStrategySimilarity, Confidence: score}
		}

		if ratio := TokenOverlapRatio(name, label); ratio >= m.cfg.TokenOverlapThreshold {
			return &MatchResult{SetID: set.ID, Strategy: MatchStrategyTokenOverlap, Confidence: ratio}
		}
	}

	if m.structuralMatch(rawLabel, set.Name) {
		return &MatchResult{SetID: set.ID, Strategy: MatchStrategyStructural, Confidence: m.cfg.StructuralConfidence}
	}

	return nil
}

// structuralMatch accepts a candidate when its name contains a 4-digit year,
// a known manufacturer and a known product line, and the listing's label
// contains all three of those exact tokens. Runs on sanitized (not
// stop-token-stripped) strings since the vocabularies overlap the stop list.
func (m *SetMatcher) structuralMatch(rawLabel, setName string) bool {
	name := sanitizeLabel(setName)

	year := yearToken.FindString(name)
	if year == "" {
		return false
	}

	manufacturer := findVocabToken(name, manufacturerTokens)
	if manufacturer == "" {
		return false
	}

	productLine := findVocabToken(name, productLineTokens)
	if productLine == "" {
		return false
	}

	return strings.Contains(rawLabel, year) &&
		strings.Contains(rawLabel, manufacturer) &&
		strings.Contains(rawLabel, productLine)
}

func findVocabToken(s string, vocab []string) string {
	for _, token := range vocab {
		if strings.Contains(s, token) {
			return token
		}
	}
	return ""
}

// betterMatch reports whether candidate beats the current best: higher
// confidence first, then stronger tier, then shorter set name.
func betterMatch(candidate *MatchResult, candidateName string, best *MatchResult, bestName string) bool {
	if candidate.Confidence != best.Confidence {
		return candidate.Confidence > best.Confidence
	}
	if strategyRank[candidate.Strategy] != strategyRank[best.Strategy] {
		return strategyRank[candidate.Strategy] < strategyRank[best.Strategy]
	}
	return len(candidateName) < len(bestName)
}
