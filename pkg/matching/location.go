package matching

import (
	"strings"

	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/similarity"
)

// thresholds for fuzzy token comparison
const (
	strictTokenThreshold = 0.8 // every fragment token must clear this
	looseTokenThreshold  = 0.7 // fallback per-token bar
	tokenCoverage        = 0.7 // fraction of fragment tokens that must clear the fallback bar
	minTokenLength       = 3
)

// regionSuffixes are trailing country/region qualifiers buyers append to
// area fragments ("mawson lakes, australia"). They carry no matching signal
// against city or address and are stripped before comparison.
var regionSuffixes = map[string]bool{
	"australia": true,
	"au":        true,
	"sa":        true,
	"nsw":       true,
	"vic":       true,
	"qld":       true,
	"wa":        true,
	"nt":        true,
	"tas":       true,
	"act":       true,
	"nz":        true,
	"usa":       true,
	"us":        true,
	"uk":        true,
}

// anyAreaMatches reports whether any preferred area fragment matches the
// property's location. Short-circuits on the first hit.
func anyAreaMatches(areas []string, property *models.Property) bool {
	for _, area := range areas {
		if fragmentMatches(area, property.City, property.State, property.Address) {
			return true
		}
	}
	return false
}

// fragmentMatches applies the fuzzy location algorithm for one fragment:
// strip a trailing region suffix, try direct substring containment in
// either direction, then token-level comparison against city and address.
// Inputs are normalized here so callers can pass stored values as is.
func fragmentMatches(fragment, city, state, address string) bool {
	city = strings.ToLower(strings.TrimSpace(city))
	state = strings.ToLower(strings.TrimSpace(state))
	address = strings.ToLower(strings.TrimSpace(address))

	fragment = stripRegionSuffix(strings.ToLower(strings.TrimSpace(fragment)))
	if fragment == "" {
		return false
	}

	cityState := city + ", " + state
	for _, target := range []string{cityState, city, address} {
		if target == "" {
			continue
		}
		if strings.Contains(target, fragment) || strings.Contains(fragment, target) {
			return true
		}
	}

	fragTokens := tokenize(fragment)
	if len(fragTokens) == 0 {
		return false
	}
	cityTokens := tokenize(city)
	addressTokens := tokenize(address)

	if allTokensMatch(fragTokens, cityTokens) || allTokensMatch(fragTokens, addressTokens) {
		return true
	}

	return tokenCoverageOf(fragTokens, cityTokens) >= tokenCoverage ||
		tokenCoverageOf(fragTokens, addressTokens) >= tokenCoverage
}

// stripRegionSuffix removes trailing region qualifiers, comma separated or
// space separated.
func stripRegionSuffix(fragment string) string {
	parts := strings.Split(fragment, ",")
	for len(parts) > 1 && regionSuffixes[strings.TrimSpace(parts[len(parts)-1])] {
		parts = parts[:len(parts)-1]
	}
	fragment = strings.TrimSpace(strings.Join(parts, ","))

	words := strings.Fields(fragment)
	for len(words) > 1 && regionSuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// tokenize splits on non-letter/digit boundaries and keeps words longer
// than two characters.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// allTokensMatch reports whether every fragment token has a target token
// that contains it, is contained by it, or is nearly identical.
func allTokensMatch(fragTokens, targetTokens []string) bool {
	if len(targetTokens) == 0 {
		return false
	}
	for _, ft := range fragTokens {
		if bestTokenScore(ft, targetTokens) <= strictTokenThreshold {
			return false
		}
	}
	return true
}

// tokenCoverageOf returns the fraction of fragment tokens with some target
// token above the loose threshold.
func tokenCoverageOf(fragTokens, targetTokens []string) float64 {
	if len(targetTokens) == 0 {
		return 0
	}
	matched := 0
	for _, ft := range fragTokens {
		if bestTokenScore(ft, targetTokens) > looseTokenThreshold {
			matched++
		}
	}
	return float64(matched) / float64(len(fragTokens))
}

// bestTokenScore scores a fragment token against the closest target token.
// Containment in either direction counts as a full match; otherwise the
// normalized edit distance similarity is used.
func bestTokenScore(token string, targets []string) float64 {
	best := 0.0
	for _, target := range targets {
		if strings.Contains(target, token) || strings.Contains(token, target) {
			return 1.0
		}
		if s := similarity.Similarity(token, target); s > best {
			best = s
		}
	}
	return best
}
