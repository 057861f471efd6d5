// Package matching implements property to buyer criteria matching: a
// weighted multi-criteria scorer with fuzzy location matching.
package matching

import (
	"strings"

	"github.com/openlistings/beacon/pkg/models"
)

// Criterion tags recorded in MatchResult.MatchedCriteria
const (
	TagPriceMin     = "price_min"
	TagPriceMax     = "price_max"
	TagBedrooms     = "bedrooms"
	TagBathrooms    = "bathrooms"
	TagGarages      = "garages"
	TagLocation     = "location"
	TagPropertyType = "property_type"
	TagSqftMin      = "sqft_min"
	TagSqftMax      = "sqft_max"
	featureTagPrefix = "feature_"
)

// weights per matched criterion
const (
	weightPrice        = 0.3
	weightRooms        = 0.2
	weightLocation     = 0.3
	weightPropertyType = 0.2
	weightSquareFeet   = 0.1
	weightFeatures     = 0.2
)

// ScorerConfig holds the match acceptance thresholds
type ScorerConfig struct {
	MatchThreshold    float64 // matched weight sum at which a match is accepted outright
	CompoundThreshold float64 // lower bar used when enough criteria matched
	CompoundMin       int     // matched criteria tags needed for the compound rule
}

// DefaultScorerConfig returns the standard thresholds
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		MatchThreshold:    0.6,
		CompoundThreshold: 0.4,
		CompoundMin:       2,
	}
}

// Scorer evaluates properties against buyer criteria
type Scorer struct {
	config ScorerConfig
}

// NewScorer creates a new Scorer
func NewScorer(config ScorerConfig) *Scorer {
	return &Scorer{config: config}
}

// Evaluate scores a property against a buyer's normalized criteria.
// Every criterion the buyer stated contributes to the normalization count,
// matched or not; a criterion with a zero threshold is still a stated
// criterion. A buyer with no stated criteria matches everything at score 0.
// Acceptance compares the matched weight sum to the thresholds; the
// reported score is that sum divided by the total criteria count, keeping
// it in [0, 1] for ranking.
func (s *Scorer) Evaluate(property *models.Property, criteria *models.BuyerCriteria) models.MatchResult {
	result := models.MatchResult{
		PropertyID:    property.ID,
		TotalCriteria: criteria.Count(),
	}

	if result.TotalCriteria == 0 {
		result.IsMatch = true
		result.MatchedCriteria = []string{}
		return result
	}

	var weightedSum float64
	matched := []string{}

	if criteria.MinBudget != nil && property.Price >= *criteria.MinBudget {
		weightedSum += weightPrice
		matched = append(matched, TagPriceMin)
	}
	if criteria.MaxBudget != nil && property.Price <= *criteria.MaxBudget {
		weightedSum += weightPrice
		matched = append(matched, TagPriceMax)
	}
	if criteria.MinBedrooms != nil && property.Bedrooms >= *criteria.MinBedrooms {
		weightedSum += weightRooms
		matched = append(matched, TagBedrooms)
	}
	if criteria.MinBathrooms != nil && property.Bathrooms >= *criteria.MinBathrooms {
		weightedSum += weightRooms
		matched = append(matched, TagBathrooms)
	}
	if criteria.MinGarages != nil && property.Garages >= *criteria.MinGarages {
		weightedSum += weightRooms
		matched = append(matched, TagGarages)
	}
	if len(criteria.PreferredAreas) > 0 && anyAreaMatches(criteria.PreferredAreas, property) {
		weightedSum += weightLocation
		matched = append(matched, TagLocation)
	}
	if len(criteria.PreferredPropertyTypes) > 0 && typeMatches(criteria.PreferredPropertyTypes, property.PropertyType) {
		weightedSum += weightPropertyType
		matched = append(matched, TagPropertyType)
	}
	if criteria.MinSquareFeet != nil && property.SquareFeet != nil && *property.SquareFeet >= *criteria.MinSquareFeet {
		weightedSum += weightSquareFeet
		matched = append(matched, TagSqftMin)
	}
	if criteria.MaxSquareFeet != nil && property.SquareFeet != nil && *property.SquareFeet <= *criteria.MaxSquareFeet {
		weightedSum += weightSquareFeet
		matched = append(matched, TagSqftMax)
	}
	if len(criteria.PreferredFeatures) > 0 {
		shared := featureIntersection(property.Features, criteria.PreferredFeatures)
		if len(shared) > 0 {
			weightedSum += weightFeatures * float64(len(shared)) / float64(len(criteria.PreferredFeatures))
			for _, feature := range shared {
				matched = append(matched, featureTagPrefix+slug(feature))
			}
		}
	}

	result.Score = weightedSum / float64(result.TotalCriteria)
	result.MatchedCriteria = matched
	result.IsMatch = weightedSum >= s.config.MatchThreshold ||
		(len(matched) >= s.config.CompoundMin && weightedSum >= s.config.CompoundThreshold)

	return result
}

func typeMatches(preferred []string, propertyType string) bool {
	propertyType = strings.ToLower(strings.TrimSpace(propertyType))
	for _, p := range preferred {
		if p == propertyType {
			return true
		}
	}
	return false
}

// featureIntersection returns property features present in the preferred
// set, preserving preferred order for stable tags.
func featureIntersection(propertyFeatures, preferred []string) []string {
	have := make(map[string]bool, len(propertyFeatures))
	for _, f := range propertyFeatures {
		have[strings.ToLower(strings.TrimSpace(f))] = true
	}

	var shared []string
	for _, f := range preferred {
		if have[f] {
			shared = append(shared, f)
		}
	}
	return shared
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
