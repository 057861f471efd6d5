// Package preferences converts stored buyer preference records into the
// canonical criteria set the match scorer consumes. The stored shape is
// legacy: the budget is a "min-max" range string and the preferred areas
// list is overloaded with encoded numeric facts ("bedrooms:3"). All of that
// decoding happens here, once, so the scorer only ever sees clean criteria.
package preferences

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openlistings/beacon/pkg/models"
)

const (
	defaultMinBudget = 0
	defaultMaxBudget = 1_000_000
)

// prefixes for numeric facts smuggled into the preferred areas list
const (
	factBedrooms  = "bedrooms:"
	factBathrooms = "bathrooms:"
	factGarages   = "garages:"
)

// Normalize builds a fresh BuyerCriteria from a raw preference record.
// Returns an error only when an encoded numeric fact carries a value that
// cannot be parsed; everything else degrades to defaults or is dropped.
func Normalize(raw models.RawPreferences) (models.BuyerCriteria, error) {
	criteria := models.BuyerCriteria{}

	if raw.BudgetRange != "" {
		minBudget, maxBudget := parseBudgetRange(raw.BudgetRange)
		criteria.MinBudget = &minBudget
		criteria.MaxBudget = &maxBudget
	}

	for _, entry := range raw.PreferredAreas {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}

		switch {
		case strings.HasPrefix(entry, factBedrooms):
			n, err := parseFact(entry, factBedrooms)
			if err != nil {
				return models.BuyerCriteria{}, err
			}
			criteria.MinBedrooms = &n
		case strings.HasPrefix(entry, factBathrooms):
			n, err := parseFact(entry, factBathrooms)
			if err != nil {
				return models.BuyerCriteria{}, err
			}
			criteria.MinBathrooms = &n
		case strings.HasPrefix(entry, factGarages):
			n, err := parseFact(entry, factGarages)
			if err != nil {
				return models.BuyerCriteria{}, err
			}
			criteria.MinGarages = &n
		default:
			criteria.PreferredAreas = append(criteria.PreferredAreas, entry)
		}
	}

	criteria.PreferredPropertyTypes = cleanList(raw.PropertyTypes)
	criteria.PreferredFeatures = cleanList(raw.PreferredFeatures)
	criteria.MinSquareFeet = raw.MinSquareFeet
	criteria.MaxSquareFeet = raw.MaxSquareFeet

	return criteria, nil
}

// parseBudgetRange splits a "min-max" range on the first hyphen. A missing
// or malformed half falls back to its default rather than failing the buyer.
func parseBudgetRange(s string) (minBudget, maxBudget float64) {
	minBudget = defaultMinBudget
	maxBudget = defaultMaxBudget

	low, high, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		high = ""
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(low), 64); err == nil {
		minBudget = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(high), 64); err == nil {
		maxBudget = v
	}
	return minBudget, maxBudget
}

func parseFact(entry, prefix string) (int, error) {
	value := strings.TrimSpace(strings.TrimPrefix(entry, prefix))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid encoded preference %q: %w", entry, err)
	}
	return n, nil
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
