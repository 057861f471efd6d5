package models

// SubscriptionTier is a buyer's subscription level
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierBasic   SubscriptionTier = "basic"
	TierPremium SubscriptionTier = "premium"
)

// AlertCandidate is one buyer eligible for alert evaluation: alerts enabled
// and a verified email address, as returned by the candidate source.
type AlertCandidate struct {
	BuyerID          string           `json:"buyer_id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
	Preferences      RawPreferences   `json:"preferences"`
}

// RawPreferences is a buyer's stored preference record in its legacy shape.
// The budget is a single "min-max" range string and PreferredAreas is
// overloaded: besides location fragments it may carry encoded numeric facts
// such as "bedrooms:3". Nothing outside the preference normalizer should
// ever read this type directly.
type RawPreferences struct {
	BudgetRange       string   `json:"budget_range,omitempty"`
	PreferredAreas    []string `json:"preferred_areas,omitempty"`
	PropertyTypes     []string `json:"property_types,omitempty"`
	PreferredFeatures []string `json:"preferred_features,omitempty"`
	MinSquareFeet     *int     `json:"min_square_feet,omitempty"`
	MaxSquareFeet     *int     `json:"max_square_feet,omitempty"`
}

// BuyerCriteria is the canonical, strongly typed criteria set produced by
// normalizing RawPreferences. Built fresh per evaluation and never mutated.
// Nil fields mean the buyer did not state that preference; a pointer to a
// zero value is still a stated criterion.
type BuyerCriteria struct {
	MinBudget              *float64
	MaxBudget              *float64
	MinBedrooms            *int
	MinBathrooms           *int
	MinGarages             *int
	PreferredAreas         []string
	PreferredPropertyTypes []string
	MinSquareFeet          *int
	MaxSquareFeet          *int
	PreferredFeatures      []string
}

// Count returns how many criteria the buyer actually stated. Score
// normalization divides by this; zero means "no stated preference" and the
// scorer treats every property as a match.
func (c *BuyerCriteria) Count() int {
	total := 0
	if c.MinBudget != nil {
		total++
	}
	if c.MaxBudget != nil {
		total++
	}
	if c.MinBedrooms != nil {
		total++
	}
	if c.MinBathrooms != nil {
		total++
	}
	if c.MinGarages != nil {
		total++
	}
	if len(c.PreferredAreas) > 0 {
		total++
	}
	if len(c.PreferredPropertyTypes) > 0 {
		total++
	}
	if c.MinSquareFeet != nil {
		total++
	}
	if c.MaxSquareFeet != nil {
		total++
	}
	if len(c.PreferredFeatures) > 0 {
		total++
	}
	return total
}
