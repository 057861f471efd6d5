package models

// ListingSource identifies how a property entered the platform
type ListingSource string

const (
	ListingSourcePlatform ListingSource = "platform"     // publicly listed, platform sourced
	ListingSourceAgent    ListingSource = "agent-posted" // agent exclusive, off market
)

// Property is a published listing as this engine sees it. It is read-only
// input loaded once per alert run.
type Property struct {
	ID            string        `json:"id"`
	Price         float64       `json:"price"`
	City          string        `json:"city"`
	State         string        `json:"state"`
	Address       string        `json:"address"`
	PropertyType  string        `json:"property_type"`
	Bedrooms      int           `json:"bedrooms"`
	Bathrooms     int           `json:"bathrooms"`
	Garages       int           `json:"garages"`
	SquareFeet    *int          `json:"square_feet,omitempty"`
	Features      []string      `json:"features,omitempty"`
	ListingSource ListingSource `json:"listing_source"`
}

// AlertClass returns the alert class for this property. Agent posted
// listings are off market and gated to premium buyers; everything else is
// an on market alert. The class is the same for every buyer in a run.
func (p *Property) AlertClass() AlertClass {
	if p.ListingSource == ListingSourceAgent {
		return AlertClassOffMarket
	}
	return AlertClassOnMarket
}
