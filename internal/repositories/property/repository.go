// Package property reads published listings for alert runs.
package property

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/openlistings/beacon/pkg/database"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Repository handles property reads
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type propertyRow struct {
	ID            string         `db:"id"`
	Price         float64        `db:"price"`
	City          string         `db:"city"`
	State         string         `db:"state"`
	Address       string         `db:"address"`
	PropertyType  string         `db:"property_type"`
	Bedrooms      int            `db:"bedrooms"`
	Bathrooms     int            `db:"bathrooms"`
	Garages       int            `db:"garages"`
	SquareFeet    *int           `db:"square_feet"`
	Features      pq.StringArray `db:"features"`
	ListingSource string         `db:"listing_source"`
	ApprovedAt    *time.Time     `db:"approved_at"`
}

func (row *propertyRow) toModel() *models.Property {
	return &models.Property{
		ID:            row.ID,
		Price:         row.Price,
		City:          row.City,
		State:         row.State,
		Address:       row.Address,
		PropertyType:  row.PropertyType,
		Bedrooms:      row.Bedrooms,
		Bathrooms:     row.Bathrooms,
		Garages:       row.Garages,
		SquareFeet:    row.SquareFeet,
		Features:      row.Features,
		ListingSource: models.ListingSource(row.ListingSource),
	}
}

// GetApprovedProperty returns the approved property with the given ID, or
// nil when no approved property exists.
func (r *Repository) GetApprovedProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.GetApprovedProperty")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "price", "city", "state", "address", "property_type", "bedrooms", "bathrooms", "garages", "square_feet", "features", "listing_source", "approved_at")
	sb.From("properties")
	sb.Where(
		sb.Equal("id", propertyID),
		sb.IsNotNull("approved_at"),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var row propertyRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"property_id": propertyID,
		}).Error("Failed to get property")
		return nil, err
	}

	return row.toModel(), nil
}
