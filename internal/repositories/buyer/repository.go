// Package buyer reads buyer profiles and stored preferences.
package buyer

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/openlistings/beacon/pkg/database"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Repository handles buyer reads
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new buyer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type candidateRow struct {
	BuyerID          string                                `db:"id"`
	Name             string                                `db:"name"`
	Email            string                                `db:"email"`
	SubscriptionTier string                                `db:"subscription_tier"`
	Preferences      database.JSONB[models.RawPreferences] `db:"preferences"`
}

// ListAlertCandidates returns every buyer with alerts enabled and a verified
// email address, together with their stored preferences.
func (r *Repository) ListAlertCandidates(ctx context.Context) ([]models.AlertCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "buyer.Repository.ListAlertCandidates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "email", "subscription_tier", "preferences")
	sb.From("buyers")
	sb.Where(
		sb.Equal("alerts_enabled", true),
		sb.Equal("email_verified", true),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list alert candidates")
		return nil, errors.Wrap(err, "failed to list alert candidates")
	}

	candidates := make([]models.AlertCandidate, len(rows))
	for i, row := range rows {
		candidates[i] = models.AlertCandidate{
			BuyerID:          row.BuyerID,
			Name:             row.Name,
			Email:            row.Email,
			SubscriptionTier: models.SubscriptionTier(row.SubscriptionTier),
			Preferences:      row.Preferences.GetValue(),
		}
	}

	return candidates, nil
}

// GetSubscriptionTier returns a buyer's current subscription tier
func (r *Repository) GetSubscriptionTier(ctx context.Context, buyerID string) (models.SubscriptionTier, error) {
	ctx, span := tracing.StartSpan(ctx, "buyer.Repository.GetSubscriptionTier")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("subscription_tier")
	sb.From("buyers")
	sb.Where(
		sb.Equal("id", buyerID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var tier string
	if err := r.db.GetContext(ctx, &tier, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return "", errors.Errorf("buyer %s not found", buyerID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"buyer_id": buyerID,
		}).Error("Failed to get subscription tier")
		return "", err
	}

	return models.SubscriptionTier(tier), nil
}
