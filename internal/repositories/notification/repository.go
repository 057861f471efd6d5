// Package notification persists in-app notifications for the buyer dashboard.
package notification

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/openlistings/beacon/pkg/database"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Repository handles in-app notification persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new notification repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert writes a notification row
func (r *Repository) Insert(ctx context.Context, notification *models.InAppNotification) error {
	ctx, span := tracing.StartSpan(ctx, "notification.Repository.Insert")
	defer span.End()

	metadata := database.JSONB[map[string]any]{Data: notification.Metadata}

	ib := database.NewInsertBuilder().
		InsertInto("in_app_notifications").
		Cols("id", "buyer_id", "kind", "title", "body", "link", "metadata", "created_at").
		Values(notification.ID, notification.BuyerID, notification.Kind, notification.Title, notification.Body, notification.Link, metadata, notification.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"buyer_id": notification.BuyerID,
			"kind":     notification.Kind,
		}).Error("Failed to insert in-app notification")
		return err
	}

	return nil
}
