// Package alertrecord persists the durable record of every alert attempt.
package alertrecord

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

// Repository handles alert record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alert record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type recordRow struct {
	ID              string             `db:"id"`
	BuyerID         string             `db:"buyer_id"`
	PropertyID      string             `db:"property_id"`
	AlertType       models.AlertClass  `db:"alert_type"`
	Status          models.AlertStatus `db:"status"`
	EmailTemplate   string             `db:"email_template"`
	MatchedCriteria pq.StringArray     `db:"matched_criteria"`
	SentAt          time.Time          `db:"sent_at"`
}

func (row *recordRow) toModel() models.AlertRecord {
	return models.AlertRecord{
		ID:              row.ID,
		BuyerID:         row.BuyerID,
		PropertyID:      row.PropertyID,
		AlertType:       row.AlertType,
		Status:          row.Status,
		EmailTemplate:   row.EmailTemplate,
		MatchedCriteria: row.MatchedCriteria,
		SentAt:          row.SentAt,
	}
}

// Insert writes an alert record and reports whether the row was written. A
// partial unique index on (buyer_id, property_id) for non-failed records
// makes the insert a no-op when another run already sent this alert.
func (r *Repository) Insert(ctx context.Context, record *models.AlertRecord) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "alertrecord.Repository.Insert")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto("alert_records").
		Cols("id", "buyer_id", "property_id", "alert_type", "status", "email_template", "matched_criteria", "sent_at").
		Values(record.ID, record.BuyerID, record.PropertyID, record.AlertType, record.Status, record.EmailTemplate, pq.StringArray(record.MatchedCriteria), record.SentAt).
		OnConflictDoNothing()

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"buyer_id":    record.BuyerID,
			"property_id": record.PropertyID,
		}).Error("Failed to insert alert record")
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// HasActiveAlert reports whether a non-failed alert record already exists
// for the buyer and property.
func (r *Repository) HasActiveAlert(ctx context.Context, buyerID, propertyID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "alertrecord.Repository.HasActiveAlert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("1")
	sb.From("alert_records")
	sb.Where(
		sb.Equal("buyer_id", buyerID),
		sb.Equal("property_id", propertyID),
		sb.NotEqual("status", string(models.AlertStatusFailed)),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var one int
	err := r.db.GetContext(ctx, &one, query, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check for existing alert record")
		return false, err
	}

	return true, nil
}

// ListFilter narrows a List query
type ListFilter struct {
	BuyerID    string
	PropertyID string
	Status     models.AlertStatus
	Limit      int
	Offset     int
}

// List returns alert records matching the filter, newest first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.AlertRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "alertrecord.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "buyer_id", "property_id", "alert_type", "status", "email_template", "matched_criteria", "sent_at")
	sb.From("alert_records")

	if filter.BuyerID != "" {
		sb.Where(sb.Equal("buyer_id", filter.BuyerID))
	}
	if filter.PropertyID != "" {
		sb.Where(sb.Equal("property_id", filter.PropertyID))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}

	sb.OrderBy("sent_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	sb.Limit(limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list alert records")
		return nil, err
	}

	records := make([]models.AlertRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toModel()
	}

	return records, nil
}
