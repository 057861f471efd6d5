// Package runsummary persists alert run summaries.
package runsummary

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/openlistings/beacon/pkg/database"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Repository handles run summary persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new run summary repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert writes a run summary
func (r *Repository) Insert(ctx context.Context, summary *models.RunSummary) error {
	ctx, span := tracing.StartSpan(ctx, "runsummary.Repository.Insert")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto("run_summaries").
		Cols("run_id", "property_id", "candidates_evaluated", "access_denied", "matches_found", "alerts_sent", "alerts_failed", "started_at", "completed_at").
		Values(summary.RunID, summary.PropertyID, summary.CandidatesEvaluated, summary.AccessDenied, summary.MatchesFound, summary.AlertsSent, summary.AlertsFailed, summary.StartedAt, summary.CompletedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id": summary.RunID,
		}).Error("Failed to insert run summary")
		return err
	}

	return nil
}

// ListByProperty returns the summaries of past runs for a property, newest
// first.
func (r *Repository) ListByProperty(ctx context.Context, propertyID string, limit int) ([]models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "runsummary.Repository.ListByProperty")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("run_id", "property_id", "candidates_evaluated", "access_denied", "matches_found", "alerts_sent", "alerts_failed", "started_at", "completed_at")
	sb.From("run_summaries")
	sb.Where(sb.Equal("property_id", propertyID))
	sb.OrderBy("started_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var summaries []models.RunSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list run summaries")
		return nil, err
	}

	return summaries, nil
}
