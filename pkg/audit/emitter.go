// Package audit emits alert-run audit events to Kafka. Emission is fire and
// forget: an unreachable broker never blocks a run and failures are only
// logged.
package audit

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/openlistings/beacon/pkg/access"
	"github.com/openlistings/beacon/pkg/kafka"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// SchemaVersion is the current audit event schema version
const SchemaVersion = "1.0"

const (
	eventTypeAccessDecision = "access.decision"
	eventTypeAlertSent      = "alert.sent"
	eventTypeRunCompleted   = "run.completed"
)

// Emitter publishes audit events for Beacon
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new audit emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// RecordAccessDecision emits an access.decision event
func (e *Emitter) RecordAccessDecision(ctx context.Context, decision access.Decision) {
	ctx, span := tracing.StartSpan(ctx, "audit.Emitter.RecordAccessDecision")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"allowed":        decision.Allowed,
		"reason":         decision.Reason,
		"alert_class":    decision.AlertClass,
	})

	event := &kafka.AuditEvent{
		EventType: eventTypeAccessDecision,
		BuyerID:   decision.BuyerID,
		Data:      data,
	}

	if err := e.producer.PublishAuditEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit access.decision event")
	}
}

// RecordAlertSent emits an alert.sent event
func (e *Emitter) RecordAlertSent(ctx context.Context, buyerID, propertyID string, alertType models.AlertClass, matchedCriteria []string) {
	ctx, span := tracing.StartSpan(ctx, "audit.Emitter.RecordAlertSent")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version":   SchemaVersion,
		"alert_class":      alertType,
		"matched_criteria": matchedCriteria,
	})

	event := &kafka.AuditEvent{
		EventType:  eventTypeAlertSent,
		BuyerID:    buyerID,
		PropertyID: propertyID,
		Data:       data,
	}

	if err := e.producer.PublishAuditEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit alert.sent event")
	}
}

// RecordRunCompleted emits a run.completed event
func (e *Emitter) RecordRunCompleted(ctx context.Context, summary models.RunSummary) {
	ctx, span := tracing.StartSpan(ctx, "audit.Emitter.RecordRunCompleted")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version":       SchemaVersion,
		"candidates_evaluated": summary.CandidatesEvaluated,
		"access_denied":        summary.AccessDenied,
		"matches_found":        summary.MatchesFound,
		"alerts_sent":          summary.AlertsSent,
		"alerts_failed":        summary.AlertsFailed,
		"started_at":           summary.StartedAt,
		"completed_at":         summary.CompletedAt,
	})

	event := &kafka.AuditEvent{
		EventType:  eventTypeRunCompleted,
		RunID:      summary.RunID,
		PropertyID: summary.PropertyID,
		Data:       data,
	}

	if err := e.producer.PublishAuditEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run.completed event")
	}
}
