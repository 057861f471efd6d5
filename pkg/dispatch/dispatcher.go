// Package dispatch sends matched property alerts to buyers and records the
// outcome.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/openlistings/beacon/pkg/metrics"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Email templates selected per alert class. Rendering happens in the
// platform mailer; this engine only names the template.
const (
	TemplateOnMarket  = "on_market_alert"
	TemplateOffMarket = "off_market_alert"
)

// RateLimitAction keys the per-buyer send limiter. The support routes use
// the same key when pausing or resuming a buyer's sends.
const RateLimitAction = "property_alert_email"

// PropertyView is the property payload handed to the mailer and the in-app
// notification.
type PropertyView struct {
	PropertyID   string   `json:"property_id"`
	Price        float64  `json:"price"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Address      string   `json:"address"`
	PropertyType string   `json:"property_type"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	SquareFeet   *int     `json:"square_feet,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// NewPropertyView builds the outbound view of a property
func NewPropertyView(p *models.Property) PropertyView {
	return PropertyView{
		PropertyID:   p.ID,
		Price:        p.Price,
		City:         p.City,
		State:        p.State,
		Address:      p.Address,
		PropertyType: p.PropertyType,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		SquareFeet:   p.SquareFeet,
		Features:     p.Features,
	}
}

// InAppNotification is the best-effort in-app companion to an alert email
type InAppNotification struct {
	BuyerID  string
	Kind     string
	Title    string
	Body     string
	Link     string
	Metadata map[string]any
}

// Notifier delivers alerts over the platform's channels
type Notifier interface {
	SendAlertEmail(ctx context.Context, email, name, template string, view PropertyView) error
	CreateInAppNotification(ctx context.Context, notification InAppNotification) error
}

// RecordStore persists alert records. Insert must be atomic on the
// (buyer, property) pair for non-failed records and report whether the row
// was written, so concurrent runs cannot both claim the send.
type RecordStore interface {
	HasActiveAlert(ctx context.Context, buyerID, propertyID string) (bool, error)
	Insert(ctx context.Context, record *models.AlertRecord) (bool, error)
}

// AlertRecorder receives per-alert audit events. Fire and forget.
type AlertRecorder interface {
	RecordAlertSent(ctx context.Context, buyerID, propertyID string, alertType models.AlertClass, matchedCriteria []string)
}

// Limiter throttles outbound sends per buyer and action
type Limiter interface {
	Allow(ctx context.Context, userID, action string) (bool, error)
}

// Result reports what a dispatch attempt did
type Result struct {
	Status       models.AlertStatus
	Deduplicated bool
}

// Dispatcher sends alerts for accepted matches
type Dispatcher struct {
	notifier Notifier
	records  RecordStore
	audit    AlertRecorder
	limiter  Limiter
	logger   ectologger.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(notifier Notifier, records RecordStore, audit AlertRecorder, limiter Limiter, logger ectologger.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		records:  records,
		audit:    audit,
		limiter:  limiter,
		logger:   logger,
	}
}

// Dispatch sends one alert to one buyer. It suppresses duplicates against
// existing alert records, sends the email, persists the outcome and fires a
// best-effort in-app notification. Failures are returned to the caller
// without retrying; retry policy belongs to the coordinator.
func (d *Dispatcher) Dispatch(ctx context.Context, buyer models.AlertCandidate, property *models.Property, class models.AlertClass, matchedCriteria []string) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.Dispatcher.Dispatch")
	defer span.End()

	log := d.logger.WithContext(ctx).WithFields(map[string]any{
		"buyer_id":    buyer.BuyerID,
		"property_id": property.ID,
		"alert_class": class,
	})

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, buyer.BuyerID, RateLimitAction)
		if err != nil {
			// rate limiter trouble must not block alerts
			log.WithError(err).Warn("Rate limiter unavailable, allowing send")
		} else if !allowed {
			metrics.AlertsTotal.WithLabelValues("rate_limited", string(class)).Inc()
			return Result{Status: models.AlertStatusFailed}, fmt.Errorf("buyer %s rate limited for %s", buyer.BuyerID, RateLimitAction)
		}
	}

	exists, err := d.records.HasActiveAlert(ctx, buyer.BuyerID, property.ID)
	if err != nil {
		// the advisory check is best effort; the insert below is the
		// authoritative guard
		log.WithError(err).Warn("Duplicate check failed, continuing")
	} else if exists {
		log.Debug("Alert already sent for buyer and property, skipping")
		metrics.AlertsDeduplicated.Inc()
		return Result{Status: models.AlertStatusSent, Deduplicated: true}, nil
	}

	template := TemplateOnMarket
	if class == models.AlertClassOffMarket {
		template = TemplateOffMarket
	}

	record := &models.AlertRecord{
		ID:              uuid.New().String(),
		BuyerID:         buyer.BuyerID,
		PropertyID:      property.ID,
		AlertType:       class,
		EmailTemplate:   template,
		MatchedCriteria: matchedCriteria,
		SentAt:          time.Now().UTC(),
	}

	view := NewPropertyView(property)
	if err := d.notifier.SendAlertEmail(ctx, buyer.Email, buyer.Name, template, view); err != nil {
		record.Status = models.AlertStatusFailed
		if _, insertErr := d.records.Insert(ctx, record); insertErr != nil {
			log.WithError(insertErr).Error("Failed to persist failed alert record")
		}
		metrics.AlertsTotal.WithLabelValues("failed", string(class)).Inc()
		return Result{Status: models.AlertStatusFailed}, fmt.Errorf("send alert email: %w", err)
	}

	record.Status = models.AlertStatusSent
	inserted, err := d.records.Insert(ctx, record)
	if err != nil {
		// the email went out; a record write failure is not a dispatch failure
		log.WithError(err).Error("Failed to persist alert record")
	} else if !inserted {
		log.Warn("Alert record already present, another run sent this alert")
		metrics.AlertsDeduplicated.Inc()
	}

	d.audit.RecordAlertSent(ctx, buyer.BuyerID, property.ID, class, matchedCriteria)
	metrics.AlertsTotal.WithLabelValues("sent", string(class)).Inc()

	if err := d.notifier.CreateInAppNotification(ctx, d.inAppNotification(buyer, property, class)); err != nil {
		log.WithError(err).Warn("Failed to create in-app notification")
	}

	log.WithFields(map[string]any{"template": template}).Info("Alert dispatched")
	return Result{Status: models.AlertStatusSent}, nil
}

func (d *Dispatcher) inAppNotification(buyer models.AlertCandidate, property *models.Property, class models.AlertClass) InAppNotification {
	title := fmt.Sprintf("New property match in %s", property.City)
	kind := "property_alert"
	if class == models.AlertClassOffMarket {
		title = fmt.Sprintf("Exclusive off-market match in %s", property.City)
		kind = "off_market_alert"
	}

	return InAppNotification{
		BuyerID: buyer.BuyerID,
		Kind:    kind,
		Title:   title,
		Body:    fmt.Sprintf("%s, %s %s fits your saved preferences.", property.Address, property.City, property.State),
		Link:    "/properties/" + property.ID,
		Metadata: map[string]any{
			"property_id": property.ID,
			"alert_class": string(class),
		},
	}
}
