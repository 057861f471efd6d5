// Package access decides whether a buyer's subscription tier permits
// receiving a given alert class.
package access

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Denial reasons carried on access decision events
const (
	ReasonOffMarketRequiresPremium = "off_market_requires_premium"
	ReasonInsufficientTier         = "insufficient_subscription_tier"
)

// Decision is one access check outcome. Every check emits exactly one of
// these to the audit sink, allowed or denied.
type Decision struct {
	BuyerID    string            `json:"buyer_id"`
	AlertClass models.AlertClass `json:"alert_class"`
	Allowed    bool              `json:"allowed"`
	Reason     string            `json:"reason,omitempty"`
}

// ProfileSource reads a buyer's subscription tier from the profile store
type ProfileSource interface {
	GetSubscriptionTier(ctx context.Context, buyerID string) (models.SubscriptionTier, error)
}

// DecisionRecorder receives access decisions. Fire and forget; a recorder
// failure must never surface as a gate failure.
type DecisionRecorder interface {
	RecordAccessDecision(ctx context.Context, decision Decision)
}

// Gate enforces subscription tier access to alert classes
type Gate struct {
	profiles ProfileSource
	audit    DecisionRecorder
	logger   ectologger.Logger
}

// NewGate creates a new Gate
func NewGate(profiles ProfileSource, audit DecisionRecorder, logger ectologger.Logger) *Gate {
	return &Gate{
		profiles: profiles,
		audit:    audit,
		logger:   logger,
	}
}

// CheckAccess reports whether the buyer may receive alerts of the given
// class. On market alerts are open to every tier; off market alerts require
// premium. A missing or unreadable profile is a denial, never an error.
func (g *Gate) CheckAccess(ctx context.Context, buyerID string, alertClass models.AlertClass) bool {
	ctx, span := tracing.StartSpan(ctx, "access.Gate.CheckAccess")
	defer span.End()

	decision := Decision{
		BuyerID:    buyerID,
		AlertClass: alertClass,
	}

	if alertClass == models.AlertClassOnMarket {
		decision.Allowed = true
		g.audit.RecordAccessDecision(ctx, decision)
		return true
	}

	tier, err := g.profiles.GetSubscriptionTier(ctx, buyerID)
	if err != nil {
		g.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"buyer_id": buyerID,
		}).Warn("Could not read buyer profile, denying off market alert")
		decision.Reason = ReasonInsufficientTier
		g.audit.RecordAccessDecision(ctx, decision)
		return false
	}

	if tier != models.TierPremium {
		decision.Reason = ReasonOffMarketRequiresPremium
		g.audit.RecordAccessDecision(ctx, decision)
		return false
	}

	decision.Allowed = true
	g.audit.RecordAccessDecision(ctx, decision)
	return true
}
