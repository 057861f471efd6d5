package access

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/beacon/pkg/models"
)

type fakeProfiles struct {
	tiers map[string]models.SubscriptionTier
	err   error
}

func (f *fakeProfiles) GetSubscriptionTier(_ context.Context, buyerID string) (models.SubscriptionTier, error) {
	if f.err != nil {
		return "", f.err
	}
	tier, ok := f.tiers[buyerID]
	if !ok {
		return "", errors.New("profile not found")
	}
	return tier, nil
}

type recordedDecisions struct {
	decisions []Decision
}

func (r *recordedDecisions) RecordAccessDecision(_ context.Context, d Decision) {
	r.decisions = append(r.decisions, d)
}

func newTestGate(profiles ProfileSource) (*Gate, *recordedDecisions) {
	audit := &recordedDecisions{}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewGate(profiles, audit, logger), audit
}

func TestCheckAccess_OnMarketOpenToAllTiers(t *testing.T) {
	gate, audit := newTestGate(&fakeProfiles{tiers: map[string]models.SubscriptionTier{
		"free-buyer": models.TierFree,
	}})

	allowed := gate.CheckAccess(context.Background(), "free-buyer", models.AlertClassOnMarket)

	assert.True(t, allowed)
	require.Len(t, audit.decisions, 1)
	assert.True(t, audit.decisions[0].Allowed)
	assert.Empty(t, audit.decisions[0].Reason)
}

func TestCheckAccess_OffMarketTiers(t *testing.T) {
	profiles := &fakeProfiles{tiers: map[string]models.SubscriptionTier{
		"free-buyer":    models.TierFree,
		"basic-buyer":   models.TierBasic,
		"premium-buyer": models.TierPremium,
	}}

	tests := []struct {
		buyerID string
		allowed bool
	}{
		{buyerID: "free-buyer", allowed: false},
		{buyerID: "basic-buyer", allowed: false},
		{buyerID: "premium-buyer", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.buyerID, func(t *testing.T) {
			gate, audit := newTestGate(profiles)
			allowed := gate.CheckAccess(context.Background(), tt.buyerID, models.AlertClassOffMarket)
			assert.Equal(t, tt.allowed, allowed)
			require.Len(t, audit.decisions, 1)
			assert.Equal(t, tt.allowed, audit.decisions[0].Allowed)
			if !tt.allowed {
				assert.Equal(t, ReasonOffMarketRequiresPremium, audit.decisions[0].Reason)
			}
		})
	}
}

func TestCheckAccess_MissingProfileDeniesWithoutError(t *testing.T) {
	gate, audit := newTestGate(&fakeProfiles{err: errors.New("connection refused")})

	allowed := gate.CheckAccess(context.Background(), "ghost", models.AlertClassOffMarket)

	assert.False(t, allowed)
	require.Len(t, audit.decisions, 1)
	assert.Equal(t, ReasonInsufficientTier, audit.decisions[0].Reason)
}

func TestCheckAccess_EveryCheckEmitsOneDecision(t *testing.T) {
	gate, audit := newTestGate(&fakeProfiles{tiers: map[string]models.SubscriptionTier{
		"premium-buyer": models.TierPremium,
	}})

	gate.CheckAccess(context.Background(), "premium-buyer", models.AlertClassOnMarket)
	gate.CheckAccess(context.Background(), "premium-buyer", models.AlertClassOffMarket)

	assert.Len(t, audit.decisions, 2)
}
