package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/beacon/pkg/dispatch"
	"github.com/openlistings/beacon/pkg/matching"
	"github.com/openlistings/beacon/pkg/models"
)

type fakePropertyLookup struct {
	property *models.Property
	err      error
}

func (f *fakePropertyLookup) GetApprovedProperty(_ context.Context, _ string) (*models.Property, error) {
	return f.property, f.err
}

type fakeCandidateSource struct {
	candidates []models.AlertCandidate
	err        error
}

func (f *fakeCandidateSource) ListAlertCandidates(_ context.Context) ([]models.AlertCandidate, error) {
	return f.candidates, f.err
}

type fakeGate struct {
	denied map[string]bool
}

func (f *fakeGate) CheckAccess(_ context.Context, buyerID string, _ models.AlertClass) bool {
	return !f.denied[buyerID]
}

type fakeDispatcher struct {
	mu         sync.Mutex
	failFor    map[string]bool
	dedupFor   map[string]bool
	blockFor   map[string]bool
	dispatched []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, buyer models.AlertCandidate, _ *models.Property, _ models.AlertClass, _ []string) (dispatch.Result, error) {
	if f.blockFor[buyer.BuyerID] {
		<-ctx.Done()
		return dispatch.Result{Status: models.AlertStatusFailed}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[buyer.BuyerID] {
		return dispatch.Result{Status: models.AlertStatusFailed}, errors.New("smtp timeout")
	}
	if f.dedupFor[buyer.BuyerID] {
		return dispatch.Result{Status: models.AlertStatusSent, Deduplicated: true}, nil
	}
	f.dispatched = append(f.dispatched, buyer.BuyerID)
	return dispatch.Result{Status: models.AlertStatusSent}, nil
}

type fakeRunStore struct {
	mu        sync.Mutex
	summaries []*models.RunSummary
	err       error
}

func (f *fakeRunStore) Insert(_ context.Context, summary *models.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.summaries = append(f.summaries, summary)
	return nil
}

type fakeRunRecorder struct {
	mu     sync.Mutex
	events []models.RunSummary
}

func (f *fakeRunRecorder) RecordRunCompleted(_ context.Context, summary models.RunSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, summary)
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func platformHouse() *models.Property {
	sqft := 1800
	return &models.Property{
		ID:            "prop-1",
		Price:         650000,
		City:          "Mawson Lakes",
		State:         "SA",
		Address:       "12 Garden Terrace",
		PropertyType:  "house",
		Bedrooms:      4,
		Bathrooms:     2,
		SquareFeet:    &sqft,
		ListingSource: models.ListingSourcePlatform,
	}
}

func matchingCandidate(id string) models.AlertCandidate {
	return models.AlertCandidate{
		BuyerID:          id,
		Name:             "Buyer " + id,
		Email:            id + "@example.com",
		SubscriptionTier: models.TierBasic,
		Preferences: models.RawPreferences{
			BudgetRange:    "500000-700000",
			PreferredAreas: []string{"mawson lakes", "bedrooms:3"},
			PropertyTypes:  []string{"house"},
		},
	}
}

func nonMatchingCandidate(id string) models.AlertCandidate {
	return models.AlertCandidate{
		BuyerID:          id,
		Name:             "Buyer " + id,
		Email:            id + "@example.com",
		SubscriptionTier: models.TierBasic,
		Preferences: models.RawPreferences{
			BudgetRange:    "100000-200000",
			PreferredAreas: []string{"perth"},
			PropertyTypes:  []string{"apartment"},
		},
	}
}

func newTestCoordinator(lookup *fakePropertyLookup, source *fakeCandidateSource, gate *fakeGate, dispatcher *fakeDispatcher, runs *fakeRunStore, audit *fakeRunRecorder) *Coordinator {
	if gate == nil {
		gate = &fakeGate{}
	}
	return NewCoordinator(
		lookup,
		source,
		gate,
		matching.NewScorer(matching.DefaultScorerConfig()),
		dispatcher,
		runs,
		audit,
		Config{Workers: 4},
		testLogger(),
	)
}

func TestRun_DispatchesMatches(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	runs := &fakeRunStore{}
	audit := &fakeRunRecorder{}

	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{
			matchingCandidate("buyer-1"),
			nonMatchingCandidate("buyer-2"),
			matchingCandidate("buyer-3"),
		}},
		nil,
		dispatcher,
		runs,
		audit,
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, "prop-1", summary.PropertyID)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.CandidatesEvaluated)
	assert.Equal(t, 0, summary.AccessDenied)
	assert.Equal(t, 2, summary.MatchesFound)
	assert.Equal(t, 2, summary.AlertsSent)
	assert.Equal(t, 0, summary.AlertsFailed)
	assert.False(t, summary.CompletedAt.Before(summary.StartedAt))

	assert.ElementsMatch(t, []string{"buyer-1", "buyer-3"}, dispatcher.dispatched)
	require.Len(t, runs.summaries, 1)
	require.Len(t, audit.events, 1)
	assert.Equal(t, summary.RunID, audit.events[0].RunID)
}

func TestRun_PropertyNotFound(t *testing.T) {
	coordinator := newTestCoordinator(
		&fakePropertyLookup{},
		&fakeCandidateSource{},
		nil,
		&fakeDispatcher{},
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	_, err := coordinator.Run(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestRun_PropertyLookupError(t *testing.T) {
	coordinator := newTestCoordinator(
		&fakePropertyLookup{err: errors.New("connection refused")},
		&fakeCandidateSource{},
		nil,
		&fakeDispatcher{},
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	_, err := coordinator.Run(context.Background(), "prop-1")
	require.Error(t, err)
}

func TestRun_CandidateSourceError(t *testing.T) {
	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{err: errors.New("query timeout")},
		nil,
		&fakeDispatcher{},
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	_, err := coordinator.Run(context.Background(), "prop-1")
	require.Error(t, err)
}

func TestRun_AccessDeniedCounted(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{
			matchingCandidate("buyer-1"),
			matchingCandidate("buyer-2"),
		}},
		&fakeGate{denied: map[string]bool{"buyer-2": true}},
		dispatcher,
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CandidatesEvaluated)
	assert.Equal(t, 1, summary.AccessDenied)
	assert.Equal(t, 1, summary.MatchesFound)
	assert.Equal(t, []string{"buyer-1"}, dispatcher.dispatched)
}

func TestRun_DispatchFailureCountedNotFatal(t *testing.T) {
	dispatcher := &fakeDispatcher{failFor: map[string]bool{"buyer-1": true}}
	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{
			matchingCandidate("buyer-1"),
			matchingCandidate("buyer-2"),
		}},
		nil,
		dispatcher,
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.MatchesFound)
	assert.Equal(t, 1, summary.AlertsSent)
	assert.Equal(t, 1, summary.AlertsFailed)
}

func TestRun_DeduplicatedAlertNotCountedAsSent(t *testing.T) {
	dispatcher := &fakeDispatcher{dedupFor: map[string]bool{"buyer-1": true}}
	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{matchingCandidate("buyer-1")}},
		nil,
		dispatcher,
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MatchesFound)
	assert.Equal(t, 0, summary.AlertsSent)
	assert.Equal(t, 0, summary.AlertsFailed)
}

func TestRun_MalformedPreferencesSkipped(t *testing.T) {
	broken := matchingCandidate("buyer-1")
	broken.Preferences.PreferredAreas = []string{"bedrooms:lots"}

	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{broken, matchingCandidate("buyer-2")}},
		nil,
		&fakeDispatcher{},
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CandidatesEvaluated)
	assert.Equal(t, 1, summary.MatchesFound)
	assert.Equal(t, 1, summary.AlertsSent)
}

func TestRun_CompletionLogReportsSkipped(t *testing.T) {
	broken := matchingCandidate("buyer-1")
	broken.Preferences.PreferredAreas = []string{"bedrooms:lots"}

	var mu sync.Mutex
	var completed []ectologger.EctoLogMessage
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		mu.Lock()
		defer mu.Unlock()
		if msg.Message == "Alert run completed" {
			completed = append(completed, msg)
		}
	})

	coordinator := NewCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{broken, matchingCandidate("buyer-2")}},
		&fakeGate{},
		matching.NewScorer(matching.DefaultScorerConfig()),
		&fakeDispatcher{},
		&fakeRunStore{},
		&fakeRunRecorder{},
		Config{Workers: 4},
		logger,
	)

	_, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	require.Len(t, completed, 1)
	assert.Equal(t, 1, completed[0].Fields["skipped"])
	assert.Equal(t, 2, completed[0].Fields["candidates_evaluated"])
}

func TestRun_NoCandidates(t *testing.T) {
	runs := &fakeRunStore{}
	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{},
		nil,
		&fakeDispatcher{},
		runs,
		&fakeRunRecorder{},
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Zero(t, summary.CandidatesEvaluated)
	require.Len(t, runs.summaries, 1)
}

func TestRun_RunStoreFailureNotFatal(t *testing.T) {
	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{matchingCandidate("buyer-1")}},
		nil,
		&fakeDispatcher{},
		&fakeRunStore{err: errors.New("insert failed")},
		&fakeRunRecorder{},
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlertsSent)
}

func TestRun_SlowBuyerTimedOutRunCompletes(t *testing.T) {
	dispatcher := &fakeDispatcher{blockFor: map[string]bool{"buyer-1": true}}
	runs := &fakeRunStore{}

	coordinator := NewCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: []models.AlertCandidate{
			matchingCandidate("buyer-1"),
			matchingCandidate("buyer-2"),
		}},
		&fakeGate{},
		matching.NewScorer(matching.DefaultScorerConfig()),
		dispatcher,
		runs,
		&fakeRunRecorder{},
		Config{Workers: 2, BuyerTimeout: 20 * time.Millisecond},
		testLogger(),
	)

	summary, err := coordinator.Run(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CandidatesEvaluated)
	assert.Equal(t, 2, summary.MatchesFound)
	assert.Equal(t, 1, summary.AlertsSent)
	assert.Equal(t, 1, summary.AlertsFailed)
	assert.Equal(t, []string{"buyer-2"}, dispatcher.dispatched)
	require.Len(t, runs.summaries, 1)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates := make([]models.AlertCandidate, 50)
	for i := range candidates {
		candidates[i] = matchingCandidate(fmt.Sprintf("buyer-%d", i))
	}

	coordinator := newTestCoordinator(
		&fakePropertyLookup{property: platformHouse()},
		&fakeCandidateSource{candidates: candidates},
		nil,
		&fakeDispatcher{},
		&fakeRunStore{},
		&fakeRunRecorder{},
	)

	_, err := coordinator.Run(ctx, "prop-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
