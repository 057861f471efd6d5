package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/beacon/pkg/models"
)

type fakeNotifier struct {
	emailErr  error
	inAppErr  error
	sentTo    []string
	templates []string
	inApp     []InAppNotification
}

func (f *fakeNotifier) SendAlertEmail(_ context.Context, email, _, template string, _ PropertyView) error {
	if f.emailErr != nil {
		return f.emailErr
	}
	f.sentTo = append(f.sentTo, email)
	f.templates = append(f.templates, template)
	return nil
}

func (f *fakeNotifier) CreateInAppNotification(_ context.Context, n InAppNotification) error {
	if f.inAppErr != nil {
		return f.inAppErr
	}
	f.inApp = append(f.inApp, n)
	return nil
}

type fakeRecordStore struct {
	hasActive bool
	hasErr    error
	insertErr error
	conflict  bool
	inserted  []*models.AlertRecord
}

func (f *fakeRecordStore) HasActiveAlert(_ context.Context, _, _ string) (bool, error) {
	return f.hasActive, f.hasErr
}

func (f *fakeRecordStore) Insert(_ context.Context, record *models.AlertRecord) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.conflict {
		return false, nil
	}
	f.inserted = append(f.inserted, record)
	return true, nil
}

type fakeAlertRecorder struct {
	events int
}

func (f *fakeAlertRecorder) RecordAlertSent(_ context.Context, _, _ string, _ models.AlertClass, _ []string) {
	f.events++
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(_ context.Context, _, _ string) (bool, error) {
	return f.allowed, f.err
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testCandidate() models.AlertCandidate {
	return models.AlertCandidate{
		BuyerID: "buyer-1",
		Name:    "Sam Carter",
		Email:   "sam@example.com",
	}
}

func testProperty() *models.Property {
	return &models.Property{
		ID:           "prop-1",
		Price:        650000,
		City:         "Mawson Lakes",
		State:        "SA",
		Address:      "12 Garden Terrace",
		PropertyType: "house",
		Bedrooms:     4,
		Bathrooms:    2,
	}
}

func TestDispatch_Success(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{}
	audit := &fakeAlertRecorder{}
	limiter := &fakeLimiter{allowed: true}

	d := NewDispatcher(notifier, records, audit, limiter, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, []string{"price_max", "bedrooms"})

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusSent, result.Status)
	assert.False(t, result.Deduplicated)
	assert.Equal(t, []string{"sam@example.com"}, notifier.sentTo)
	assert.Equal(t, []string{TemplateOnMarket}, notifier.templates)

	require.Len(t, records.inserted, 1)
	record := records.inserted[0]
	assert.Equal(t, "buyer-1", record.BuyerID)
	assert.Equal(t, "prop-1", record.PropertyID)
	assert.Equal(t, models.AlertStatusSent, record.Status)
	assert.Equal(t, TemplateOnMarket, record.EmailTemplate)
	assert.Equal(t, []string{"price_max", "bedrooms"}, record.MatchedCriteria)
	assert.False(t, record.SentAt.IsZero())

	assert.Equal(t, 1, audit.events)
	require.Len(t, notifier.inApp, 1)
	assert.Equal(t, "buyer-1", notifier.inApp[0].BuyerID)
	assert.Equal(t, "/properties/prop-1", notifier.inApp[0].Link)
}

func TestDispatch_OffMarketTemplate(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{}

	d := NewDispatcher(notifier, records, &fakeAlertRecorder{}, &fakeLimiter{allowed: true}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOffMarket, nil)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusSent, result.Status)
	require.Len(t, records.inserted, 1)
	assert.Equal(t, TemplateOffMarket, records.inserted[0].EmailTemplate)
	assert.Equal(t, models.AlertClassOffMarket, records.inserted[0].AlertType)
	require.Len(t, notifier.inApp, 1)
	assert.Equal(t, "off_market_alert", notifier.inApp[0].Kind)
}

func TestDispatch_DuplicateSkipsSend(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{hasActive: true}
	audit := &fakeAlertRecorder{}

	d := NewDispatcher(notifier, records, audit, &fakeLimiter{allowed: true}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.NoError(t, err)
	assert.True(t, result.Deduplicated)
	assert.Empty(t, notifier.sentTo)
	assert.Empty(t, records.inserted)
	assert.Zero(t, audit.events)
}

func TestDispatch_DuplicateCheckErrorContinues(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{hasErr: errors.New("connection reset")}

	d := NewDispatcher(notifier, records, &fakeAlertRecorder{}, &fakeLimiter{allowed: true}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusSent, result.Status)
	assert.Len(t, notifier.sentTo, 1)
}

func TestDispatch_EmailFailurePersistsFailedRecord(t *testing.T) {
	notifier := &fakeNotifier{emailErr: errors.New("smtp timeout")}
	records := &fakeRecordStore{}
	audit := &fakeAlertRecorder{}

	d := NewDispatcher(notifier, records, audit, &fakeLimiter{allowed: true}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.Error(t, err)
	assert.Equal(t, models.AlertStatusFailed, result.Status)
	require.Len(t, records.inserted, 1)
	assert.Equal(t, models.AlertStatusFailed, records.inserted[0].Status)
	assert.Zero(t, audit.events)
	assert.Empty(t, notifier.inApp)
}

func TestDispatch_RateLimited(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{}

	d := NewDispatcher(notifier, records, &fakeAlertRecorder{}, &fakeLimiter{allowed: false}, testLogger())
	_, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.Error(t, err)
	assert.Empty(t, notifier.sentTo)
	assert.Empty(t, records.inserted)
}

func TestDispatch_LimiterErrorAllowsSend(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{}

	d := NewDispatcher(notifier, records, &fakeAlertRecorder{}, &fakeLimiter{err: errors.New("redis down")}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusSent, result.Status)
	assert.Len(t, notifier.sentTo, 1)
}

func TestDispatch_InsertConflictStillSucceeds(t *testing.T) {
	notifier := &fakeNotifier{}
	records := &fakeRecordStore{conflict: true}
	audit := &fakeAlertRecorder{}

	d := NewDispatcher(notifier, records, audit, &fakeLimiter{allowed: true}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusSent, result.Status)
	assert.Equal(t, 1, audit.events)
}

func TestDispatch_InAppFailureDoesNotFailDispatch(t *testing.T) {
	notifier := &fakeNotifier{inAppErr: errors.New("insert failed")}
	records := &fakeRecordStore{}

	d := NewDispatcher(notifier, records, &fakeAlertRecorder{}, &fakeLimiter{allowed: true}, testLogger())
	result, err := d.Dispatch(context.Background(), testCandidate(), testProperty(), models.AlertClassOnMarket, nil)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusSent, result.Status)
}
