// Package engine coordinates match-and-alert runs for newly approved
// properties.
package engine

import (
	"context"
	"errors"

	"github.com/openlistings/beacon/pkg/dispatch"
	"github.com/openlistings/beacon/pkg/models"
)

// ErrPropertyNotFound is returned when a run is triggered for a property
// that does not exist or is not approved.
var ErrPropertyNotFound = errors.New("property not found or not approved")

// PropertyLookup loads the approved property a run was triggered for
type PropertyLookup interface {
	GetApprovedProperty(ctx context.Context, propertyID string) (*models.Property, error)
}

// CandidateSource lists the buyers eligible for alert evaluation
type CandidateSource interface {
	ListAlertCandidates(ctx context.Context) ([]models.AlertCandidate, error)
}

// AccessGate decides whether a buyer may receive an alert of the given class
type AccessGate interface {
	CheckAccess(ctx context.Context, buyerID string, class models.AlertClass) bool
}

// Dispatcher sends an alert for an accepted match
type Dispatcher interface {
	Dispatch(ctx context.Context, buyer models.AlertCandidate, property *models.Property, class models.AlertClass, matchedCriteria []string) (dispatch.Result, error)
}

// RunStore persists run summaries
type RunStore interface {
	Insert(ctx context.Context, summary *models.RunSummary) error
}

// RunRecorder receives run-level audit events. Fire and forget.
type RunRecorder interface {
	RecordRunCompleted(ctx context.Context, summary models.RunSummary)
}
