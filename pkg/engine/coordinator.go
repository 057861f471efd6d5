package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/openlistings/beacon/pkg/matching"
	"github.com/openlistings/beacon/pkg/metrics"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/preferences"
	"github.com/openlistings/beacon/pkg/tracing"
)

// Config controls run concurrency
type Config struct {
	Workers      int
	BuyerTimeout time.Duration
}

// DefaultConfig returns the default run configuration
func DefaultConfig() Config {
	return Config{
		Workers:      8,
		BuyerTimeout: 5 * time.Second,
	}
}

// Coordinator runs the full match-and-alert pipeline for one property
type Coordinator struct {
	properties PropertyLookup
	candidates CandidateSource
	gate       AccessGate
	scorer     *matching.Scorer
	dispatcher Dispatcher
	runs       RunStore
	audit      RunRecorder
	config     Config
	logger     ectologger.Logger
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(
	properties PropertyLookup,
	candidates CandidateSource,
	gate AccessGate,
	scorer *matching.Scorer,
	dispatcher Dispatcher,
	runs RunStore,
	audit RunRecorder,
	config Config,
	logger ectologger.Logger,
) *Coordinator {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.BuyerTimeout <= 0 {
		config.BuyerTimeout = DefaultConfig().BuyerTimeout
	}

	return &Coordinator{
		properties: properties,
		candidates: candidates,
		gate:       gate,
		scorer:     scorer,
		dispatcher: dispatcher,
		runs:       runs,
		audit:      audit,
		config:     config,
		logger:     logger,
	}
}

type candidateOutcome struct {
	accessDenied bool
	skipped      bool
	matched      bool
	alertSent    bool
	alertFailed  bool
}

// Run evaluates every alert candidate against the given property and
// dispatches alerts for accepted matches. One buyer failing never aborts the
// run; only a missing property or an unlistable candidate set does.
func (c *Coordinator) Run(ctx context.Context, propertyID string) (*models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "engine.Coordinator.Run")
	defer span.End()

	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":      runID,
		"property_id": propertyID,
	})

	property, err := c.properties.GetApprovedProperty(ctx, propertyID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	if property == nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("property %s: %w", propertyID, ErrPropertyNotFound)
	}

	class := property.AlertClass()

	candidates, err := c.candidates.ListAlertCandidates(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("list alert candidates: %w", err)
	}

	log.WithFields(map[string]any{
		"alert_class": class,
		"candidates":  len(candidates),
	}).Info("Starting alert run")

	summary := &models.RunSummary{
		RunID:      runID,
		PropertyID: propertyID,
		StartedAt:  startedAt,
	}

	jobs := make(chan models.AlertCandidate)
	outcomes := make(chan candidateOutcome)

	var workers sync.WaitGroup
	for i := 0; i < c.config.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for candidate := range jobs {
				outcomes <- c.processCandidate(ctx, candidate, property, class, log)
			}
		}()
	}

	var skipped int
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for outcome := range outcomes {
			summary.CandidatesEvaluated++
			if outcome.accessDenied {
				summary.AccessDenied++
			}
			if outcome.skipped {
				skipped++
			}
			if outcome.matched {
				summary.MatchesFound++
			}
			if outcome.alertSent {
				summary.AlertsSent++
			}
			if outcome.alertFailed {
				summary.AlertsFailed++
			}
		}
	}()

feed:
	for _, candidate := range candidates {
		select {
		case jobs <- candidate:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	workers.Wait()
	close(outcomes)
	<-collectorDone

	if err := ctx.Err(); err != nil {
		metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		return nil, fmt.Errorf("alert run %s interrupted: %w", runID, err)
	}

	summary.CompletedAt = time.Now().UTC()

	if err := c.runs.Insert(ctx, summary); err != nil {
		log.WithError(err).Error("Failed to persist run summary")
	}
	c.audit.RecordRunCompleted(ctx, *summary)

	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.RunDuration.Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())
	metrics.CandidatesEvaluated.Add(float64(summary.CandidatesEvaluated))

	log.WithFields(map[string]any{
		"candidates_evaluated": summary.CandidatesEvaluated,
		"access_denied":        summary.AccessDenied,
		"skipped":              skipped,
		"matches_found":        summary.MatchesFound,
		"alerts_sent":          summary.AlertsSent,
		"alerts_failed":        summary.AlertsFailed,
	}).Info("Alert run completed")

	return summary, nil
}

func (c *Coordinator) processCandidate(ctx context.Context, candidate models.AlertCandidate, property *models.Property, class models.AlertClass, log ectologger.Logger) (outcome candidateOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]any{
				"buyer_id": candidate.BuyerID,
				"panic":    r,
			}).Error("Recovered panic while processing candidate")
			outcome = candidateOutcome{skipped: true}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.BuyerTimeout)
	defer cancel()

	if !c.gate.CheckAccess(ctx, candidate.BuyerID, class) {
		metrics.AccessDeniedTotal.WithLabelValues(string(class)).Inc()
		return candidateOutcome{accessDenied: true}
	}

	criteria, err := preferences.Normalize(candidate.Preferences)
	if err != nil {
		log.WithError(err).WithFields(map[string]any{"buyer_id": candidate.BuyerID}).Warn("Skipping candidate with malformed preferences")
		return candidateOutcome{skipped: true}
	}

	result := c.scorer.Evaluate(property, &criteria)
	result.BuyerID = candidate.BuyerID
	metrics.MatchScores.Observe(result.Score)

	if !result.IsMatch {
		return candidateOutcome{}
	}

	dispatched, err := c.dispatcher.Dispatch(ctx, candidate, property, class, result.MatchedCriteria)
	if err != nil {
		log.WithError(err).WithFields(map[string]any{"buyer_id": candidate.BuyerID}).Error("Failed to dispatch alert")
		return candidateOutcome{matched: true, alertFailed: true}
	}
	if dispatched.Deduplicated {
		return candidateOutcome{matched: true}
	}

	return candidateOutcome{matched: true, alertSent: true}
}
