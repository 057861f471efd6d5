package models

import "time"

// MatchResult is the outcome of evaluating one property against one buyer's
// criteria. Score is the normalized score in [0,1]; MatchedCriteria holds
// one tag per satisfied criterion (plus one "feature_<slug>" tag per matched
// feature) in evaluation order.
type MatchResult struct {
	BuyerID         string   `json:"buyer_id"`
	PropertyID      string   `json:"property_id"`
	Score           float64  `json:"score"`
	MatchedCriteria []string `json:"matched_criteria"`
	TotalCriteria   int      `json:"total_criteria"`
	IsMatch         bool     `json:"is_match"`
}

// RunSummary aggregates one alert run over all candidate buyers. It is the
// value the coordinator returns and the payload of the single run summary
// audit event emitted when the run completes.
type RunSummary struct {
	RunID               string    `json:"run_id" db:"run_id"`
	PropertyID          string    `json:"property_id" db:"property_id"`
	CandidatesEvaluated int       `json:"candidates_evaluated" db:"candidates_evaluated"`
	AccessDenied        int       `json:"access_denied" db:"access_denied"`
	MatchesFound        int       `json:"matches_found" db:"matches_found"`
	AlertsSent          int       `json:"alerts_sent" db:"alerts_sent"`
	AlertsFailed        int       `json:"alerts_failed" db:"alerts_failed"`
	StartedAt           time.Time `json:"started_at" db:"started_at"`
	CompletedAt         time.Time `json:"completed_at" db:"completed_at"`
}
