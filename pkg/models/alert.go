package models

import "time"

// AlertClass is the kind of alert a property produces
type AlertClass string

const (
	AlertClassOnMarket  AlertClass = "on_market"  // available to every subscription tier
	AlertClassOffMarket AlertClass = "off_market" // premium only
)

// AlertStatus is the delivery status of an alert record
type AlertStatus string

const (
	AlertStatusSent      AlertStatus = "sent"
	AlertStatusDelivered AlertStatus = "delivered"
	AlertStatusFailed    AlertStatus = "failed"
)

// AlertRecord is the durable, append-only record of one alert attempt for a
// (buyer, property) pair. At most one non-failed record should exist per
// pair; the store enforces this with a partial unique index and the
// dispatcher additionally checks before sending.
type AlertRecord struct {
	ID              string      `json:"id" db:"id"`
	BuyerID         string      `json:"buyer_id" db:"buyer_id"`
	PropertyID      string      `json:"property_id" db:"property_id"`
	AlertType       AlertClass  `json:"alert_type" db:"alert_type"`
	Status          AlertStatus `json:"status" db:"status"`
	EmailTemplate   string      `json:"email_template" db:"email_template"`
	MatchedCriteria []string    `json:"matched_criteria,omitempty" db:"-"`
	SentAt          time.Time   `json:"sent_at" db:"sent_at"`
}
