package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// PropertyApprovedEvent is published by the listings service when a property
// clears review and becomes visible to buyers
type PropertyApprovedEvent struct {
	EventType     string    `json:"event_type"` // "property.approved"
	PropertyID    string    `json:"property_id"`
	ListingSource string    `json:"listing_source,omitempty"`
	ApprovedBy    string    `json:"approved_by,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

const eventTypePropertyApproved = "property.approved"

// IsPropertyApproved checks whether the message is a property.approved event
func (m *IncomingMessage) IsPropertyApproved() bool {
	if m.Headers["event_type"] == eventTypePropertyApproved {
		return true
	}

	var evt PropertyApprovedEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return false
	}
	return evt.EventType == eventTypePropertyApproved
}

// ParsePropertyApproved parses the message as a property.approved event
func (m *IncomingMessage) ParsePropertyApproved() (*PropertyApprovedEvent, error) {
	var evt PropertyApprovedEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, err
	}
	if evt.PropertyID == "" {
		return nil, fmt.Errorf("property.approved event missing property_id")
	}
	return &evt, nil
}
