package models

import "time"

// InAppNotification is a notification row surfaced in the buyer's dashboard
type InAppNotification struct {
	ID        string         `db:"id" json:"id"`
	BuyerID   string         `db:"buyer_id" json:"buyer_id"`
	Kind      string         `db:"kind" json:"kind"`
	Title     string         `db:"title" json:"title"`
	Body      string         `db:"body" json:"body"`
	Link      string         `db:"link" json:"link"`
	Metadata  map[string]any `db:"-" json:"metadata,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	ReadAt    *time.Time     `db:"read_at" json:"read_at,omitempty"`
}
