package models

import "fixserve/src/types"

// WebhookEvent is the durable record of an inbound gateway notification.
// The raw payload is persisted before any processing so events can be
// replayed idempotently.
type WebhookEvent struct {
	ID         uint        `gorm:"primarykey" json:"id"`
	EventType  string      `json:"event_type,omitempty"`
	Reference  string      `gorm:"index" json:"reference,omitempty"`
	Payload    types.JSONB `gorm:"type:jsonb" json:"payload,omitempty"`
	Processed  bool        `gorm:"default:false" json:"processed,omitempty"`
	RetryCount uint        `gorm:"default:0" json:"retry_count,omitempty"`
	Error      *string     `json:"error,omitempty"`

	types.Timestamps
}
