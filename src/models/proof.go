package models

import (
	"time"

	"fixserve/src/types"
)

// CompletionProof is the evidence a provider submits when finishing a job.
// The client has until ExpiresAt to confirm; after that the booking
// auto-confirms and escrow release proceeds.
type CompletionProof struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	BookingID uint        `gorm:"uniqueIndex" json:"booking_id,omitempty"`
	Photos    types.JSONB `gorm:"type:jsonb" json:"photos,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	ExpiresAt time.Time   `json:"expires_at,omitempty"`

	types.Timestamps
}
