package models

import "fixserve/src/types"

type Dispute struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	BookingID   uint                `gorm:"uniqueIndex" json:"booking_id,omitempty"`
	ReportedBy  uint                `json:"reported_by,omitempty"`
	Reason      types.DisputeReason `json:"reason,omitempty"`
	Description string              `json:"description,omitempty"`
	Status      types.DisputeStatus `gorm:"default:'pending'" json:"status,omitempty"`

	Booking  *Booking `gorm:"foreignKey:booking_id" json:"-"`
	Reporter *User    `gorm:"foreignKey:reported_by" json:"-"`

	types.Timestamps
}
