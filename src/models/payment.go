package models

import (
	"time"

	"fixserve/src/types"
)

type Payment struct {
	ID               uint                `gorm:"primarykey" json:"id"`
	BookingID        uint                `gorm:"uniqueIndex" json:"booking_id,omitempty"`
	Amount           float64             `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
	EscrowAmount     float64             `gorm:"type:decimal(12,2)" json:"escrow_amount,omitempty"`
	PlatformFee      float64             `gorm:"type:decimal(12,2)" json:"platform_fee,omitempty"`
	Status           types.PaymentStatus `gorm:"default:'pending'" json:"status,omitempty"`
	GatewayReference string              `gorm:"index" json:"gateway_reference,omitempty"`
	TransactionID    *string             `json:"transaction_id,omitempty"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`

	Booking *Booking `gorm:"foreignKey:booking_id" json:"-"`

	types.Timestamps
}
