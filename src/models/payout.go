package models

import "fixserve/src/types"

type Payout struct {
	ID           uint               `gorm:"primarykey" json:"id"`
	PaymentID    uint               `gorm:"index" json:"payment_id,omitempty"`
	ProviderID   uint               `json:"provider_id,omitempty"`
	Amount       float64            `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
	Status       types.PayoutStatus `gorm:"default:'pending'" json:"status,omitempty"`
	TransferCode string             `json:"transfer_code,omitempty"`
	Error        *string            `json:"error,omitempty"`

	Payment  *Payment `gorm:"foreignKey:payment_id" json:"-"`
	Provider *User    `gorm:"foreignKey:provider_id" json:"-"`

	types.Timestamps
}
