package models

import (
	"time"

	"fixserve/src/types"
)

type Booking struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	ClientID        uint                `json:"client_id,omitempty"`
	ProviderID      uint                `json:"provider_id,omitempty"`
	ServiceID       uint                `json:"service_id,omitempty"`
	Status          types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	ScheduledDate   time.Time           `json:"scheduled_date,omitempty"`
	TotalAmount     float64             `gorm:"type:decimal(12,2)" json:"total_amount,omitempty"`
	CancellationFee float64             `gorm:"type:decimal(12,2)" json:"cancellation_fee,omitempty"`
	Address         string              `json:"address,omitempty"`
	PaymentMethod   types.PaymentMethod `gorm:"default:'online'" json:"payment_method,omitempty"`

	Client   *User            `gorm:"foreignKey:client_id" json:"client,omitempty"`
	Provider *User            `gorm:"foreignKey:provider_id" json:"provider,omitempty"`
	Service  *Service         `gorm:"foreignKey:service_id" json:"service,omitempty"`
	Payment  *Payment         `gorm:"foreignKey:booking_id" json:"payment,omitempty"`
	Proof    *CompletionProof `gorm:"foreignKey:booking_id" json:"proof,omitempty"`

	types.Timestamps
}
