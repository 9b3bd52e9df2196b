package models

import "fixserve/src/types"

type Service struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	ProviderID  uint    `json:"provider_id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	BasePrice   float64 `json:"base_price,omitempty"`
	Active      bool    `gorm:"default:true" json:"active,omitempty"`

	Provider *User `gorm:"foreignKey:provider_id" json:"provider,omitempty"`

	types.Timestamps
}
