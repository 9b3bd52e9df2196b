package models

import "fixserve/src/types"

type User struct {
	ID    uint       `gorm:"primarykey" json:"id"`
	Name  string     `json:"name,omitempty"`
	Email string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone string     `json:"phone,omitempty"`
	Role  types.Role `gorm:"default:'client'" json:"role,omitempty"`

	PasswordHash string `json:"-"`

	// Bank details are set for providers only and are required before a
	// payout recipient can be created on the gateway.
	BankCode          *string `json:"bank_code,omitempty"`
	BankAccountNumber *string `json:"bank_account_number,omitempty"`
	BankAccountName   *string `json:"bank_account_name,omitempty"`
	RecipientCode     *string `json:"recipient_code,omitempty"`

	types.Timestamps
}
