package models

import (
	"time"

	"fixserve/src/types"
)

type SettlementBatch struct {
	ID               uint                   `gorm:"primarykey" json:"id"`
	BatchDate        time.Time              `json:"batch_date,omitempty"`
	ExpectedAmount   float64                `gorm:"type:decimal(14,2)" json:"expected_amount,omitempty"`
	ActualAmount     float64                `gorm:"type:decimal(14,2)" json:"actual_amount,omitempty"`
	Status           types.SettlementStatus `gorm:"default:'pending'" json:"status,omitempty"`
	ReconciledBy     *uint                  `json:"reconciled_by,omitempty"`
	ReconciledAt     *time.Time             `json:"reconciled_at,omitempty"`
	BankStatementRef string                 `json:"bank_statement_ref,omitempty"`

	Adjustments []*LedgerAdjustment `gorm:"foreignKey:batch_id" json:"adjustments,omitempty"`

	types.Timestamps
}

// LedgerAdjustment is the compensating entry written when a settlement
// batch reconciles outside tolerance. Credit means the bank reported more
// than expected, debit less.
type LedgerAdjustment struct {
	ID        uint                  `gorm:"primarykey" json:"id"`
	BatchID   uint                  `gorm:"index" json:"batch_id,omitempty"`
	Amount    float64               `gorm:"type:decimal(14,2)" json:"amount,omitempty"`
	Direction types.LedgerDirection `json:"direction,omitempty"`
	Note      string                `json:"note,omitempty"`

	types.Timestamps
}
