package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSONB", value)
	}
	return json.Unmarshal(b, a)
}

type Env string

const (
	Development Env = "development"
	Test        Env = "test"
	Production  Env = "production"
)

type Role string

const (
	ROLE_CLIENT   Role = "client"
	ROLE_PROVIDER Role = "provider"
	ROLE_ADMIN    Role = "admin"
)

type BookingStatus string

const (
	BOOKING_PENDING               BookingStatus = "pending"
	BOOKING_CONFIRMED             BookingStatus = "confirmed"
	BOOKING_PENDING_EXECUTION     BookingStatus = "pending_execution"
	BOOKING_IN_PROGRESS           BookingStatus = "in_progress"
	BOOKING_AWAITING_CONFIRMATION BookingStatus = "awaiting_confirmation"
	BOOKING_COMPLETED             BookingStatus = "completed"
	BOOKING_CANCELED              BookingStatus = "cancelled"
	BOOKING_DISPUTED              BookingStatus = "disputed"
)

type PaymentMethod string

const (
	PAYMENT_METHOD_ONLINE PaymentMethod = "online"
	PAYMENT_METHOD_CASH   PaymentMethod = "cash"
)

type PaymentStatus string

const (
	PAYMENT_PENDING            PaymentStatus = "pending"
	PAYMENT_HELD_IN_ESCROW     PaymentStatus = "held_in_escrow"
	PAYMENT_PROCESSING_RELEASE PaymentStatus = "processing_release"
	PAYMENT_RELEASED           PaymentStatus = "released"
	PAYMENT_FAILED             PaymentStatus = "failed"
	PAYMENT_CASH_PENDING       PaymentStatus = "cash_pending"
	PAYMENT_CASH_PAID          PaymentStatus = "cash_paid"
	PAYMENT_CASH_RECEIVED      PaymentStatus = "cash_received"
)

type PayoutStatus string

const (
	PAYOUT_PENDING    PayoutStatus = "pending"
	PAYOUT_PROCESSING PayoutStatus = "processing"
	PAYOUT_COMPLETED  PayoutStatus = "completed"
	PAYOUT_FAILED     PayoutStatus = "failed"
)

type DisputeStatus string

const (
	DISPUTE_PENDING      DisputeStatus = "pending"
	DISPUTE_UNDER_REVIEW DisputeStatus = "under_review"
	DISPUTE_RESOLVED     DisputeStatus = "resolved"
)

type DisputeReason string

const (
	DISPUTE_POOR_SERVICE DisputeReason = "poor_service"
	DISPUTE_NO_SHOW      DisputeReason = "no_show"
	DISPUTE_DAMAGE       DisputeReason = "damage"
	DISPUTE_OVERCHARGE   DisputeReason = "overcharge"
	DISPUTE_UNRESPONSIVE DisputeReason = "unresponsive"
	DISPUTE_OTHER        DisputeReason = "other"
)

type SettlementStatus string

const (
	SETTLEMENT_PENDING     SettlementStatus = "pending"
	SETTLEMENT_SETTLED     SettlementStatus = "settled"
	SETTLEMENT_DISCREPANCY SettlementStatus = "discrepancy"
)

type LedgerDirection string

const (
	LEDGER_CREDIT LedgerDirection = "credit"
	LEDGER_DEBIT  LedgerDirection = "debit"
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateServiceRequestBody struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description,omitempty"`
	BasePrice   float64 `json:"base_price" binding:"required,gt=0"`
}

type CreateBookingRequestBody struct {
	ProviderID    uint    `json:"provider_id" binding:"required"`
	ServiceID     uint    `json:"service_id" binding:"required"`
	ScheduledDate string  `json:"scheduled_date" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	TotalAmount   float64 `json:"total_amount" binding:"required,gt=0"`
	Address       string  `json:"address" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"omitempty,oneof=online cash"`
}

type CompleteBookingRequestBody struct {
	ProofPhotos []string `json:"proof_photos,omitempty"`
	ProofNotes  string   `json:"proof_notes,omitempty"`
}

type OpenDisputeRequestBody struct {
	Reason      string `json:"reason" binding:"required,oneof=poor_service no_show damage overcharge unresponsive other"`
	Description string `json:"description" binding:"required,min=20"`
}

type InitiatePaymentRequestBody struct {
	CallbackURL string `json:"callback_url,omitempty"`
}

type VerifyPaymentRequestParams struct {
	Reference string `uri:"reference" binding:"required"`
}

type RegisterRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=client provider"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateBankDetailsRequestBody struct {
	BankCode          string `json:"bank_code" binding:"required"`
	BankAccountNumber string `json:"bank_account_number" binding:"required"`
	BankAccountName   string `json:"bank_account_name" binding:"required"`
}

type ReconcileBatchRequestBody struct {
	ActualAmount     float64 `json:"actual_amount" binding:"required,gt=0"`
	BankStatementRef string  `json:"bank_statement_ref" binding:"required"`
}

type APIResponseBooking struct {
	ID              uint       `json:"id,omitempty"`
	ClientID        uint       `json:"client_id,omitempty"`
	ProviderID      uint       `json:"provider_id,omitempty"`
	ServiceID       uint       `json:"service_id,omitempty"`
	Status          string     `json:"status,omitempty"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty"`
	TotalAmount     float64    `json:"total_amount,omitempty"`
	CancellationFee float64    `json:"cancellation_fee,omitempty"`
	Address         string     `json:"address,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`

	Payment *APIResponsePayment `json:"payment,omitempty"`

	Timestamps
}

type APIResponsePayment struct {
	ID               uint       `json:"id,omitempty"`
	BookingID        uint       `json:"booking_id,omitempty"`
	Amount           float64    `json:"amount,omitempty"`
	EscrowAmount     float64    `json:"escrow_amount,omitempty"`
	PlatformFee      float64    `json:"platform_fee,omitempty"`
	Status           string     `json:"status,omitempty"`
	GatewayReference string     `json:"gateway_reference,omitempty"`
	AuthorizationURL string     `json:"authorization_url,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`

	Timestamps
}

type APIResponsePayout struct {
	ID           uint    `json:"id,omitempty"`
	PaymentID    uint    `json:"payment_id,omitempty"`
	ProviderID   uint    `json:"provider_id,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Status       string  `json:"status,omitempty"`
	TransferCode string  `json:"transfer_code,omitempty"`

	Timestamps
}
