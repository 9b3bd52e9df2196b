package utils

import (
	"math"
	"time"

	"fixserve/src/config"
	"fixserve/src/models"
	"fixserve/src/types"
)

// RoundCents truncates a money amount to two decimal places, rounding
// half away from zero.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// SplitAmount computes the platform fee for a booking total and the escrow
// remainder. The identity total == escrow + fee holds after rounding.
func SplitAmount(total float64) (escrow float64, fee float64) {
	fee = RoundCents(total * config.PlatformFeeRate())
	escrow = RoundCents(total - fee)
	return escrow, fee
}

// CancellationFee returns the fee owed for cancelling a booking scheduled
// at the given date. Under 24 hours to the job costs half the total, under
// 48 a quarter, otherwise nothing. The boundaries themselves resolve to
// the lower tier.
func CancellationFee(total float64, scheduledDate, now time.Time) float64 {
	until := scheduledDate.Sub(now)
	if until < config.CancelFeeTier1Window {
		return RoundCents(total * config.CancelFeeTier1Rate)
	}
	if until < config.CancelFeeTier2Window {
		return RoundCents(total * config.CancelFeeTier2Rate)
	}
	return 0
}

func BookingProjection(b *models.Booking) *types.APIResponseBooking {
	if b == nil {
		return nil
	}
	out := &types.APIResponseBooking{
		ID:              b.ID,
		ClientID:        b.ClientID,
		ProviderID:      b.ProviderID,
		ServiceID:       b.ServiceID,
		Status:          string(b.Status),
		TotalAmount:     b.TotalAmount,
		CancellationFee: b.CancellationFee,
		Address:         b.Address,
		PaymentMethod:   string(b.PaymentMethod),
		Timestamps:      b.Timestamps,
	}
	if !b.ScheduledDate.IsZero() {
		d := b.ScheduledDate
		out.ScheduledDate = &d
	}
	if b.Payment != nil {
		out.Payment = PaymentProjection(b.Payment)
	}
	return out
}

func PaymentProjection(p *models.Payment) *types.APIResponsePayment {
	if p == nil {
		return nil
	}
	return &types.APIResponsePayment{
		ID:               p.ID,
		BookingID:        p.BookingID,
		Amount:           p.Amount,
		EscrowAmount:     p.EscrowAmount,
		PlatformFee:      p.PlatformFee,
		Status:           string(p.Status),
		GatewayReference: p.GatewayReference,
		PaidAt:           p.PaidAt,
		Timestamps:       p.Timestamps,
	}
}

func PayoutProjection(p *models.Payout) *types.APIResponsePayout {
	if p == nil {
		return nil
	}
	return &types.APIResponsePayout{
		ID:           p.ID,
		PaymentID:    p.PaymentID,
		ProviderID:   p.ProviderID,
		Amount:       p.Amount,
		Status:       string(p.Status),
		TransferCode: p.TransferCode,
		Timestamps:   p.Timestamps,
	}
}
