package common

import (
	"errors"
	"log"

	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"

	"gorm.io/gorm"
)

// VerifyTransfer polls the gateway for the outcome of a payout's transfer
// and settles local state accordingly. A pending verdict changes nothing;
// callers retry later.
func VerifyTransfer(payoutId uint) (*models.Payout, error) {
	gdb := db.GetDb()
	var payout models.Payout
	err := gdb.
		Model(&models.Payout{}).
		Where("id = ?", payoutId).
		Preload("Payment").
		First(&payout).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if payout.TransferCode == "" {
		return nil, types.InvalidStateError("payout %d has no transfer code", payoutId)
	}
	// A failed payout is terminal, but a completed one is still checked:
	// the gateway can reverse a transfer after reporting success.
	if payout.Status == types.PAYOUT_FAILED {
		return &payout, nil
	}

	res, err := Gateway().VerifyTransfer(payout.TransferCode)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case "success":
		err = applyTransferSuccess(&payout)
	case "failed", "reversed":
		err = applyTransferFailure(&payout, res.Status)
	case "pending", "otp":
		// Still in flight on the gateway side.
		return &payout, nil
	default:
		return nil, types.ValidationError("unknown transfer status %q", res.Status)
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func applyTransferSuccess(payout *models.Payout) error {
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Payout{}).
			Where("id = ?", payout.ID).
			Where("status IN (?)", []types.PayoutStatus{types.PAYOUT_PENDING, types.PAYOUT_PROCESSING}).
			Update("status", types.PAYOUT_COMPLETED).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ?", payout.PaymentID).
			Where("status IN (?)", []types.PaymentStatus{types.PAYMENT_PROCESSING_RELEASE, types.PAYMENT_RELEASED}).
			Update("status", types.PAYMENT_RELEASED).
			Error; err != nil {
			return err
		}
		if payout.Payment != nil {
			if err := tx.
				Model(&models.Booking{}).
				Where("id = ?", payout.Payment.BookingID).
				Where("status != ?", types.BOOKING_DISPUTED).
				Update("status", types.BOOKING_COMPLETED).
				Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	payout.Status = types.PAYOUT_COMPLETED
	log.Printf("Transfer %s confirmed for payout %d\n", payout.TransferCode, payout.ID)
	return nil
}

// applyTransferFailure rolls the money flow back so the client can retry
// the release: payment returns to escrow, booking to awaiting_confirmation.
func applyTransferFailure(payout *models.Payout, verdict string) error {
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		cause := "transfer " + verdict
		if err := tx.
			Model(&models.Payout{}).
			Where("id = ?", payout.ID).
			Updates(&models.Payout{Status: types.PAYOUT_FAILED, Error: &cause}).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ?", payout.PaymentID).
			Where("status IN (?)", []types.PaymentStatus{types.PAYMENT_PROCESSING_RELEASE, types.PAYMENT_RELEASED}).
			Update("status", types.PAYMENT_HELD_IN_ESCROW).
			Error; err != nil {
			return err
		}
		if payout.Payment != nil {
			if err := tx.
				Model(&models.Booking{}).
				Where("id = ? AND status = ?", payout.Payment.BookingID, types.BOOKING_COMPLETED).
				Update("status", types.BOOKING_AWAITING_CONFIRMATION).
				Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	payout.Status = types.PAYOUT_FAILED
	log.Printf("Transfer %s %s for payout %d, payment %d back in escrow\n", payout.TransferCode, verdict, payout.ID, payout.PaymentID)
	return nil
}
