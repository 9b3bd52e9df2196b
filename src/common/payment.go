package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fixserve/src/config"
	"fixserve/src/db"
	"fixserve/src/lib"
	"fixserve/src/models"
	"fixserve/src/types"
	"fixserve/src/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitiatePayment creates the pending payment for a confirmed booking and
// obtains a checkout authorization from the gateway. The duplicate-payment
// check runs twice: once here before the gateway round trip, and again
// inside the transaction that writes the row, to close the double-submit
// race window.
func InitiatePayment(bookingId, clientId uint, callbackURL string) (*models.Payment, string, error) {
	db := db.GetDb()
	var booking models.Booking
	err := db.
		Model(&models.Booking{}).
		Where("id = ?", bookingId).
		Preload("Client").
		First(&booking).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", types.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if booking.ClientID != clientId {
		return nil, "", types.ForbiddenError("booking %d belongs to another client", bookingId)
	}
	if booking.PaymentMethod != types.PAYMENT_METHOD_ONLINE {
		return nil, "", types.InvalidStateError("booking %d is not payable online", bookingId)
	}
	if booking.Status != types.BOOKING_CONFIRMED {
		return nil, "", types.InvalidStateError("cannot pay for booking in status %s", booking.Status)
	}

	var count int64
	if err := db.
		Model(&models.Payment{}).
		Where("booking_id = ?", bookingId).
		Count(&count).
		Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", types.ConflictError("payment already exists for booking %d", bookingId)
	}

	escrow, fee := utils.SplitAmount(booking.TotalAmount)
	reference := fmt.Sprintf("FSV-%d-%s", bookingId, uuid.New().String())
	email := ""
	if booking.Client != nil {
		email = booking.Client.Email
	}
	init, err := Gateway().InitializeTransaction(booking.TotalAmount, email, reference, callbackURL, map[string]string{
		"booking_id": fmt.Sprintf("%d", bookingId),
	})
	if err != nil {
		log.Printf("Error initializing payment for Booking %d: %s\n", bookingId, err.Error())
		return nil, "", err
	}

	payment := models.Payment{
		BookingID:        bookingId,
		Amount:           booking.TotalAmount,
		EscrowAmount:     escrow,
		PlatformFee:      fee,
		Status:           types.PAYMENT_PENDING,
		GatewayReference: init.Reference,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", bookingId).
			First(&b).
			Error; err != nil {
			return err
		}
		if b.Status != types.BOOKING_CONFIRMED {
			return types.InvalidStateError("cannot pay for booking in status %s", b.Status)
		}
		var inner int64
		if err := tx.
			Model(&models.Payment{}).
			Where("booking_id = ?", bookingId).
			Count(&inner).
			Error; err != nil {
			return err
		}
		if inner > 0 {
			return types.ConflictError("payment already exists for booking %d", bookingId)
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	log.Printf("Initiated payment %d for Booking %d, reference %s\n", payment.ID, bookingId, payment.GatewayReference)
	return &payment, init.AuthorizationURL, nil
}

// VerifyPayment asks the gateway for the transaction result and applies
// it. Attempts are counted against a TTL limit per caller.
func VerifyPayment(reference string, userId uint) (*models.Payment, error) {
	count, _ := lib.CountAttempt(context.Background(), "verify_payment", userId, config.VerifyAttemptWindow)
	if count > config.VerifyAttemptLimit {
		return nil, types.ConflictError("too many verification attempts, retry later")
	}
	res, err := Gateway().VerifyTransaction(reference)
	if err != nil {
		return nil, err
	}
	if err := ConfirmFromGateway(reference, res.Status); err != nil {
		return nil, err
	}
	var payment models.Payment
	if err := db.GetDb().
		Model(&models.Payment{}).
		Where("gateway_reference = ?", reference).
		First(&payment).
		Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConfirmFromGateway applies a gateway verdict for a payment reference.
// Idempotent: a payment already in escrow is left untouched, so replayed
// webhooks and repeated verification calls cannot regress state.
func ConfirmFromGateway(reference string, gatewayStatus string) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.
			Model(&models.Payment{}).
			Where("gateway_reference = ?", reference).
			First(&payment).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}
		if payment.Status == types.PAYMENT_HELD_IN_ESCROW {
			return nil
		}
		if payment.Status != types.PAYMENT_PENDING {
			return types.InvalidStateError("payment %d is %s, not pending", payment.ID, payment.Status)
		}
		switch gatewayStatus {
		case "success":
			now := time.Now()
			if err := tx.
				Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, types.PAYMENT_PENDING).
				Updates(map[string]any{
					"status":  types.PAYMENT_HELD_IN_ESCROW,
					"paid_at": now,
				}).
				Error; err != nil {
				return err
			}
			if err := tx.
				Model(&models.Booking{}).
				Where("id = ? AND status = ?", payment.BookingID, types.BOOKING_CONFIRMED).
				Update("status", types.BOOKING_PENDING_EXECUTION).
				Error; err != nil {
				return err
			}
			log.Printf("Payment %d captured into escrow for Booking %d\n", payment.ID, payment.BookingID)
		case "failed", "abandoned":
			if err := tx.
				Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, types.PAYMENT_PENDING).
				Update("status", types.PAYMENT_FAILED).
				Error; err != nil {
				return err
			}
			log.Printf("Payment %d marked failed (%s)\n", payment.ID, gatewayStatus)
		default:
			return types.ValidationError("unknown gateway status %q", gatewayStatus)
		}
		return nil
	})
}

// ReleaseEscrow pays the provider out of escrow. Each step commits on its
// own: the payment is parked in processing_release first, then the payout
// row is written, then the external transfer runs. A transfer failure
// rolls the payment back to escrow; a crash between steps is repaired by
// the recovery sweep.
func ReleaseEscrow(bookingId, actorId uint, role types.Role, reason string) error {
	gdb := db.GetDb()
	var booking models.Booking
	err := gdb.
		Model(&models.Booking{}).
		Where("id = ?", bookingId).
		Preload("Payment").
		Preload("Provider").
		Preload("Proof").
		First(&booking).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}
	if role != types.ROLE_ADMIN && actorId != booking.ClientID && actorId != booking.ProviderID {
		return types.ForbiddenError("not a party to booking %d", bookingId)
	}
	if booking.Payment == nil {
		return types.InvalidStateError("booking %d has no payment", bookingId)
	}
	payment := booking.Payment
	if payment.Status != types.PAYMENT_HELD_IN_ESCROW {
		return types.InvalidStateError("payment %d is %s, not in escrow", payment.ID, payment.Status)
	}
	if booking.Status != types.BOOKING_COMPLETED && booking.Status != types.BOOKING_AWAITING_CONFIRMATION {
		return types.InvalidStateError("cannot release escrow for booking in status %s", booking.Status)
	}
	if role == types.ROLE_CLIENT && booking.Proof == nil {
		return types.InvalidStateError("no completion proof on booking %d", bookingId)
	}

	// Step 1: park the payment. The status guard makes concurrent release
	// attempts lose cleanly.
	res := gdb.
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, types.PAYMENT_HELD_IN_ESCROW).
		Update("status", types.PAYMENT_PROCESSING_RELEASE)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ConflictError("release already in progress for payment %d", payment.ID)
	}

	// Step 2: the payout record.
	payout := models.Payout{
		PaymentID:  payment.ID,
		ProviderID: booking.ProviderID,
		Amount:     payment.EscrowAmount,
		Status:     types.PAYOUT_PENDING,
	}
	if err := gdb.Create(&payout).Error; err != nil {
		rollbackRelease(payment.ID, payout.ID, err.Error())
		return err
	}

	recipientCode, err := ensureRecipient(booking.Provider)
	if err != nil {
		rollbackRelease(payment.ID, payout.ID, err.Error())
		return err
	}

	transferRef := fmt.Sprintf("FSV-PO-%d-%s", payout.ID, uuid.New().String())
	transfer, err := Gateway().CreateTransfer(payment.EscrowAmount, recipientCode, transferRef, reason)
	if err != nil {
		log.Printf("Transfer failed for payout %d: %s\n", payout.ID, err.Error())
		rollbackRelease(payment.ID, payout.ID, err.Error())
		return err
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Payout{}).
			Where("id = ?", payout.ID).
			Updates(&models.Payout{
				Status:       types.PAYOUT_PROCESSING,
				TransferCode: transfer.TransferCode,
			}).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, types.PAYMENT_PROCESSING_RELEASE).
			Updates(map[string]any{
				"status":         types.PAYMENT_RELEASED,
				"transaction_id": transfer.TransferCode,
			}).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", bookingId).
			Update("status", types.BOOKING_COMPLETED).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Error finishing release for payment %d: %s\n", payment.ID, err.Error())
		return err
	}
	log.Printf("Escrow released for Booking %d: payout %d transfer %s\n", bookingId, payout.ID, transfer.TransferCode)
	return nil
}

// rollbackRelease is the compensating write after a failed transfer
// attempt: payment back to escrow, payout failed. If this itself is
// interrupted, the recovery sweep finishes the job.
func rollbackRelease(paymentId, payoutId uint, cause string) {
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentId, types.PAYMENT_PROCESSING_RELEASE).
			Update("status", types.PAYMENT_HELD_IN_ESCROW).
			Error; err != nil {
			return err
		}
		if payoutId == 0 {
			return nil
		}
		if err := tx.
			Model(&models.Payout{}).
			Where("id = ?", payoutId).
			Updates(&models.Payout{Status: types.PAYOUT_FAILED, Error: &cause}).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Error rolling back release for payment %d: %s\n", paymentId, err.Error())
	}
}

func ensureRecipient(provider *models.User) (string, error) {
	if provider == nil {
		return "", types.ValidationError("provider record missing")
	}
	if provider.RecipientCode != nil && *provider.RecipientCode != "" {
		return *provider.RecipientCode, nil
	}
	if provider.BankCode == nil || provider.BankAccountNumber == nil || provider.BankAccountName == nil {
		return "", types.ValidationError("provider %d has no bank details on file", provider.ID)
	}
	rec, err := Gateway().CreateRecipient(*provider.BankAccountName, *provider.BankAccountNumber, *provider.BankCode)
	if err != nil {
		return "", err
	}
	gdb := db.GetDb()
	if err := gdb.
		Model(&models.User{}).
		Where("id = ?", provider.ID).
		Update("recipient_code", rec.RecipientCode).
		Error; err != nil {
		return "", err
	}
	return rec.RecipientCode, nil
}

// MarkCashReceived is the provider acknowledging cash in hand.
func MarkCashReceived(bookingId, providerId uint) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ProviderID != providerId {
			return types.ForbiddenError("booking %d belongs to another provider", bookingId)
		}
		res := tx.
			Model(&models.Payment{}).
			Where("booking_id = ?", bookingId).
			Where("status IN (?)", []types.PaymentStatus{types.PAYMENT_CASH_PENDING, types.PAYMENT_CASH_PAID}).
			Update("status", types.PAYMENT_CASH_RECEIVED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.InvalidStateError("no collectable cash payment for booking %d", bookingId)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.BOOKING_AWAITING_CONFIRMATION).
			Update("status", types.BOOKING_COMPLETED).
			Error; err != nil {
			return err
		}
		return nil
	})
}
