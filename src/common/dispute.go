package common

import (
	"log"

	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"

	"gorm.io/gorm"
)

// Booking states from which a dispute may be opened.
var disputableStates = []types.BookingStatus{
	types.BOOKING_PENDING_EXECUTION,
	types.BOOKING_IN_PROGRESS,
	types.BOOKING_AWAITING_CONFIRMATION,
}

// OpenDispute freezes the money flow on a contested booking. The escrowed
// payment stays put and the booking becomes disputed, terminal until an
// operator resolves it. Validation order: authorization, uniqueness,
// booking state, payment state.
func OpenDispute(bookingId, reporterId uint, reason types.DisputeReason, description string) (*models.Dispute, error) {
	var dispute *models.Dispute
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if reporterId != b.ClientID && reporterId != b.ProviderID {
			return types.ForbiddenError("not a party to booking %d", bookingId)
		}
		var count int64
		if err := tx.
			Model(&models.Dispute{}).
			Where("booking_id = ?", bookingId).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count > 0 {
			return types.ConflictError("dispute already open for booking %d", bookingId)
		}
		disputable := false
		for _, s := range disputableStates {
			if b.Status == s {
				disputable = true
				break
			}
		}
		if !disputable {
			return types.InvalidStateError("cannot dispute booking in status %s", b.Status)
		}
		var payment models.Payment
		if err := tx.
			Model(&models.Payment{}).
			Where("booking_id = ?", bookingId).
			First(&payment).
			Error; err != nil {
			return types.InvalidStateError("booking %d has no payment to freeze", bookingId)
		}
		if payment.Status != types.PAYMENT_HELD_IN_ESCROW {
			return types.InvalidStateError("payment %d is %s, not in escrow", payment.ID, payment.Status)
		}
		d := models.Dispute{
			BookingID:   bookingId,
			ReportedBy:  reporterId,
			Reason:      reason,
			Description: description,
			Status:      types.DISPUTE_PENDING,
		}
		if err := tx.Create(&d).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, b.Status).
			Update("status", types.BOOKING_DISPUTED).
			Error; err != nil {
			return err
		}
		dispute = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Dispute %d opened on Booking %d by user %d (%s)\n", dispute.ID, bookingId, reporterId, dispute.Reason)
	return dispute, nil
}
