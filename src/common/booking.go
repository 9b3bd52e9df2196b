package common

import (
	"errors"
	"log"
	"time"

	"fixserve/src/config"
	"fixserve/src/db"
	"fixserve/src/lib"
	"fixserve/src/models"
	"fixserve/src/types"
	"fixserve/src/utils"

	"gorm.io/gorm"
)

func getBooking(tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := tx.
		Model(&models.Booking{}).
		Where("id = ?", id).
		First(&booking).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func CreateBooking(clientId uint, params *types.CreateBookingRequestBody) (*models.Booking, error) {
	scheduledDate, err := time.Parse(config.TIME_PARSE_FORMAT, params.ScheduledDate)
	if err != nil {
		return nil, types.ValidationError("bad scheduled_date: %s", params.ScheduledDate)
	}
	method := types.PAYMENT_METHOD_ONLINE
	if params.PaymentMethod == string(types.PAYMENT_METHOD_CASH) {
		method = types.PAYMENT_METHOD_CASH
	}
	booking := models.Booking{
		ClientID:      clientId,
		ProviderID:    params.ProviderID,
		ServiceID:     params.ServiceID,
		Status:        types.BOOKING_PENDING,
		ScheduledDate: scheduledDate,
		TotalAmount:   utils.RoundCents(params.TotalAmount),
		Address:       params.Address,
		PaymentMethod: method,
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var service models.Service
		if err := tx.
			Model(&models.Service{}).
			Where("id = ? AND provider_id = ?", params.ServiceID, params.ProviderID).
			First(&service).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ValidationError("service %d does not belong to provider %d", params.ServiceID, params.ProviderID)
			}
			return err
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Created Booking %d for client %d with provider %d\n", booking.ID, clientId, params.ProviderID)
	return &booking, nil
}

// AcceptBooking moves a pending booking to confirmed. Only the provider on
// the booking may accept, and only from pending.
func AcceptBooking(bookingId, providerId uint) (*models.Booking, error) {
	var booking *models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ProviderID != providerId {
			return types.ForbiddenError("booking %d belongs to another provider", bookingId)
		}
		if b.Status != types.BOOKING_PENDING {
			return types.InvalidStateError("cannot accept booking in status %s", b.Status)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.BOOKING_PENDING).
			Update("status", types.BOOKING_CONFIRMED).
			Error; err != nil {
			return err
		}
		b.Status = types.BOOKING_CONFIRMED
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// DeclineBooking cancels a pending booking on the provider's behalf.
func DeclineBooking(bookingId, providerId uint) (*models.Booking, error) {
	var booking *models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ProviderID != providerId {
			return types.ForbiddenError("booking %d belongs to another provider", bookingId)
		}
		if b.Status != types.BOOKING_PENDING {
			return types.InvalidStateError("cannot decline booking in status %s", b.Status)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.BOOKING_PENDING).
			Update("status", types.BOOKING_CANCELED).
			Error; err != nil {
			return err
		}
		b.Status = types.BOOKING_CANCELED
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking cancels a pending or confirmed booking for the client,
// charging the time-based cancellation fee. Any pending payment fails in
// the same transaction so no reader observes a half-cancelled booking.
func CancelBooking(bookingId, clientId uint) (*models.Booking, error) {
	var booking *models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ClientID != clientId {
			return types.ForbiddenError("booking %d belongs to another client", bookingId)
		}
		if b.Status != types.BOOKING_PENDING && b.Status != types.BOOKING_CONFIRMED {
			return types.InvalidStateError("cannot cancel booking in status %s", b.Status)
		}
		fee := utils.CancellationFee(b.TotalAmount, b.ScheduledDate, time.Now())
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, b.Status).
			Updates(map[string]any{
				"status":           types.BOOKING_CANCELED,
				"cancellation_fee": fee,
			}).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("booking_id = ? AND status = ?", bookingId, types.PAYMENT_PENDING).
			Update("status", types.PAYMENT_FAILED).
			Error; err != nil {
			return err
		}
		b.Status = types.BOOKING_CANCELED
		b.CancellationFee = fee
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Booking %d cancelled by client %d, fee=%.2f\n", booking.ID, clientId, booking.CancellationFee)
	return booking, nil
}

// StartBooking marks the job as underway. Online bookings must be paid
// (pending_execution) first; cash bookings may start from confirmed.
func StartBooking(bookingId, providerId uint) (*models.Booking, error) {
	var booking *models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ProviderID != providerId {
			return types.ForbiddenError("booking %d belongs to another provider", bookingId)
		}
		allowed := b.Status == types.BOOKING_PENDING_EXECUTION ||
			(b.Status == types.BOOKING_CONFIRMED && b.PaymentMethod == types.PAYMENT_METHOD_CASH)
		if !allowed {
			return types.InvalidStateError("cannot start booking in status %s", b.Status)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, b.Status).
			Update("status", types.BOOKING_IN_PROGRESS).
			Error; err != nil {
			return err
		}
		b.Status = types.BOOKING_IN_PROGRESS
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CompleteBooking records the provider's completion proof and moves the
// booking to awaiting_confirmation. Cash payments are forced into
// cash_pending unless already along the cash path. An auto-confirm job is
// scheduled for when the proof expires.
func CompleteBooking(bookingId, providerId uint, params *types.CompleteBookingRequestBody) (*models.Booking, error) {
	var booking *models.Booking
	expiresAt := time.Now().Add(config.AutoConfirmWindow)
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ProviderID != providerId {
			return types.ForbiddenError("booking %d belongs to another provider", bookingId)
		}
		if b.Status != types.BOOKING_IN_PROGRESS {
			return types.InvalidStateError("cannot complete booking in status %s", b.Status)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.BOOKING_IN_PROGRESS).
			Update("status", types.BOOKING_AWAITING_CONFIRMATION).
			Error; err != nil {
			return err
		}
		photos := types.JSONB{}
		if params != nil && len(params.ProofPhotos) > 0 {
			photos["urls"] = params.ProofPhotos
		}
		notes := ""
		if params != nil {
			notes = params.ProofNotes
		}
		proof := models.CompletionProof{
			BookingID: bookingId,
			Photos:    photos,
			Notes:     notes,
			ExpiresAt: expiresAt,
		}
		if err := tx.Create(&proof).Error; err != nil {
			return err
		}
		if b.PaymentMethod == types.PAYMENT_METHOD_CASH {
			if err := forceCashPending(tx, b); err != nil {
				return err
			}
		}
		b.Status = types.BOOKING_AWAITING_CONFIRMATION
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := lib.CreateOneTimeJob(expiresAt, AutoConfirmBooking, bookingId); err != nil {
		log.Printf("Error scheduling auto-confirm for Booking %d: %s\n", bookingId, err.Error())
	}
	return booking, nil
}

// ConfirmBooking is the client accepting the finished job. It hands off to
// escrow release for online payments; cash bookings complete directly.
func ConfirmBooking(bookingId, clientId uint) error {
	db := db.GetDb()
	var method types.PaymentMethod
	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, bookingId)
		if err != nil {
			return err
		}
		if b.ClientID != clientId {
			return types.ForbiddenError("booking %d belongs to another client", bookingId)
		}
		if b.Status != types.BOOKING_AWAITING_CONFIRMATION {
			return types.InvalidStateError("cannot confirm booking in status %s", b.Status)
		}
		method = b.PaymentMethod
		return nil
	})
	if err != nil {
		return err
	}
	if method == types.PAYMENT_METHOD_CASH {
		return completeCashBooking(bookingId)
	}
	return ReleaseEscrow(bookingId, clientId, types.ROLE_CLIENT, "client confirmed completion")
}

// AutoConfirmBooking runs when a completion proof expires without the
// client confirming. Release failures here are left to the recovery sweep.
func AutoConfirmBooking(bookingId uint) {
	db := db.GetDb()
	var booking models.Booking
	err := db.
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingId, types.BOOKING_AWAITING_CONFIRMATION).
		First(&booking).
		Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error loading Booking %d for auto-confirm: %s\n", bookingId, err.Error())
		}
		return
	}
	if booking.PaymentMethod == types.PAYMENT_METHOD_CASH {
		if err := completeCashBooking(bookingId); err != nil {
			log.Printf("Error auto-confirming cash Booking %d: %s\n", bookingId, err.Error())
		}
		return
	}
	if err := ReleaseEscrow(bookingId, booking.ClientID, types.ROLE_ADMIN, "completion proof expired"); err != nil {
		log.Printf("Error releasing escrow for auto-confirmed Booking %d: %s\n", bookingId, err.Error())
	}
}

// SweepExpiredConfirmations catches bookings whose auto-confirm timer was
// lost to a restart. One-time jobs live in memory only.
func SweepExpiredConfirmations() (int, error) {
	db := db.GetDb()
	cutoff := time.Now().Add(-config.AutoConfirmWindow)
	var bookings []models.Booking
	err := db.
		Model(&models.Booking{}).
		Where("status = ? AND updated_at < ?", types.BOOKING_AWAITING_CONFIRMATION, cutoff).
		Limit(100).
		Find(&bookings).
		Error
	if err != nil {
		return 0, err
	}
	for _, b := range bookings {
		AutoConfirmBooking(b.ID)
	}
	return len(bookings), nil
}

// forceCashPending puts the booking's payment on the cash path, creating
// the record if the booking never had one. Idempotent: payments already
// along the cash path are left alone.
func forceCashPending(tx *gorm.DB, b *models.Booking) error {
	var payment models.Payment
	err := tx.
		Model(&models.Payment{}).
		Where("booking_id = ?", b.ID).
		First(&payment).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		escrow, fee := utils.SplitAmount(b.TotalAmount)
		payment = models.Payment{
			BookingID:    b.ID,
			Amount:       b.TotalAmount,
			EscrowAmount: escrow,
			PlatformFee:  fee,
			Status:       types.PAYMENT_CASH_PENDING,
		}
		return tx.Create(&payment).Error
	}
	if err != nil {
		return err
	}
	switch payment.Status {
	case types.PAYMENT_CASH_PENDING, types.PAYMENT_CASH_PAID, types.PAYMENT_CASH_RECEIVED:
		return nil
	}
	return tx.
		Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("status", types.PAYMENT_CASH_PENDING).
		Error
}

func completeCashBooking(bookingId uint) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.BOOKING_AWAITING_CONFIRMATION).
			Update("status", types.BOOKING_COMPLETED).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("booking_id = ? AND status = ?", bookingId, types.PAYMENT_CASH_PENDING).
			Update("status", types.PAYMENT_CASH_PAID).
			Error; err != nil {
			return err
		}
		return nil
	})
}
