package common

import (
	"fmt"
	"testing"
	"time"

	"fixserve/src/config"
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingValidatesService(t *testing.T) {
	setupTest(t)
	client, provider, _ := seedParties(t)

	_, err := CreateBooking(client.ID, &types.CreateBookingRequestBody{
		ProviderID:    provider.ID,
		ServiceID:     999,
		ScheduledDate: time.Now().Add(48 * time.Hour).Format(config.TIME_PARSE_FORMAT),
		TotalAmount:   1000,
		Address:       "12 Marina Rd",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestOnlineBookingLifecycle(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)

	booking, err := CreateBooking(client.ID, &types.CreateBookingRequestBody{
		ProviderID:    provider.ID,
		ServiceID:     service.ID,
		ScheduledDate: time.Now().Add(72 * time.Hour).Format(config.TIME_PARSE_FORMAT),
		TotalAmount:   1000,
		Address:       "12 Marina Rd",
	})
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_PENDING, booking.Status)

	booking, err = AcceptBooking(booking.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_CONFIRMED, booking.Status)

	payment, authURL, err := InitiatePayment(booking.ID, client.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, authURL)
	assert.Equal(t, types.PAYMENT_PENDING, payment.Status)

	require.NoError(t, ConfirmFromGateway(payment.GatewayReference, "success"))
	assert.Equal(t, types.BOOKING_PENDING_EXECUTION, reloadBooking(t, booking.ID).Status)
	assert.Equal(t, types.PAYMENT_HELD_IN_ESCROW, reloadPayment(t, payment.ID).Status)

	booking, err = StartBooking(booking.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_IN_PROGRESS, booking.Status)

	booking, err = CompleteBooking(booking.ID, provider.ID, &types.CompleteBookingRequestBody{
		ProofPhotos: []string{"https://cdn.example.com/proof1.jpg"},
		ProofNotes:  "done, pipe replaced",
	})
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_AWAITING_CONFIRMATION, booking.Status)

	require.NoError(t, ConfirmBooking(booking.ID, client.ID))
	assert.Equal(t, types.BOOKING_COMPLETED, reloadBooking(t, booking.ID).Status)
	assert.Equal(t, types.PAYMENT_RELEASED, reloadPayment(t, payment.ID).Status)

	var payout models.Payout
	require.NoError(t, db.GetDb().Where("payment_id = ?", payment.ID).First(&payout).Error)
	assert.Equal(t, types.PAYOUT_PROCESSING, payout.Status)
	assert.NotEmpty(t, payout.TransferCode)
	assert.Equal(t, 900.0, payout.Amount)
}

func TestAcceptRequiresOwningProvider(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_PENDING, types.PAYMENT_METHOD_ONLINE)

	_, err := AcceptBooking(booking.ID, client.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestAcceptOnlyFromPending(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_IN_PROGRESS, types.PAYMENT_METHOD_ONLINE)

	_, err := AcceptBooking(booking.ID, provider.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestCancelInsideFinalDayChargesHalf(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_ONLINE)
	require.NoError(t, db.GetDb().
		Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Update("scheduled_date", time.Now().Add(10*time.Hour)).
		Error)
	payment := &models.Payment{
		BookingID:        booking.ID,
		Amount:           1000,
		EscrowAmount:     900,
		PlatformFee:      100,
		Status:           types.PAYMENT_PENDING,
		GatewayReference: fmt.Sprintf("FSV-%d-test", booking.ID),
	}
	require.NoError(t, db.GetDb().Create(payment).Error)

	cancelled, err := CancelBooking(booking.ID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_CANCELED, cancelled.Status)
	assert.Equal(t, 500.0, cancelled.CancellationFee)
	assert.Equal(t, types.PAYMENT_FAILED, reloadPayment(t, payment.ID).Status)
}

func TestCancelFarOutIsFree(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_PENDING, types.PAYMENT_METHOD_ONLINE)

	cancelled, err := CancelBooking(booking.ID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cancelled.CancellationFee)
}

func TestCancelAfterStartRejected(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_IN_PROGRESS, types.PAYMENT_METHOD_ONLINE)

	_, err := CancelBooking(booking.ID, client.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestStartRequiresCapturedPaymentForOnline(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_ONLINE)

	_, err := StartBooking(booking.ID, provider.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestCashBookingLifecycle(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_CASH)

	started, err := StartBooking(booking.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_IN_PROGRESS, started.Status)

	completed, err := CompleteBooking(booking.ID, provider.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_AWAITING_CONFIRMATION, completed.Status)

	var payment models.Payment
	require.NoError(t, db.GetDb().Where("booking_id = ?", booking.ID).First(&payment).Error)
	assert.Equal(t, types.PAYMENT_CASH_PENDING, payment.Status)
	assert.Equal(t, 100.0, payment.PlatformFee)

	require.NoError(t, ConfirmBooking(booking.ID, client.ID))
	assert.Equal(t, types.BOOKING_COMPLETED, reloadBooking(t, booking.ID).Status)
	assert.Equal(t, types.PAYMENT_CASH_PAID, reloadPayment(t, payment.ID).Status)

	require.NoError(t, MarkCashReceived(booking.ID, provider.ID))
	assert.Equal(t, types.PAYMENT_CASH_RECEIVED, reloadPayment(t, payment.ID).Status)
}

func TestMarkCashReceivedRejectsOnlinePayment(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	seedEscrowPayment(t, booking.ID, 1000)

	err := MarkCashReceived(booking.ID, provider.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestAutoConfirmReleasesEscrow(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	payment := seedEscrowPayment(t, booking.ID, 1000)

	AutoConfirmBooking(booking.ID)
	assert.Equal(t, types.BOOKING_COMPLETED, reloadBooking(t, booking.ID).Status)
	assert.Equal(t, types.PAYMENT_RELEASED, reloadPayment(t, payment.ID).Status)

	// Running again after completion changes nothing.
	AutoConfirmBooking(booking.ID)
	assert.Equal(t, types.PAYMENT_RELEASED, reloadPayment(t, payment.ID).Status)
}

func TestSweepExpiredConfirmations(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	expired := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	seedEscrowPayment(t, expired.ID, 1000)
	fresh := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	seedEscrowPayment(t, fresh.ID, 1000)

	stale := time.Now().Add(-config.AutoConfirmWindow - time.Hour)
	require.NoError(t, db.GetDb().
		Model(&models.Booking{}).
		Where("id = ?", expired.ID).
		UpdateColumn("updated_at", stale).
		Error)

	n, err := SweepExpiredConfirmations()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, types.BOOKING_COMPLETED, reloadBooking(t, expired.ID).Status)
	assert.Equal(t, types.BOOKING_AWAITING_CONFIRMATION, reloadBooking(t, fresh.ID).Status)
}
