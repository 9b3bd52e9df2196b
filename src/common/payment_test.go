package common

import (
	"testing"

	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiatePaymentRequiresConfirmedBooking(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_PENDING, types.PAYMENT_METHOD_ONLINE)

	_, _, err := InitiatePayment(booking.ID, client.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestInitiatePaymentRejectsCashBooking(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_CASH)

	_, _, err := InitiatePayment(booking.ID, client.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestInitiatePaymentDuplicateConflict(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_ONLINE)

	_, _, err := InitiatePayment(booking.ID, client.ID, "")
	require.NoError(t, err)

	_, _, err = InitiatePayment(booking.ID, client.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestConfirmFromGatewaySplitsAmount(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_ONLINE)

	payment, _, err := InitiatePayment(booking.ID, client.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 900.0, payment.EscrowAmount)
	assert.Equal(t, 100.0, payment.PlatformFee)

	require.NoError(t, ConfirmFromGateway(payment.GatewayReference, "success"))
	got := reloadPayment(t, payment.ID)
	assert.Equal(t, types.PAYMENT_HELD_IN_ESCROW, got.Status)
	assert.NotNil(t, got.PaidAt)
	assert.Equal(t, types.BOOKING_PENDING_EXECUTION, reloadBooking(t, booking.ID).Status)
}

func TestConfirmFromGatewayReplayIsIdempotent(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_ONLINE)
	payment, _, err := InitiatePayment(booking.ID, client.ID, "")
	require.NoError(t, err)

	require.NoError(t, ConfirmFromGateway(payment.GatewayReference, "success"))
	require.NoError(t, ConfirmFromGateway(payment.GatewayReference, "success"))
	assert.Equal(t, types.PAYMENT_HELD_IN_ESCROW, reloadPayment(t, payment.ID).Status)
}

func TestConfirmFromGatewayFailureMarksFailed(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_CONFIRMED, types.PAYMENT_METHOD_ONLINE)
	payment, _, err := InitiatePayment(booking.ID, client.ID, "")
	require.NoError(t, err)

	require.NoError(t, ConfirmFromGateway(payment.GatewayReference, "abandoned"))
	assert.Equal(t, types.PAYMENT_FAILED, reloadPayment(t, payment.ID).Status)
	assert.Equal(t, types.BOOKING_CONFIRMED, reloadBooking(t, booking.ID).Status)
}

func TestReleaseEscrowTransferFailureRollsBack(t *testing.T) {
	fake := setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	payment := seedEscrowPayment(t, booking.ID, 1000)

	fake.transferErr = &types.GatewayError{Op: "transfer.create", Status: 503, Message: "provider down", Retryable: true}
	err := ReleaseEscrow(booking.ID, client.ID, types.ROLE_ADMIN, "test")
	require.Error(t, err)

	assert.Equal(t, types.PAYMENT_HELD_IN_ESCROW, reloadPayment(t, payment.ID).Status)
	assert.Equal(t, types.BOOKING_AWAITING_CONFIRMATION, reloadBooking(t, booking.ID).Status)

	var payout models.Payout
	require.NoError(t, db.GetDb().Where("payment_id = ?", payment.ID).First(&payout).Error)
	assert.Equal(t, types.PAYOUT_FAILED, payout.Status)
	require.NotNil(t, payout.Error)

	// The failed attempt left everything retryable.
	fake.transferErr = nil
	require.NoError(t, ReleaseEscrow(booking.ID, client.ID, types.ROLE_ADMIN, "retry"))
	assert.Equal(t, types.PAYMENT_RELEASED, reloadPayment(t, payment.ID).Status)
}

func TestReleaseEscrowRequiresEscrowedPayment(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	payment := seedEscrowPayment(t, booking.ID, 1000)
	require.NoError(t, db.GetDb().
		Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("status", types.PAYMENT_PENDING).
		Error)

	err := ReleaseEscrow(booking.ID, client.ID, types.ROLE_ADMIN, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestReleaseEscrowClientNeedsProof(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	seedEscrowPayment(t, booking.ID, 1000)

	err := ReleaseEscrow(booking.ID, client.ID, types.ROLE_CLIENT, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestReleaseEscrowStrangerForbidden(t *testing.T) {
	setupTest(t)
	client, provider, service := seedParties(t)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	seedEscrowPayment(t, booking.ID, 1000)

	err := ReleaseEscrow(booking.ID, client.ID+provider.ID+100, types.ROLE_CLIENT, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestReleaseEscrowReusesRecipientCode(t *testing.T) {
	fake := setupTest(t)
	client, provider, service := seedParties(t)
	code := "RCP_existing"
	require.NoError(t, db.GetDb().
		Model(&models.User{}).
		Where("id = ?", provider.ID).
		Update("recipient_code", code).
		Error)
	booking := seedBooking(t, client, provider, service, types.BOOKING_AWAITING_CONFIRMATION, types.PAYMENT_METHOD_ONLINE)
	seedEscrowPayment(t, booking.ID, 1000)

	require.NoError(t, ReleaseEscrow(booking.ID, client.ID, types.ROLE_ADMIN, "test"))
	assert.Equal(t, 0, fake.recipientCalls)
}
