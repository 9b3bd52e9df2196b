package common

import (
	"errors"
	"log"
	"math"
	"time"

	"fixserve/src/config"
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"
	"fixserve/src/utils"

	"gorm.io/gorm"
)

// RecoverStuckReleases repairs payments abandoned mid-release. A payment
// parked in processing_release past the threshold means the releasing
// process died between steps. If its payout already has a transfer code
// the outcome is fetched from the gateway; otherwise the release is rolled
// back so it can be retried. Returns the number of payments touched.
func RecoverStuckReleases() (int, error) {
	gdb := db.GetDb()
	cutoff := time.Now().Add(-config.StuckReleaseThreshold)
	var stuck []models.Payment
	err := gdb.
		Model(&models.Payment{}).
		Where("status = ? AND updated_at < ?", types.PAYMENT_PROCESSING_RELEASE, cutoff).
		Limit(100).
		Find(&stuck).
		Error
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, payment := range stuck {
		var payouts []models.Payout
		if err := gdb.
			Model(&models.Payout{}).
			Where("payment_id = ?", payment.ID).
			Where("status IN (?)", []types.PayoutStatus{types.PAYOUT_PENDING, types.PAYOUT_PROCESSING}).
			Order("created_at desc").
			Find(&payouts).
			Error; err != nil {
			log.Printf("Error loading payouts for payment %d: %s\n", payment.ID, err.Error())
			continue
		}
		if len(payouts) > 0 && payouts[0].TransferCode != "" {
			// A transfer was created before the crash; its verdict decides.
			// A pending verdict changes nothing and is not counted.
			verified, err := VerifyTransfer(payouts[0].ID)
			if err != nil {
				log.Printf("Could not verify in-flight transfer for payment %d: %s\n", payment.ID, err.Error())
				continue
			}
			if verified.Status == types.PAYOUT_COMPLETED || verified.Status == types.PAYOUT_FAILED {
				recovered++
			}
			continue
		}
		if err := rollbackStuckRelease(&payment, payouts, cutoff); err != nil {
			log.Printf("Error recovering payment %d: %s\n", payment.ID, err.Error())
			continue
		}
		recovered++
	}
	if recovered > 0 {
		log.Printf("Recovered %d stuck escrow release(s)\n", recovered)
	}
	return recovered, nil
}

func rollbackStuckRelease(payment *models.Payment, payouts []models.Payout, cutoff time.Time) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		// Re-check the guard inside the transaction: a release that woke
		// back up would have bumped updated_at.
		res := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ? AND updated_at < ?", payment.ID, types.PAYMENT_PROCESSING_RELEASE, cutoff).
			Update("status", types.PAYMENT_HELD_IN_ESCROW)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cause := "release interrupted, rolled back by recovery"
		for _, payout := range payouts {
			if err := tx.
				Model(&models.Payout{}).
				Where("id = ?", payout.ID).
				Updates(&models.Payout{Status: types.PAYOUT_FAILED, Error: &cause}).
				Error; err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", payment.BookingID, types.BOOKING_COMPLETED).
			Update("status", types.BOOKING_AWAITING_CONFIRMATION).
			Error; err != nil {
			return err
		}
		return nil
	})
}

// CleanupDuplicatePayouts fails all but the newest active payout per
// payment. Duplicates only appear when a release raced recovery.
func CleanupDuplicatePayouts() (int, error) {
	gdb := db.GetDb()
	var active []models.Payout
	err := gdb.
		Model(&models.Payout{}).
		Where("status IN (?)", []types.PayoutStatus{types.PAYOUT_PENDING, types.PAYOUT_PROCESSING}).
		Order("payment_id asc, created_at desc").
		Find(&active).
		Error
	if err != nil {
		return 0, err
	}
	seen := map[uint]bool{}
	cleaned := 0
	cause := "duplicate payout, superseded"
	for _, payout := range active {
		if !seen[payout.PaymentID] {
			seen[payout.PaymentID] = true
			continue
		}
		if err := gdb.
			Model(&models.Payout{}).
			Where("id = ?", payout.ID).
			Updates(&models.Payout{Status: types.PAYOUT_FAILED, Error: &cause}).
			Error; err != nil {
			return cleaned, err
		}
		cleaned++
	}
	return cleaned, nil
}

// GenerateSettlementBatch opens a pending batch for the given day with the
// expected amount summed from payments captured that day.
func GenerateSettlementBatch(batchDate time.Time) (*models.SettlementBatch, error) {
	gdb := db.GetDb()
	start := time.Date(batchDate.Year(), batchDate.Month(), batchDate.Day(), 0, 0, 0, 0, batchDate.Location())
	end := start.Add(24 * time.Hour)
	var batch *models.SettlementBatch
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.SettlementBatch{}).
			Where("batch_date = ?", start).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count > 0 {
			return types.ConflictError("settlement batch already exists for %s", start.Format("2006-01-02"))
		}
		var expected float64
		row := tx.
			Model(&models.Payment{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("paid_at >= ? AND paid_at < ?", start, end).
			Where("status IN (?)", []types.PaymentStatus{
				types.PAYMENT_HELD_IN_ESCROW,
				types.PAYMENT_PROCESSING_RELEASE,
				types.PAYMENT_RELEASED,
			}).
			Row()
		if err := row.Scan(&expected); err != nil {
			return err
		}
		b := models.SettlementBatch{
			BatchDate:      start,
			ExpectedAmount: utils.RoundCents(expected),
			Status:         types.SETTLEMENT_PENDING,
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		batch = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ReconcileSettlementBatch matches a pending batch against the bank
// statement. Within tolerance the batch settles; beyond it the batch is
// flagged and a compensating ledger adjustment records the delta. A
// discrepancy is surfaced, never auto-corrected.
func ReconcileSettlementBatch(batchId uint, actualAmount float64, bankStatementRef string, operatorId uint) (*models.SettlementBatch, error) {
	gdb := db.GetDb()
	var batch models.SettlementBatch
	err := gdb.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Model(&models.SettlementBatch{}).
			Where("id = ?", batchId).
			First(&batch).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}
		if batch.Status != types.SETTLEMENT_PENDING {
			return types.ConflictError("batch %d already reconciled (%s)", batchId, batch.Status)
		}
		now := time.Now()
		deltaCents := math.Round((actualAmount - batch.ExpectedAmount) * 100)
		status := types.SETTLEMENT_SETTLED
		if math.Abs(deltaCents) > config.SettlementToleranceCents {
			status = types.SETTLEMENT_DISCREPANCY
		}
		if err := tx.
			Model(&models.SettlementBatch{}).
			Where("id = ? AND status = ?", batchId, types.SETTLEMENT_PENDING).
			Updates(map[string]any{
				"actual_amount":      utils.RoundCents(actualAmount),
				"status":             status,
				"reconciled_by":      operatorId,
				"reconciled_at":      now,
				"bank_statement_ref": bankStatementRef,
			}).
			Error; err != nil {
			return err
		}
		if status == types.SETTLEMENT_DISCREPANCY {
			direction := types.LEDGER_DEBIT
			if deltaCents > 0 {
				direction = types.LEDGER_CREDIT
			}
			adjustment := models.LedgerAdjustment{
				BatchID:   batchId,
				Amount:    utils.RoundCents(math.Abs(deltaCents) / 100),
				Direction: direction,
				Note:      bankStatementRef,
			}
			if err := tx.Create(&adjustment).Error; err != nil {
				return err
			}
			recErr := &types.ReconciliationError{
				BatchID:  batchId,
				Expected: batch.ExpectedAmount,
				Actual:   actualAmount,
			}
			log.Printf("Settlement discrepancy: %s\n", recErr.Error())
			batch.Adjustments = append(batch.Adjustments, &adjustment)
		}
		batch.ActualAmount = utils.RoundCents(actualAmount)
		batch.Status = status
		batch.ReconciledBy = &operatorId
		batch.ReconciledAt = &now
		batch.BankStatementRef = bankStatementRef
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ProcessWebhookEvent applies a persisted gateway event. Transitions that
// are not legal forward moves are ignored so replays and out-of-order
// delivery cannot regress state. The outcome is recorded on the event row.
func ProcessWebhookEvent(eventId uint) error {
	gdb := db.GetDb()
	var event models.WebhookEvent
	err := gdb.
		Model(&models.WebhookEvent{}).
		Where("id = ?", eventId).
		First(&event).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}
	if event.Processed {
		return nil
	}

	perr := applyWebhookEvent(&event)
	if perr != nil && !errors.Is(perr, types.ErrInvalidState) && !errors.Is(perr, types.ErrNotFound) {
		msg := perr.Error()
		if err := gdb.
			Model(&models.WebhookEvent{}).
			Where("id = ?", eventId).
			Updates(map[string]any{
				"retry_count": gorm.Expr("retry_count + 1"),
				"error":       msg,
			}).
			Error; err != nil {
			log.Printf("Error recording webhook failure %d: %s\n", eventId, err.Error())
		}
		return perr
	}
	if perr != nil {
		// Out-of-order or stale event: no legal transition, nothing to do.
		log.Printf("Webhook %d (%s) skipped: %s\n", eventId, event.EventType, perr.Error())
	}
	return gdb.
		Model(&models.WebhookEvent{}).
		Where("id = ?", eventId).
		Update("processed", true).
		Error
}

func applyWebhookEvent(event *models.WebhookEvent) error {
	switch event.EventType {
	case "charge.success":
		return ConfirmFromGateway(event.Reference, "success")
	case "charge.failed":
		return ConfirmFromGateway(event.Reference, "failed")
	case "transfer.success", "transfer.failed", "transfer.reversed":
		return applyTransferEvent(event)
	default:
		log.Printf("Webhook %d: unhandled event type %s\n", event.ID, event.EventType)
		return nil
	}
}

func applyTransferEvent(event *models.WebhookEvent) error {
	gdb := db.GetDb()
	var payout models.Payout
	err := gdb.
		Model(&models.Payout{}).
		Where("transfer_code = ?", event.Reference).
		Preload("Payment").
		First(&payout).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}
	// A reversal by nature arrives after the transfer looked successful, so
	// a completed payout still honors it. Anything else on a terminal
	// payout is stale.
	if payout.Status == types.PAYOUT_FAILED {
		return nil
	}
	if payout.Status == types.PAYOUT_COMPLETED && event.EventType != "transfer.reversed" {
		return nil
	}
	switch event.EventType {
	case "transfer.success":
		return applyTransferSuccess(&payout)
	case "transfer.failed":
		return applyTransferFailure(&payout, "failed")
	default:
		return applyTransferFailure(&payout, "reversed")
	}
}
