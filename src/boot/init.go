package boot

import (
	"fixserve/src/common"
	"fixserve/src/config"
	"fixserve/src/db"
	"fixserve/src/lib"
	"fixserve/src/models"
	"log"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Booking{},
		&models.Payment{},
		&models.Payout{},
		&models.Dispute{},
		&models.CompletionProof{},
		&models.SettlementBatch{},
		&models.LedgerAdjustment{},
		&models.WebhookEvent{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler starts the background scheduler and registers the recovery
// sweep that unsticks releases abandoned by a crash.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	id, err := lib.CreateCronJob(func() {
		if _, err := common.RecoverStuckReleases(); err != nil {
			log.Printf("Error on recovery sweep: %s\n", err.Error())
		}
		if _, err := common.CleanupDuplicatePayouts(); err != nil {
			log.Printf("Error on duplicate payout cleanup: %s\n", err.Error())
		}
		if _, err := common.SweepExpiredConfirmations(); err != nil {
			log.Printf("Error on expired confirmation sweep: %s\n", err.Error())
		}
	}, config.StuckReleaseThreshold)
	if err != nil {
		log.Printf("Error registering recovery sweep: %s\n", err.Error())
		return
	}
	log.Printf("Recovery sweep registered: %s\n", *id)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
