package common

import (
	"fmt"
	"testing"
	"time"

	"fixserve/src/db"
	"fixserve/src/lib"
	"fixserve/src/models"
	"fixserve/src/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeGateway struct {
	initErr     error
	transferErr error

	verifyTxStatus       string
	verifyTransferStatus string

	transferCalls  int
	recipientCalls int
}

func (f *fakeGateway) InitializeTransaction(amount float64, email, reference, callbackURL string, metadata map[string]string) (*lib.InitializeTransactionResponse, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &lib.InitializeTransactionResponse{
		AuthorizationURL: "https://checkout.example.com/" + reference,
		AccessCode:       "ac_test",
		Reference:        reference,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(reference string) (*lib.VerifyTransactionResponse, error) {
	status := f.verifyTxStatus
	if status == "" {
		status = "success"
	}
	return &lib.VerifyTransactionResponse{Status: status, Currency: "NGN"}, nil
}

func (f *fakeGateway) ListBanks(country, currency string) ([]lib.Bank, error) {
	return []lib.Bank{
		{Name: "Kuda Bank", Code: "999991", Type: "nuban"},
		{Name: "Guaranty Trust Bank", Code: "058", Type: "nuban"},
	}, nil
}

func (f *fakeGateway) CreateRecipient(name, accountNumber, bankCode string) (*lib.CreateRecipientResponse, error) {
	f.recipientCalls++
	return &lib.CreateRecipientResponse{RecipientCode: "RCP_test"}, nil
}

func (f *fakeGateway) CreateTransfer(amount float64, recipientCode, reference, reason string) (*lib.CreateTransferResponse, error) {
	if f.transferErr != nil {
		return nil, f.transferErr
	}
	f.transferCalls++
	return &lib.CreateTransferResponse{
		TransferCode: fmt.Sprintf("TRF_test_%d", f.transferCalls),
		Status:       "pending",
	}, nil
}

func (f *fakeGateway) VerifyTransfer(transferCode string) (*lib.VerifyTransferResponse, error) {
	status := f.verifyTransferStatus
	if status == "" {
		status = "success"
	}
	return &lib.VerifyTransferResponse{Status: status, TransferCode: transferCode}, nil
}

func setupTest(t *testing.T) *fakeGateway {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %s", err.Error())
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrapping test database: %s", err.Error())
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
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
	); err != nil {
		t.Fatalf("migrating test database: %s", err.Error())
	}
	db.NewDB(gdb)
	fake := &fakeGateway{}
	NewGateway(fake)
	return fake
}

func seedParties(t *testing.T) (client *models.User, provider *models.User, service *models.Service) {
	t.Helper()
	gdb := db.GetDb()
	bankCode := "058"
	accountNumber := "0123456789"
	accountName := "Ade Plumbing"
	client = &models.User{Name: "Bola", Email: "bola@example.com", Role: types.ROLE_CLIENT}
	provider = &models.User{
		Name: "Ade", Email: "ade@example.com", Role: types.ROLE_PROVIDER,
		BankCode: &bankCode, BankAccountNumber: &accountNumber, BankAccountName: &accountName,
	}
	if err := gdb.Create(client).Error; err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(provider).Error; err != nil {
		t.Fatal(err)
	}
	service = &models.Service{ProviderID: provider.ID, Name: "Pipe repair", BasePrice: 1000}
	if err := gdb.Create(service).Error; err != nil {
		t.Fatal(err)
	}
	return client, provider, service
}

func seedBooking(t *testing.T, client, provider *models.User, service *models.Service, status types.BookingStatus, method types.PaymentMethod) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ClientID:      client.ID,
		ProviderID:    provider.ID,
		ServiceID:     service.ID,
		Status:        status,
		ScheduledDate: time.Now().Add(72 * time.Hour),
		TotalAmount:   1000,
		Address:       "12 Marina Rd",
		PaymentMethod: method,
	}
	if err := db.GetDb().Create(booking).Error; err != nil {
		t.Fatal(err)
	}
	return booking
}

func seedEscrowPayment(t *testing.T, bookingId uint, amount float64) *models.Payment {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		BookingID:        bookingId,
		Amount:           amount,
		EscrowAmount:     amount * 0.9,
		PlatformFee:      amount * 0.1,
		Status:           types.PAYMENT_HELD_IN_ESCROW,
		GatewayReference: fmt.Sprintf("FSV-%d-test", bookingId),
		PaidAt:           &now,
	}
	if err := db.GetDb().Create(payment).Error; err != nil {
		t.Fatal(err)
	}
	return payment
}

func reloadBooking(t *testing.T, id uint) *models.Booking {
	t.Helper()
	var b models.Booking
	if err := db.GetDb().First(&b, id).Error; err != nil {
		t.Fatal(err)
	}
	return &b
}

func reloadPayment(t *testing.T, id uint) *models.Payment {
	t.Helper()
	var p models.Payment
	if err := db.GetDb().First(&p, id).Error; err != nil {
		t.Fatal(err)
	}
	return &p
}

func reloadPayout(t *testing.T, id uint) *models.Payout {
	t.Helper()
	var p models.Payout
	if err := db.GetDb().First(&p, id).Error; err != nil {
		t.Fatal(err)
	}
	return &p
}
