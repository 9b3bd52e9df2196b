package main

import (
	"bytes"
	"encoding/json"
	"fixserve/src/common"
	"fixserve/src/config"
	"fixserve/src/db"
	"fixserve/src/lib"
	"fixserve/src/middlewares"
	"fixserve/src/models"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGateway struct{}

func (s *stubGateway) InitializeTransaction(amount float64, email, reference, callbackURL string, metadata map[string]string) (*lib.InitializeTransactionResponse, error) {
	return &lib.InitializeTransactionResponse{
		AuthorizationURL: "https://checkout.example.com/" + reference,
		AccessCode:       "ac_test",
		Reference:        reference,
	}, nil
}

func (s *stubGateway) VerifyTransaction(reference string) (*lib.VerifyTransactionResponse, error) {
	return &lib.VerifyTransactionResponse{Status: "success", Currency: "NGN"}, nil
}

func (s *stubGateway) ListBanks(country, currency string) ([]lib.Bank, error) {
	return []lib.Bank{{Name: "Kuda Bank", Code: "999991", Type: "nuban"}}, nil
}

func (s *stubGateway) CreateRecipient(name, accountNumber, bankCode string) (*lib.CreateRecipientResponse, error) {
	return &lib.CreateRecipientResponse{RecipientCode: "RCP_test"}, nil
}

func (s *stubGateway) CreateTransfer(amount float64, recipientCode, reference, reason string) (*lib.CreateTransferResponse, error) {
	return &lib.CreateTransferResponse{TransferCode: "TRF_test", Status: "pending"}, nil
}

func (s *stubGateway) VerifyTransfer(transferCode string) (*lib.VerifyTransferResponse, error) {
	return &lib.VerifyTransferResponse{Status: "success", TransferCode: transferCode}, nil
}

type APITestSuite struct {
	suite.Suite
	router        *gin.Engine
	clientToken   string
	providerToken string
	providerID    uint
	serviceID     uint
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(gdb.AutoMigrate(
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
	))
	db.NewDB(gdb)
	common.NewGateway(&stubGateway{})

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
	}

	router := setupRouter()
	guestAuthRoutes(router)
	paystackWebhookRoute(router)
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	authorized = serviceHandlers(authorized)
	authorized = bookingHandlers(authorized)
	authorized = paymentHandlers(authorized)
	authorized = payoutHandlers(authorized)
	reconciliationHandlers(authorized)
	s.router = router

	s.clientToken = s.register("Bola", "bola@example.com", "client")
	s.providerToken = s.register("Ade", "ade@example.com", "provider")

	var provider models.User
	s.Require().NoError(gdb.Where("email = ?", "ade@example.com").First(&provider).Error)
	s.providerID = provider.ID

	res := s.request(http.MethodPost, "/api/v1/services", s.providerToken, gin.H{
		"name":       "Pipe repair",
		"base_price": 1000,
	})
	s.Require().Equal(http.StatusCreated, res.Code)
	s.serviceID = uint(gjson.Get(res.Body.String(), "data.id").Uint())
}

func (s *APITestSuite) register(name, email, role string) string {
	res := s.request(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": "correct horse battery",
		"role":     role,
	})
	s.Require().Equal(http.StatusOK, res.Code)

	res = s.request(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "correct horse battery",
	})
	s.Require().Equal(http.StatusOK, res.Code)
	token := gjson.Get(res.Body.String(), "token").String()
	s.Require().NotEmpty(token)
	return token
}

func (s *APITestSuite) request(method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)
	return res
}

func (s *APITestSuite) createBooking() uint {
	res := s.request(http.MethodPost, "/api/v1/bookings", s.clientToken, gin.H{
		"provider_id":    s.providerID,
		"service_id":     s.serviceID,
		"scheduled_date": time.Now().Add(72 * time.Hour).Format(config.TIME_PARSE_FORMAT),
		"total_amount":   1000,
		"address":        "12 Marina Rd",
	})
	s.Require().Equal(http.StatusCreated, res.Code)
	return uint(gjson.Get(res.Body.String(), "data.id").Uint())
}

func (s *APITestSuite) TestUnauthenticatedRejected() {
	res := s.request(http.MethodGet, "/api/v1/bookings", "", nil)
	s.Equal(http.StatusUnauthorized, res.Code)
}

func (s *APITestSuite) TestRegisterDuplicateEmailConflicts() {
	res := s.request(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":     "Bola again",
		"email":    "bola@example.com",
		"password": "correct horse battery",
	})
	s.Equal(http.StatusConflict, res.Code)
}

func (s *APITestSuite) TestLoginWrongPasswordRejected() {
	res := s.request(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "bola@example.com",
		"password": "not the password",
	})
	s.Equal(http.StatusUnauthorized, res.Code)
}

func (s *APITestSuite) TestBookingFlowOverHTTP() {
	bookingId := s.createBooking()

	res := s.request(http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d/accept", bookingId), s.providerToken, nil)
	s.Require().Equal(http.StatusOK, res.Code)
	s.Equal("confirmed", gjson.Get(res.Body.String(), "data.status").String())

	res = s.request(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), s.clientToken, nil)
	s.Require().Equal(http.StatusCreated, res.Code)
	s.Contains(gjson.Get(res.Body.String(), "data.authorization_url").String(), "https://checkout.example.com/")
	reference := gjson.Get(res.Body.String(), "data.gateway_reference").String()
	s.Require().NotEmpty(reference)

	res = s.request(http.MethodGet, "/api/v1/payments/verify/"+reference, s.clientToken, nil)
	s.Require().Equal(http.StatusOK, res.Code)
	s.Equal("held_in_escrow", gjson.Get(res.Body.String(), "data.status").String())

	res = s.request(http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", bookingId), s.clientToken, nil)
	s.Require().Equal(http.StatusOK, res.Code)
	s.Equal("pending_execution", gjson.Get(res.Body.String(), "data.status").String())
}

func (s *APITestSuite) TestAcceptByWrongUserForbidden() {
	bookingId := s.createBooking()

	res := s.request(http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d/accept", bookingId), s.clientToken, nil)
	s.Equal(http.StatusForbidden, res.Code)
}

func (s *APITestSuite) TestDoublePaymentConflicts() {
	bookingId := s.createBooking()
	res := s.request(http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d/accept", bookingId), s.providerToken, nil)
	s.Require().Equal(http.StatusOK, res.Code)

	res = s.request(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), s.clientToken, nil)
	s.Require().Equal(http.StatusCreated, res.Code)
	res = s.request(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), s.clientToken, nil)
	s.Equal(http.StatusConflict, res.Code)
}

func (s *APITestSuite) TestPastScheduledDateRejected() {
	res := s.request(http.MethodPost, "/api/v1/bookings", s.clientToken, gin.H{
		"provider_id":    s.providerID,
		"service_id":     s.serviceID,
		"scheduled_date": time.Now().Add(-time.Hour).Format(config.TIME_PARSE_FORMAT),
		"total_amount":   1000,
		"address":        "12 Marina Rd",
	})
	s.Equal(http.StatusBadRequest, res.Code)
}

func (s *APITestSuite) TestAdminRoutesNeedAdminRole() {
	res := s.request(http.MethodPost, "/api/v1/admin/recovery/run", s.clientToken, nil)
	s.Equal(http.StatusForbidden, res.Code)

	res = s.request(http.MethodGet, "/api/v1/admin/settlements", s.providerToken, nil)
	s.Equal(http.StatusForbidden, res.Code)
}

func (s *APITestSuite) TestListBanks() {
	res := s.request(http.MethodGet, "/api/v1/banks", s.clientToken, nil)
	s.Require().Equal(http.StatusOK, res.Code)
	s.Equal("Kuda Bank", gjson.Get(res.Body.String(), "data.0.name").String())
}

func (s *APITestSuite) TestWebhookRejectsBadSignature() {
	payload := []byte(`{"event":"charge.success","data":{"reference":"FSV-1-x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", "deadbeef")
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)
	s.Equal(http.StatusUnauthorized, res.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
