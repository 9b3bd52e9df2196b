package lib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"fixserve/src/types"
)

const paystackBaseURL = "https://api.paystack.co"

// Transfers require a different bank code than the one the gateway's own
// bank list displays for a handful of institutions. Codes missing from
// this table are passed through as-is.
var transferBankCodes = map[string]string{
	"999991": "50211", // Kuda
	"999992": "50515", // Moniepoint
	"50739":  "51318", // Fairmoney
}

type PaystackClient struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

var paystackClient *PaystackClient

func GetPaystackClient() *PaystackClient {
	if paystackClient != nil {
		return paystackClient
	}
	secretKey := os.Getenv("PAYSTACK_SECRET_KEY")
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = paystackBaseURL
	}
	c := NewPaystackClientWith(secretKey, baseURL, &http.Client{Timeout: 30 * time.Second})
	paystackClient = c
	return c
}

// NewPaystackClient replaces the gateway instance with a custom client implementation
func NewPaystackClient(c *PaystackClient) *PaystackClient {
	paystackClient = c
	return c
}

func NewPaystackClientWith(secretKey, baseURL string, hc *http.Client) *PaystackClient {
	return &PaystackClient{secretKey: secretKey, baseURL: baseURL, http: hc}
}

type InitializeTransactionResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyTransactionResponse struct {
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	PaidAt   string  `json:"paid_at"`
}

type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Type string `json:"type"`
}

type CreateRecipientResponse struct {
	RecipientCode string `json:"recipient_code"`
}

type CreateTransferResponse struct {
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

type VerifyTransferResponse struct {
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *PaystackClient) call(op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.secretKey))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are unknown outcomes. The
		// caller must not treat them as a confirmed failure.
		retryable := true
		var nerr net.Error
		if errors.As(err, &nerr) {
			retryable = true
		}
		var uerr *url.Error
		if errors.As(err, &uerr) {
			retryable = uerr.Timeout() || uerr.Temporary() || retryable
		}
		return &types.GatewayError{Op: op, Retryable: retryable, Err: err}
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &types.GatewayError{Op: op, Retryable: true, Err: err}
	}
	if res.StatusCode >= 500 {
		return &types.GatewayError{Op: op, Status: res.StatusCode, Message: string(raw), Retryable: true}
	}
	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &types.GatewayError{Op: op, Status: res.StatusCode, Message: "malformed gateway response", Retryable: true, Err: err}
	}
	if res.StatusCode >= 400 || !env.Status {
		return &types.GatewayError{Op: op, Status: res.StatusCode, Message: env.Message, Retryable: false}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &types.GatewayError{Op: op, Status: res.StatusCode, Message: "malformed gateway data", Retryable: true, Err: err}
		}
	}
	return nil
}

func (c *PaystackClient) InitializeTransaction(amount float64, email, reference, callbackURL string, metadata map[string]string) (*InitializeTransactionResponse, error) {
	body := map[string]any{
		// The gateway expects amounts in subunits.
		"amount":    int64(amount * 100),
		"email":     email,
		"reference": reference,
		"metadata":  metadata,
	}
	if callbackURL != "" {
		body["callback_url"] = callbackURL
	}
	var out InitializeTransactionResponse
	if err := c.call("transaction.initialize", http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PaystackClient) VerifyTransaction(reference string) (*VerifyTransactionResponse, error) {
	var out VerifyTransactionResponse
	if err := c.call("transaction.verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	out.Amount = out.Amount / 100
	return &out, nil
}

func (c *PaystackClient) ListBanks(country, currency string) ([]Bank, error) {
	var out []Bank
	path := fmt.Sprintf("/bank?country=%s&currency=%s", url.QueryEscape(country), url.QueryEscape(currency))
	if err := c.call("bank.list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaystackClient) CreateRecipient(name, accountNumber, bankCode string) (*CreateRecipientResponse, error) {
	body := map[string]any{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      TransferBankCode(bankCode),
		"currency":       "NGN",
	}
	var out CreateRecipientResponse
	if err := c.call("transferrecipient.create", http.MethodPost, "/transferrecipient", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PaystackClient) CreateTransfer(amount float64, recipientCode, reference, reason string) (*CreateTransferResponse, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    int64(amount * 100),
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}
	var out CreateTransferResponse
	if err := c.call("transfer.create", http.MethodPost, "/transfer", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PaystackClient) VerifyTransfer(transferCode string) (*VerifyTransferResponse, error) {
	var out VerifyTransferResponse
	if err := c.call("transfer.verify", http.MethodGet, "/transfer/verify/"+url.PathEscape(transferCode), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferBankCode maps a display bank code to its transfer-capable
// counterpart. Unmapped codes are returned unchanged.
func TransferBankCode(displayCode string) string {
	if mapped, ok := transferBankCodes[displayCode]; ok {
		log.Printf("[paystack] mapped bank code %s -> %s\n", displayCode, mapped)
		return mapped
	}
	return displayCode
}
