package common

import "fixserve/src/lib"

// PaymentGateway is the slice of the processor API the core flows use.
// *lib.PaystackClient satisfies it; tests swap in a fake via NewGateway.
type PaymentGateway interface {
	InitializeTransaction(amount float64, email, reference, callbackURL string, metadata map[string]string) (*lib.InitializeTransactionResponse, error)
	VerifyTransaction(reference string) (*lib.VerifyTransactionResponse, error)
	ListBanks(country, currency string) ([]lib.Bank, error)
	CreateRecipient(name, accountNumber, bankCode string) (*lib.CreateRecipientResponse, error)
	CreateTransfer(amount float64, recipientCode, reference, reason string) (*lib.CreateTransferResponse, error)
	VerifyTransfer(transferCode string) (*lib.VerifyTransferResponse, error)
}

var gateway PaymentGateway

func Gateway() PaymentGateway {
	if gateway != nil {
		return gateway
	}
	gateway = lib.GetPaystackClient()
	return gateway
}

// NewGateway replaces the gateway with a custom implementation
func NewGateway(g PaymentGateway) {
	gateway = g
}
