package gateway

// Environment selects the gateway deployment.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentSandbox     Environment = "sandbox"
	EnvironmentProduction  Environment = "production"
)

var environmentURLs = map[Environment]string{
	EnvironmentDevelopment: "http://localhost:3000",
	EnvironmentSandbox:     "https://api.sandbox.braintreegateway.com",
	EnvironmentProduction:  "https://api.braintreegateway.com",
}

// BaseURL returns the API root for the environment.
func (e Environment) BaseURL() (string, bool) {
	u, ok := environmentURLs[e]
	return u, ok
}

// Customer is a vault customer.
type Customer struct {
	ID string `json:"id"`
}

// Transaction is a sale as reported by the gateway.
type Transaction struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Amount            string `json:"amount"`
	MerchantAccountID string `json:"merchant_account_id,omitempty"`
}

// PaymentMethod is a vaulted payment method.
type PaymentMethod struct {
	Token      string `json:"token"`
	CustomerID string `json:"customer_id"`
}

// SaleRequest creates a transaction from a payment method nonce.
type SaleRequest struct {
	Amount             string
	PaymentMethodNonce string
	// MerchantAccountID is passed through when set.
	MerchantAccountID string
	// ThreeDSecureRequired fails the sale unless 3D Secure succeeded.
	ThreeDSecureRequired bool
}

// Result is the outcome of a gateway call that can be refused without an
// HTTP error, such as a declined sale.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TransactionResult is returned by Sale and Void. Transaction may be set
// even when Success is false.
type TransactionResult struct {
	Result
	Transaction *Transaction `json:"transaction,omitempty"`
}

// PaymentMethodResult is returned by CreatePaymentMethod.
type PaymentMethodResult struct {
	Result
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
}

// CustomerResult is returned by CreateCustomer.
type CustomerResult struct {
	Result
	Customer *Customer `json:"customer,omitempty"`
}

type saleBody struct {
	Transaction saleTransaction `json:"transaction"`
}

type saleTransaction struct {
	Type               string       `json:"type"`
	Amount             string       `json:"amount"`
	PaymentMethodNonce string       `json:"payment_method_nonce"`
	MerchantAccountID  string       `json:"merchant_account_id,omitempty"`
	Options            *saleOptions `json:"options,omitempty"`
}

type saleOptions struct {
	ThreeDSecure struct {
		Required bool `json:"required"`
	} `json:"three_d_secure"`
}

type customerBody struct {
	Customer Customer `json:"customer"`
}

type paymentMethodBody struct {
	PaymentMethod struct {
		CustomerID         string `json:"customer_id"`
		PaymentMethodNonce string `json:"payment_method_nonce"`
	} `json:"payment_method"`
}

type clientTokenBody struct {
	ClientToken map[string]string `json:"client_token"`
}

type clientTokenResponse struct {
	Value string `json:"value"`
}
