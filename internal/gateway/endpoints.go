package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const apiVersion = "6"

// Ping checks that the credentials are accepted by the environment.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/ping", Idempotent, nil, nil)
}

// CreateCustomer creates a vault customer with a caller-chosen ID.
func (c *Client) CreateCustomer(ctx context.Context, id string) (*CustomerResult, error) {
	var result CustomerResult
	body := customerBody{Customer: Customer{ID: id}}
	if err := c.do(ctx, "create_customer", http.MethodPost, "/customers", Creating, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Sale creates a transaction. A declined sale is reported through the
// result, not the error.
func (c *Client) Sale(ctx context.Context, req SaleRequest) (*TransactionResult, error) {
	body := saleBody{Transaction: saleTransaction{
		Type:               "sale",
		Amount:             req.Amount,
		PaymentMethodNonce: req.PaymentMethodNonce,
		MerchantAccountID:  req.MerchantAccountID,
	}}
	if req.ThreeDSecureRequired {
		body.Transaction.Options = &saleOptions{}
		body.Transaction.Options.ThreeDSecure.Required = true
	}

	var result TransactionResult
	if err := c.do(ctx, "sale", http.MethodPost, "/transactions", Creating, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Void cancels an unsettled transaction.
func (c *Client) Void(ctx context.Context, transactionID string) (*TransactionResult, error) {
	var result TransactionResult
	path := fmt.Sprintf("/transactions/%s/void", url.PathEscape(transactionID))
	if err := c.do(ctx, "void", http.MethodPut, path, Idempotent, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePaymentMethod vaults the payment method behind nonce for a customer.
func (c *Client) CreatePaymentMethod(ctx context.Context, customerID, nonce string) (*PaymentMethodResult, error) {
	var body paymentMethodBody
	body.PaymentMethod.CustomerID = customerID
	body.PaymentMethod.PaymentMethodNonce = nonce

	var result PaymentMethodResult
	if err := c.do(ctx, "create_payment_method", http.MethodPost, "/payment_methods", Creating, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateClientToken returns a base64 client token. params are passed
// through to the gateway unchanged.
func (c *Client) GenerateClientToken(ctx context.Context, params map[string]string) (string, error) {
	if params == nil {
		params = map[string]string{}
	}
	var result clientTokenResponse
	body := clientTokenBody{ClientToken: params}
	if err := c.do(ctx, "client_token", http.MethodPost, "/client_token", Idempotent, body, &result); err != nil {
		return "", err
	}
	return result.Value, nil
}

// DecodeClientToken base64-decodes a client token and parses its JSON.
func DecodeClientToken(token string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode client token: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse client token: %w", err)
	}
	return decoded, nil
}
