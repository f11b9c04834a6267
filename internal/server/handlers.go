package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	fieldcrypt "github.com/fieldcrypt/client-go"
	"github.com/fieldcrypt/client-go/internal/gateway"
	"github.com/fieldcrypt/client-go/internal/merchant"
)

const defaultAmount = "1"

func (s *Server) index(c *gin.Context) {
	routes := map[string][]string{
		http.MethodDelete: {},
		http.MethodGet:    {},
		http.MethodPost:   {},
		http.MethodPut:    {},
	}
	for _, r := range s.engine.Routes() {
		routes[r.Method] = append(routes[r.Method], r.Path)
	}
	for _, paths := range routes {
		sort.Strings(paths)
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"message": "Server UP",
		"config":  s.manager.CurrentName(),
		"routes":  routes,
	})
}

func (s *Server) clientToken(c *gin.Context) {
	params := requestParams(c)
	ctx := c.Request.Context()

	_, _, gw, err := s.currentGateway()
	if err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	if customerID, ok := params["customer_id"]; ok {
		// An existing customer is fine; the token is still generated.
		if _, err := gw.CreateCustomer(ctx, customerID); err != nil && !errors.Is(err, gateway.ErrValidation) {
			c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
	}

	_, decode := params["decode"]
	tokenParams := make(map[string]string, len(params))
	for k, v := range params {
		if k != "decode" {
			tokenParams[k] = v
		}
	}

	token, err := gw.GenerateClientToken(ctx, tokenParams)
	if err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	switch {
	case decode:
		decoded, err := gateway.DecodeClientToken(token)
		if err != nil {
			c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusCreated, decoded)
	case strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON):
		c.IndentedJSON(http.StatusCreated, gin.H{"client_token": token})
	default:
		c.String(http.StatusCreated, token)
	}
}

func (s *Server) createCustomer(c *gin.Context) {
	customerID := c.Param("customer_id")

	_, _, gw, err := s.currentGateway()
	if err != nil {
		fail(c, err)
		return
	}

	result, err := gw.CreateCustomer(c.Request.Context(), customerID)
	switch {
	case err != nil:
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": gatewayMessage(err)})
	case !result.Success:
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": result.Message})
	default:
		c.IndentedJSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Customer %s created", customerID)})
	}
}

func (s *Server) nonceSale(c *gin.Context) {
	params := requestParams(c)

	nonce, ok := nonceFromParams(params)
	if !ok {
		c.IndentedJSON(http.StatusOK, gin.H{"message": missingNonceMessage()})
		return
	}

	amount := params["amount"]
	if amount == "" {
		amount = defaultAmount
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": s.sale(c, nonce, amount, params["three_d_secure_required"] != "")})
}

// sale creates a transaction and voids it straight away.
func (s *Server) sale(c *gin.Context, nonce, amount string, threeDSecureRequired bool) string {
	ctx := c.Request.Context()

	name, _, gw, err := s.currentGateway()
	if err != nil {
		return err.Error()
	}

	req := gateway.SaleRequest{
		Amount:               amount,
		PaymentMethodNonce:   nonce,
		MerchantAccountID:    s.manager.MerchantAccount(),
		ThreeDSecureRequired: threeDSecureRequired,
	}
	requestLogger(c).WithFields(log.Fields{
		"config":                  name,
		"amount":                  req.Amount,
		"merchant_account_id":     req.MerchantAccountID,
		"three_d_secure_required": req.ThreeDSecureRequired,
	}).Infoln("Creating transaction")

	result, err := gw.Sale(ctx, req)
	if err != nil {
		return gatewayMessage(err)
	}

	var voidResult *gateway.TransactionResult
	if result.Transaction != nil {
		voidResult, err = gw.Void(ctx, result.Transaction.ID)
		if err != nil {
			return gatewayMessage(err)
		}
	}

	if result.Success && voidResult != nil && voidResult.Success {
		return fmt.Sprintf("created %s %s", result.Transaction.ID, result.Transaction.Status)
	}
	if result.Message != "" || voidResult == nil {
		return result.Message
	}
	return voidResult.Message
}

func (s *Server) vault(c *gin.Context) {
	params := requestParams(c)

	customerID := params["customer_id"]
	if customerID == "" {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": "Required param: customer_id"})
		return
	}

	nonce, ok := nonceFromParams(params)
	if !ok {
		c.IndentedJSON(http.StatusOK, gin.H{"message": missingNonceMessage()})
		return
	}

	name, _, gw, err := s.currentGateway()
	if err != nil {
		c.IndentedJSON(http.StatusOK, gin.H{"message": err.Error()})
		return
	}
	requestLogger(c).WithFields(log.Fields{"config": name, "customer_id": customerID}).
		Infoln("Vaulting payment method")

	result, err := gw.CreatePaymentMethod(c.Request.Context(), customerID, nonce)
	switch {
	case err != nil:
		c.IndentedJSON(http.StatusOK, gin.H{"message": gatewayMessage(err)})
	case !result.Success || result.PaymentMethod == nil:
		c.IndentedJSON(http.StatusOK, gin.H{"message": result.Message})
	default:
		c.IndentedJSON(http.StatusOK, gin.H{"message": "Vaulted payment method " + result.PaymentMethod.Token})
	}
}

func (s *Server) listConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.manager.View())
}

func (s *Server) currentConfig(c *gin.Context) {
	_, account, err := s.manager.Current()
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, account)
}

func (s *Server) activateConfig(c *gin.Context) {
	name := c.Param("name")

	if err := s.manager.Activate(name); err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": name + " not found"})
		return
	}
	s.persist(c)
	c.IndentedJSON(http.StatusOK, gin.H{"message": name + " activated"})
}

func (s *Server) addConfig(c *gin.Context) {
	params := requestParams(c)
	name := c.Param("name")

	if s.manager.Has(name) {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": name + " already exists"})
		return
	}

	account := merchant.Account{
		Environment:   gateway.Environment(params["environment"]),
		MerchantID:    params["merchant_id"],
		PublicKey:     params["public_key"],
		PrivateKey:    params["private_key"],
		EncryptionKey: params["encryption_key"],
	}
	if err := s.checkAccount(c, account); err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	if err := s.manager.Add(name, account); err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	s.persist(c)
	c.IndentedJSON(http.StatusCreated, gin.H{"message": name + " created"})
}

// checkAccount validates an account and pings its environment.
func (s *Server) checkAccount(c *gin.Context, account merchant.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	gw, err := s.newGateway(account)
	if err != nil {
		return err
	}
	if err := gw.Ping(c.Request.Context()); err != nil {
		return errors.New(gatewayMessage(err))
	}
	return nil
}

func (s *Server) validateConfig(c *gin.Context) {
	name, account, gw, err := s.currentGateway()
	if err != nil {
		fail(c, err)
		return
	}
	if err := gw.Ping(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s is valid for %s (%s)", name, account.MerchantID, account.Environment),
	})
}

func (s *Server) merchantAccountResponse(c *gin.Context) {
	var value any
	if id := s.manager.MerchantAccount(); id != "" {
		value = id
	}
	c.IndentedJSON(http.StatusOK, gin.H{"merchant_account": value})
}

func (s *Server) getMerchantAccount(c *gin.Context) {
	s.merchantAccountResponse(c)
}

func (s *Server) setMerchantAccount(c *gin.Context) {
	s.manager.SetMerchantAccount(c.Param("merchant_account"))
	s.persist(c)
	s.merchantAccountResponse(c)
}

func (s *Server) clearMerchantAccount(c *gin.Context) {
	s.manager.SetMerchantAccount("")
	s.persist(c)
	s.merchantAccountResponse(c)
}

// encryptFields returns every request parameter as a field envelope.
func (s *Server) encryptFields(c *gin.Context) {
	params := requestParams(c)

	name, account, err := s.manager.Current()
	if err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	if account.EncryptionKey == "" {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": name + " has no encryption_key"})
		return
	}
	if len(params) == 0 {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": "No fields to encrypt"})
		return
	}

	opts := append([]fieldcrypt.Option{fieldcrypt.WithLogger(requestLogger(c))}, s.encryptOpts...)
	client, err := fieldcrypt.New(account.EncryptionKey, opts...)
	if err != nil {
		fail(c, err)
		return
	}
	fields, err := client.EncryptFields(params)
	if err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"fields": fields})
}

// gatewayMessage prefers the gateway's own message for API errors.
func gatewayMessage(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
