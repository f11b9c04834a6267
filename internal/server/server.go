// Package server is the demo merchant server: a small JSON API that drives
// the payment gateway with the active merchant account and encrypts form
// fields with that account's client-side encryption key.
package server

import (
	"context"
	"errors"
	"io"
	stdlog "log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	fieldcrypt "github.com/fieldcrypt/client-go"
	"github.com/fieldcrypt/client-go/internal/gateway"
	"github.com/fieldcrypt/client-go/internal/merchant"
)

const (
	shutdownTimeout = 5 * time.Second
	readTimeout     = 30 * time.Second
	writeTimeout    = 90 * time.Second
)

// Gateway is the part of the gateway client the handlers use.
type Gateway interface {
	Ping(ctx context.Context) error
	CreateCustomer(ctx context.Context, id string) (*gateway.CustomerResult, error)
	Sale(ctx context.Context, req gateway.SaleRequest) (*gateway.TransactionResult, error)
	Void(ctx context.Context, transactionID string) (*gateway.TransactionResult, error)
	CreatePaymentMethod(ctx context.Context, customerID, nonce string) (*gateway.PaymentMethodResult, error)
	GenerateClientToken(ctx context.Context, params map[string]string) (string, error)
}

// GatewayFactory builds a gateway client for an account.
type GatewayFactory func(account merchant.Account) (Gateway, error)

// DefaultGatewayFactory returns a gateway.Client for the account.
func DefaultGatewayFactory(logger *log.Entry) GatewayFactory {
	return func(account merchant.Account) (Gateway, error) {
		cfg := account.GatewayConfig()
		cfg.Logger = logger
		return gateway.New(cfg)
	}
}

// Option configures the server.
type Option func(*Server)

// WithGatewayFactory replaces the gateway client constructor.
func WithGatewayFactory(f GatewayFactory) Option {
	return func(s *Server) {
		s.newGateway = f
	}
}

// WithConfigPath makes account changes persist to a YAML file.
func WithConfigPath(path string) Option {
	return func(s *Server) {
		s.configPath = path
	}
}

// WithEncryptOptions sets the options of the field encryption clients.
func WithEncryptOptions(opts ...fieldcrypt.Option) Option {
	return func(s *Server) {
		s.encryptOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server serves the merchant API.
type Server struct {
	manager     *merchant.Manager
	newGateway  GatewayFactory
	configPath  string
	encryptOpts []fieldcrypt.Option
	logger      *log.Entry
	engine      *gin.Engine
}

// New creates a server over the accounts in manager.
func New(manager *merchant.Manager, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		logger:  log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newGateway == nil {
		s.newGateway = DefaultGatewayFactory(s.logger)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.
		Use(loggerMiddleware(s.logger)).
		Use(gin.CustomRecoveryWithWriter(nil, recoveryHandler()))

	s.engine = engine
	s.initEngine()
	return s
}

func (s *Server) initEngine() {
	e := s.engine

	e.GET("/", s.index)
	e.GET("/client_token", s.clientToken)
	e.PUT("/customers/:customer_id", s.createCustomer)
	e.POST("/customers/:customer_id/vault", s.vault)
	e.POST("/nonce/customer", s.nonceSale)
	e.POST("/nonce/transaction", s.nonceSale)

	e.GET("/config", s.listConfig)
	e.GET("/config/current", s.currentConfig)
	e.GET("/config/validate", s.validateConfig)
	e.POST("/config/:name/activate", s.activateConfig)
	e.PUT("/config/:name", s.addConfig)

	e.GET("/config/merchant_account", s.getMerchantAccount)
	e.PUT("/config/merchant_account/:merchant_account", s.setMerchantAccount)
	e.DELETE("/config/merchant_account", s.clearMerchantAccount)

	e.POST("/fields/encrypt", s.encryptFields)
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))

	e.NoRoute(func(c *gin.Context) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "Not found. GET / to see all routes"})
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		ErrorLog:     stdlog.New(io.Discard, "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Infoln("Stopping merchant server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// currentGateway returns the active account and a client for it.
func (s *Server) currentGateway() (string, merchant.Account, Gateway, error) {
	name, account, err := s.manager.Current()
	if err != nil {
		return "", merchant.Account{}, nil, err
	}
	gw, err := s.newGateway(account)
	if err != nil {
		return "", merchant.Account{}, nil, err
	}
	return name, account, gw, nil
}

func (s *Server) persist(c *gin.Context) {
	if s.configPath == "" {
		return
	}
	if err := s.manager.Save(s.configPath); err != nil {
		requestLogger(c).WithError(err).Errorln("Can't save merchant config")
	}
}
