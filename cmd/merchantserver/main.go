// Command merchantserver runs the merchant HTTP server: it keeps a set of
// gateway accounts in a YAML file, proxies customer and transaction calls to
// the active account, and encrypts card fields with the account's key.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	fieldcrypt "github.com/fieldcrypt/client-go"
	"github.com/fieldcrypt/client-go/internal/crypto"
	"github.com/fieldcrypt/client-go/internal/gateway"
	"github.com/fieldcrypt/client-go/internal/merchant"
	"github.com/fieldcrypt/client-go/internal/server"
)

const serviceName = "merchantserver"

const (
	defaultAddr       = "127.0.0.1:4567"
	defaultConfigPath = "merchant.yml"
)

// options are the resolved command line settings.
type options struct {
	addr      string
	config    string
	logLevel  string
	logFormat string
	clientID  string
	collect   time.Duration
}

// parseOptions reads flags, then fills anything left unset from the
// environment and finally from the defaults.
func parseOptions(args []string, getenv func(string) string, output io.Writer) (*options, error) {
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	flags.SetOutput(output)

	opts := &options{}
	envFile := flags.String("env-file", "", "load environment variables from FILE")
	flags.StringVar(&opts.addr, "addr", "", "listen address ($FIELDCRYPT_ADDR, default "+defaultAddr+")")
	flags.StringVar(&opts.config, "config", "", "merchant accounts YAML file ($FIELDCRYPT_CONFIG, default "+defaultConfigPath+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error ($FIELDCRYPT_LOG_LEVEL, default info)")
	flags.StringVar(&opts.logFormat, "log-format", "", "text or json ($FIELDCRYPT_LOG_FORMAT, default text)")
	flags.StringVar(&opts.clientID, "client-id", "", "client ID written into envelopes ($FIELDCRYPT_CLIENT_ID)")
	collect := flags.String("collect-interval", "", "entropy collector tick ($FIELDCRYPT_COLLECT_INTERVAL, default "+fieldcrypt.DefaultCollectInterval.String()+")")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if *envFile != "" {
		env, err := godotenv.Read(*envFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		parent := getenv
		getenv = func(key string) string {
			if v := parent(key); v != "" {
				return v
			}
			return env[key]
		}
	}

	fallback(&opts.addr, getenv("FIELDCRYPT_ADDR"), defaultAddr)
	fallback(&opts.config, getenv("FIELDCRYPT_CONFIG"), defaultConfigPath)
	fallback(&opts.logLevel, getenv("FIELDCRYPT_LOG_LEVEL"), "info")
	fallback(&opts.logFormat, getenv("FIELDCRYPT_LOG_FORMAT"), "text")
	fallback(&opts.clientID, getenv("FIELDCRYPT_CLIENT_ID"), fieldcrypt.DefaultClientID)
	if err := crypto.ValidateTag(opts.clientID, fieldcrypt.Version); err != nil {
		return nil, err
	}

	fallback(collect, getenv("FIELDCRYPT_COLLECT_INTERVAL"), fieldcrypt.DefaultCollectInterval.String())
	interval, err := time.ParseDuration(*collect)
	if err != nil {
		return nil, fmt.Errorf("collect interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("collect interval must be positive, got %s", interval)
	}
	opts.collect = interval
	return opts, nil
}

func fallback(dst *string, values ...string) {
	for _, v := range values {
		if *dst != "" {
			return
		}
		*dst = v
	}
}

func configureLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// loadAccounts reads the account file. A missing file starts an empty set
// that is created on the first change.
func loadAccounts(path string, logger *log.Entry) (*merchant.Manager, error) {
	manager, err := merchant.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WithField("config", path).Infoln("No merchant config yet, starting empty")
		return merchant.NewManager(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load merchant config: %w", err)
	}
	return manager, nil
}

func run(ctx context.Context, args []string, getenv func(string) string) error {
	opts, err := parseOptions(args, getenv, log.StandardLogger().Out)
	if err != nil {
		return err
	}
	if err := configureLogging(opts.logLevel, opts.logFormat); err != nil {
		return err
	}
	logger := log.WithField("service", serviceName)

	manager, err := loadAccounts(opts.config, logger)
	if err != nil {
		return err
	}

	fieldcrypt.RegisterMetrics()
	gateway.RegisterMetrics()
	server.RegisterMetrics()

	if err := fieldcrypt.StartCollectors(ctx, opts.collect); err != nil {
		return err
	}
	defer fieldcrypt.StopCollectors()

	listener, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.addr, err)
	}

	srv := server.New(manager,
		server.WithLogger(logger),
		server.WithConfigPath(opts.config),
		server.WithEncryptOptions(fieldcrypt.WithClientID(opts.clientID)),
	)

	logger.WithFields(log.Fields{
		"addr":     listener.Addr().String(),
		"config":   opts.config,
		"accounts": len(manager.List()),
		"collect":  opts.collect.String(),
	}).Infoln("Merchant server listening")
	return srv.Serve(ctx, listener)
}
