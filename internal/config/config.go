package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	GatewayBaseURL     string
	GatewayAccessToken string
	WebhookSecret      string
	PublicBaseURL      string
	NotificationURL    string
	GatewayTimeout     time.Duration
	SweepInterval      time.Duration
	SweepAge           time.Duration
	SweepBatch         int
	WorkerPoolSize     int
	ShutdownTimeout    time.Duration
}

const (
	defaultRunAddress      = ":8080"
	defaultPublicBaseURL   = "http://localhost:8080"
	defaultGatewayTimeout  = 10 * time.Second
	defaultSweepInterval   = 30 * time.Second
	defaultSweepAge        = 5 * time.Minute
	defaultSweepBatch      = 32
	defaultWorkerPoolSize  = 4
	defaultShutdownTimeout = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		GatewayBaseURL:     getString(lookup, "GATEWAY_BASE_URL", ""),
		GatewayAccessToken: getString(lookup, "GATEWAY_ACCESS_TOKEN", ""),
		WebhookSecret:      getString(lookup, "GATEWAY_WEBHOOK_SECRET", ""),
		PublicBaseURL:      getString(lookup, "PUBLIC_BASE_URL", defaultPublicBaseURL),
		NotificationURL:    getString(lookup, "NOTIFICATION_URL", ""),
		GatewayTimeout:     getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		SweepInterval:      getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepAge:           getDuration(lookup, "SWEEP_AGE", defaultSweepAge),
		SweepBatch:         getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatch),
		WorkerPoolSize:     getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("pagoflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		sweepIntervalStr   = cfg.SweepInterval.String()
		sweepAgeStr        = cfg.SweepAge.String()
		gatewayTimeoutStr  = cfg.GatewayTimeout.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.GatewayBaseURL, "g", cfg.GatewayBaseURL, "Payment gateway base URL")
	fs.StringVar(&cfg.GatewayAccessToken, "gateway-token", cfg.GatewayAccessToken, "Payment gateway access token")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Secret for verifying gateway webhook signatures")
	fs.StringVar(&cfg.PublicBaseURL, "public-url", cfg.PublicBaseURL, "Public base URL used to build gateway return URLs")
	fs.StringVar(&cfg.NotificationURL, "notification-url", cfg.NotificationURL, "Optional HTTP sink for notification requests")
	fs.StringVar(&gatewayTimeoutStr, "gateway-timeout", gatewayTimeoutStr, "Per-call gateway timeout")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between reconciliation sweeps")
	fs.StringVar(&sweepAgeStr, "sweep-age", sweepAgeStr, "Minimum age of unsettled payments picked up by the sweeper")
	fs.IntVar(&cfg.SweepBatch, "sweep-batch", cfg.SweepBatch, "Maximum payments per reconciliation sweep")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent sweep workers")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.SweepAge, err = time.ParseDuration(sweepAgeStr); err != nil {
		return nil, fmt.Errorf("invalid sweep age: %w", err)
	}

	if cfg.GatewayTimeout, err = time.ParseDuration(gatewayTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if tokenFile, ok := lookup("GATEWAY_ACCESS_TOKEN_FILE"); ok && tokenFile != "" {
		content, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read gateway token file: %w", err)
		}
		cfg.GatewayAccessToken = string(content)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.SweepAge <= 0 {
		cfg.SweepAge = defaultSweepAge
	}

	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	// Missing gateway credentials fail here, at startup, so checkout never
	// discovers them lazily as a generic network error.
	if cfg.GatewayBaseURL == "" || cfg.GatewayAccessToken == "" {
		return nil, fmt.Errorf("gateway credentials must be provided: %w", domainErrors.ErrNotConfigured)
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret must be provided: %w", domainErrors.ErrNotConfigured)
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
