package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/brojonat/lnbits/client"
)

// DefaultLogLevel applies when LOG_LEVEL is unset.
const DefaultLogLevel = "info"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// LNbits configuration
	AdminKey       string
	InvoiceReadKey string
	Endpoint       string
	Timeout        time.Duration

	LogLevel string

	// Optional integrations; empty disables them.
	NATSURL     string
	MetricsAddr string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.AdminKey = os.Getenv("LNBITS_ADMIN_KEY")
	if cfg.AdminKey == "" {
		errs = append(errs, fmt.Errorf("LNBITS_ADMIN_KEY is required"))
	}

	cfg.InvoiceReadKey = os.Getenv("LNBITS_INVOICE_READ_KEY")
	if cfg.InvoiceReadKey == "" {
		errs = append(errs, fmt.Errorf("LNBITS_INVOICE_READ_KEY is required"))
	}

	cfg.Endpoint = getEnvOrDefault("LNBITS_ENDPOINT", client.DefaultEndpoint)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", DefaultLogLevel)
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	timeout, err := parseDuration("LNBITS_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Timeout = timeout
	}

	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("LNBITS_TIMEOUT cannot be negative"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
// This is useful for configuration assembled from flags rather than env.
func (c *Config) Validate() error {
	var errs []error

	if c.AdminKey == "" {
		errs = append(errs, fmt.Errorf("AdminKey is required"))
	}

	if c.InvoiceReadKey == "" {
		errs = append(errs, fmt.Errorf("InvoiceReadKey is required"))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("Timeout cannot be negative"))
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LogLevel %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ClientConfig converts c into the wallet client's configuration.
// A zero Timeout leaves the HTTP client without a deadline.
func (c *Config) ClientConfig(transport http.RoundTripper, logger *slog.Logger) client.Config {
	return client.Config{
		AdminKey:       c.AdminKey,
		InvoiceReadKey: c.InvoiceReadKey,
		Endpoint:       c.Endpoint,
		HTTPClient: &http.Client{
			Timeout:   c.Timeout,
			Transport: transport,
		},
		Logger: logger,
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
