package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the public LNbits instance used when Config.Endpoint is empty.
const DefaultEndpoint = "https://lnbits.com"

const (
	apiPrefix     = "/api/v1"
	apiKeyHeader  = "X-Api-Key"
	contentTypeJS = "application/json"
)

// Config holds everything needed to construct a Client.
type Config struct {
	// AdminKey authorizes spend and balance actions.
	AdminKey string
	// InvoiceReadKey authorizes invoice creation and read-only actions.
	InvoiceReadKey string
	// Endpoint is the LNbits base URL, without the /api/v1 suffix.
	Endpoint string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the HTTP client for an LNbits wallet.
//
// A Client holds no mutable state after construction; the API key is chosen
// per request, so one Client may be shared across goroutines.
type Client struct {
	adminKey       string
	invoiceReadKey string
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient validates cfg and returns a Client bound to <endpoint>/api/v1.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AdminKey == "" {
		return nil, fmt.Errorf("admin key is required")
	}
	if cfg.InvoiceReadKey == "" {
		return nil, fmt.Errorf("invoice read key is required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: must be an absolute http(s) URL", endpoint)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	return &Client{
		adminKey:       cfg.AdminKey,
		invoiceReadKey: cfg.InvoiceReadKey,
		baseURL:        endpoint + apiPrefix,
		httpClient:     httpClient,
		logger:         logger,
	}, nil
}

// MustNewClient is like NewClient but panics if the configuration is invalid.
func MustNewClient(cfg Config) *Client {
	c, err := NewClient(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create lnbits client: %v", err))
	}
	return c
}

// BaseURL returns the API root every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type operationKey struct{}

// OperationFromRequest returns the client operation that issued r, or "" if r
// did not come from a Client. Transports use it to label requests.
func OperationFromRequest(r *http.Request) string {
	op, _ := r.Context().Value(operationKey{}).(string)
	return op
}

// do issues a single request and decodes a 2xx JSON body into out.
// The API key is set on this request's own header map only.
func (c *Client) do(ctx context.Context, op, method, path, apiKey string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	ctx = context.WithValue(ctx, operationKey{}, op)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentTypeJS)
	req.Header.Set(apiKeyHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(op, method, path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
