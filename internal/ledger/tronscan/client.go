// Package tronscan implements the ledger upstreams on top of the public
// Tronscan API.
package tronscan

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/walletvet/walletvet/internal/ledger"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

const (
	// DefaultBaseURL is the Tronscan API base URL.
	DefaultBaseURL = "https://apilist.tronscanapi.com/api"

	// DefaultUSDTContract is the official USDT-TRC20 contract.
	DefaultUSDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

	// APIKeyHeader carries the optional Tronscan API key.
	APIKeyHeader = "TRON-PRO-API-KEY"

	// httpTimeout is the default HTTP request timeout.
	httpTimeout = 10 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20
)

// Compile-time interface checks
var (
	_ ledger.FactsSource         = (*Client)(nil)
	_ ledger.RiskSource          = (*Client)(nil)
	_ ledger.FirstActivitySource = (*Client)(nil)
)

// Client is a Tronscan API client serving both wallet facts and risk flags.
// It performs exactly one HTTP exchange per upstream call; rate limiting and
// retries belong to the ledger client wrapped around it.
type Client struct {
	apiKey       string
	baseURL      string
	usdtContract string
	httpClient   *http.Client
	logger       ledger.Logger
}

// ClientOptions configures the Tronscan client.
type ClientOptions struct {
	// APIKey is sent in the TRON-PRO-API-KEY header when set.
	APIKey string
	// BaseURL overrides the default API URL (useful for testing).
	BaseURL string
	// USDTContract overrides the token contract read as the wallet balance.
	USDTContract string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// Timeout overrides the default HTTP timeout. Ignored with HTTPClient.
	Timeout time.Duration
	// Logger receives request-level debug output.
	Logger ledger.Logger
}

// NewClient creates a new Tronscan API client.
func NewClient(opts *ClientOptions) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		usdtContract: DefaultUSDTContract,
		logger:       ledger.NopLogger{},
	}

	timeout := httpTimeout
	if opts != nil {
		c.apiKey = opts.APIKey
		if opts.BaseURL != "" {
			c.baseURL = opts.BaseURL
		}
		if opts.USDTContract != "" {
			c.usdtContract = opts.USDTContract
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.Logger != nil {
			c.logger = opts.Logger
		}
	}

	c.httpClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
	if opts != nil && opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}

	return c
}

// doRequest performs a GET on path and decodes the JSON body into out.
//
// HTTP 429 fails with ErrUpstreamRateLimited, 5xx and transport failures are
// marked retryable, any other non-200 status fails with
// ErrUpstreamUnavailable and undecodable bodies with
// ErrUpstreamMalformedResponse.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set(APIKeyHeader, c.apiKey)
	}

	c.logger.Debug("tronscan: GET %s?%s", path, params.Encode())

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // G704: URL is constructed from validated config, not user input
	if err != nil {
		return ledger.WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return ledger.WrapRetryable(fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		details := map[string]string{"status": strconv.Itoa(resp.StatusCode)}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			details["retry_after"] = ra
		}
		return veterr.WithDetails(veterr.ErrUpstreamRateLimited, details)
	case resp.StatusCode >= http.StatusInternalServerError:
		return ledger.WrapRetryable(veterr.WithDetails(veterr.ErrUpstreamUnavailable, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
			"body":   truncateBody(string(body), 512),
		}))
	case resp.StatusCode != http.StatusOK:
		return veterr.WithDetails(veterr.ErrUpstreamUnavailable, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
			"body":   truncateBody(string(body), 512),
		})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return veterr.WithDetails(veterr.WithCause(veterr.ErrUpstreamMalformedResponse, err), map[string]string{
			"path": path,
			"body": truncateBody(string(body), 256),
		})
	}

	return nil
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
