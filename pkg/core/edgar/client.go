// Package edgar provides the HTTP client for SEC EDGAR archive retrieval.
//
// EDGAR is a public, rate-limited service. The SEC asks for a descriptive
// User-Agent and enforces a per-client request-rate ceiling, and it serves
// some failures as HTTP 200 HTML pages rather than status codes. This
// client centralizes all of that: one shared token-bucket limiter across
// every caller, bounded retry with a backoff ladder on transient errors,
// and body sniffing for the known EDGAR error pages.
package edgar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultArchiveURL is the EDGAR archive host.
	DefaultArchiveURL = "https://www.sec.gov/Archives/"

	// DefaultUserAgent per SEC guidelines; override with a real contact.
	DefaultUserAgent = "openedgar/1.0 (contact@example.com)"
)

// EDGAR serves these failure pages with HTTP 200.
var (
	rateThresholdMarker = []byte("SEC.gov | Request Rate Threshold Exceeded")
	notFoundMarker      = []byte("SEC.gov | File Not Found Error Alert (404)")
	accessDeniedMarker  = []byte("<Error><Code>AccessDenied</Code><Message>Access Denied</Message>")
)

// DefaultRetryBackoff is the sleep ladder between retry attempts.
var DefaultRetryBackoff = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second, 30 * time.Second}

// ClientOptions configures a Client. Zero values fall back to defaults.
type ClientOptions struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	RetryBackoff      []time.Duration
}

// Client fetches paths from the EDGAR archive.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	backoff    []time.Duration
}

// NewClient creates an EDGAR archive client.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultArchiveURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		// Stay under the SEC's published 10 req/s ceiling.
		opts.RequestsPerSecond = 8
	}
	if opts.Burst == 0 {
		opts.Burst = 2
	}
	if opts.RetryBackoff == nil {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		backoff:    opts.RetryBackoff,
	}
}

// GetBuffer retrieves a path relative to the archive base into memory.
// Transient failures are retried with the backoff ladder; permanent
// failures (404, access denied) surface immediately as NotFoundError.
func (c *Client) GetBuffer(ctx context.Context, remotePath string) ([]byte, error) {
	remoteURL, err := url.JoinPath(c.baseURL, remotePath)
	if err != nil {
		return nil, fmt.Errorf("invalid remote path %q: %w", remotePath, err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		body, err := c.fetch(ctx, remoteURL)
		if err == nil {
			return body, nil
		}
		if IsNotFound(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// fetch performs a single rate-limited request.
func (c *Client) fetch(ctx context.Context, remoteURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: remoteURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Key: remoteURL}
	case resp.StatusCode == http.StatusForbidden:
		return nil, &NotFoundError{Key: remoteURL}
	case resp.StatusCode != http.StatusOK:
		return nil, &NetworkError{URL: remoteURL, Err: fmt.Errorf("EDGAR returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: remoteURL, Err: err}
	}

	// EDGAR error pages come back as 200s; check the body.
	if bytes.Contains(body, rateThresholdMarker) {
		return nil, &NetworkError{URL: remoteURL, Err: fmt.Errorf("request rate threshold exceeded")}
	}
	if bytes.Contains(body, notFoundMarker) {
		return nil, &NotFoundError{Key: remoteURL}
	}
	if bytes.Contains(body, accessDeniedMarker) {
		return nil, &NotFoundError{Key: remoteURL}
	}

	return body, nil
}

// CIKPath returns the archive path for a company's filing directory.
func CIKPath(cik int64) string {
	return fmt.Sprintf("edgar/data/%d/", cik)
}
