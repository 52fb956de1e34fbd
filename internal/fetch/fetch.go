// Package fetch retrieves page markup over HTTP with per-request timeouts,
// bounded retry on transient network failures, and a content-type gate that
// only lets HTML-family responses through.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Kind classifies a fetch failure. Only timeouts and refused/reset
// connections are retried, up to Client.MaxAttempts; every other kind —
// HTTP status, content type, DNS, TLS, redirect-cap — is terminal for the
// URL.
type Kind int

const (
	KindTimeout Kind = iota
	KindConnection
	KindHTTPStatus
	KindContentType
	KindTransport
	KindInvalidURL
)

// Error is the typed outcome of a failed fetch. It is recorded against the
// candidate and never escalated past the gather boundary.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("fetch timeout: %s", e.URL)
	case KindConnection:
		return fmt.Sprintf("fetch connection error: %s: %v", e.URL, e.Err)
	case KindHTTPStatus:
		return fmt.Sprintf("fetch status %d: %s", e.Status, e.URL)
	case KindContentType:
		return fmt.Sprintf("fetch non-HTML content: %s", e.URL)
	case KindTransport:
		return fmt.Sprintf("fetch transport error: %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch invalid url: %s: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultUserAgent is a generic browser-like identification header used to
// reduce trivial blocking of programmatic fetches.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client fetches page markup with timeouts and limited retry.
type Client struct {
	HTTPClient *http.Client
	// UserAgent defaults to DefaultUserAgent when empty.
	UserAgent string
	// MaxAttempts includes the initial attempt. Minimum 1, default 3.
	MaxAttempts int
	// Timeout bounds each individual request attempt. Default 30s.
	Timeout time.Duration
	// BackoffMin/BackoffMax bound the exponential backoff between retries.
	// Defaults 2s and 10s.
	BackoffMin time.Duration
	BackoffMax time.Duration
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per client instance. Zero
	// means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

// Get fetches the URL and returns the raw markup. A nil error guarantees an
// HTML-family 2xx response body. All failures are *Error.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	var lastErr *Error
	for i := 0; i < attempts; i++ {
		body, ferr := c.tryOnce(ctx, rawURL)
		if ferr == nil {
			return body, nil
		}
		lastErr = ferr
		if !transient(ferr) || i == attempts-1 {
			return nil, ferr
		}
		select {
		case <-time.After(c.backoff(i)):
		case <-ctx.Done():
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// transient reports whether the failure is worth another attempt. Only
// network-level timeouts and connection failures qualify.
func transient(e *Error) bool {
	return e.Kind == KindTimeout || e.Kind == KindConnection
}

// backoff returns the delay before retry attempt i+1, doubling from
// BackoffMin and capped at BackoffMax.
func (c *Client) backoff(i int) time.Duration {
	min, max := c.BackoffMin, c.BackoffMax
	if min <= 0 {
		min = 2 * time.Second
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	d := min << uint(i)
	if d > max {
		d = max
	}
	return d
}

func (c *Client) tryOnce(ctx context.Context, rawURL string) ([]byte, *Error) {
	c.acquire()
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: errors.New("unsupported scheme")}
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	req = req.WithContext(reqCtx)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, classifyTransport(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, URL: rawURL, Status: resp.StatusCode}
	}
	if !isHTMLContentType(resp.Header.Get("Content-Type")) {
		return nil, &Error{Kind: KindContentType, URL: rawURL, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(rawURL, err)
	}
	return body, nil
}

// classifyTransport maps a transport error to a typed outcome. Timeouts and
// refused/reset connections are the retryable cases; anything else (DNS,
// TLS, redirect cap) fails the URL on the spot.
func classifyTransport(rawURL string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	// Resets can surface as an abrupt EOF mid-body.
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: KindConnection, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindTransport, URL: rawURL, Err: err}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach the redirect policy without mutating the
		// caller's client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
