package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	// CSRFCookieName is the cookie the backend issues the CSRF token in
	CSRFCookieName = "csrftoken"
	// CSRFHeader carries the token back on state-changing requests
	CSRFHeader = "X-CSRFToken"
	// SessionCookieName identifies the authenticated session
	SessionCookieName = "sessionid"
	// RequestIDHeader correlates client logs with server logs
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
)

// Client is the HTTP adapter for the task-tracking REST API. It owns the
// cookie jar (session + CSRF cookies), injects the CSRF header on unsafe
// methods and normalizes error responses. It never retries.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger

	mu           sync.RWMutex
	jar          *cookiejar.Jar
	csrfFallback string
	unauthorized []func()
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its jar is replaced by
// the client's own jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.httpClient = &cp
	}
}

// WithTimeout sets the transport timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l.With().Str("component", "http").Logger()
	}
}

// WithUnauthorizedHook registers fn to run whenever a response is 401
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) {
		c.unauthorized = append(c.unauthorized, fn)
	}
}

// New creates a new API client for the API rooted at baseURL
// (e.g. http://localhost:8000/api/).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: missing host", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	jar, err := newJar()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
		jar:        jar,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Jar = jar

	return c, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// BaseURL returns the API root, always with a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// OnUnauthorized registers fn to run whenever a response is 401
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = append(c.unauthorized, fn)
}

// CSRFToken returns the token from the csrftoken cookie, falling back to a
// token delivered in a response body. Empty when none has been obtained.
func (c *Client) CSRFToken() string {
	for _, ck := range c.Cookies() {
		if ck.Name == CSRFCookieName && ck.Value != "" {
			return ck.Value
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrfFallback
}

// SetCSRFToken records a token received in a response body
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrfFallback = token
}

// Cookies returns the cookies the jar would send to the API
func (c *Client) Cookies() []*http.Cookie {
	c.mu.RLock()
	jar := c.jar
	c.mu.RUnlock()
	return jar.Cookies(c.baseURL)
}

// SetCookies seeds the jar, e.g. from persisted storage
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	seeded := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		cp := *ck
		if cp.Path == "" {
			cp.Path = "/"
		}
		seeded = append(seeded, &cp)
	}
	c.mu.RLock()
	jar := c.jar
	c.mu.RUnlock()
	jar.SetCookies(c.baseURL, seeded)
}

// ClearCookies drops every cookie and any body-delivered CSRF token
func (c *Client) ClearCookies() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jar = jar
	c.httpClient.Jar = jar
	c.csrfFallback = ""
	return nil
}

// Get fetches path and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Send(ctx, http.MethodGet, path, nil, out)
}

// Post sends body to path and decodes the JSON response into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Send(ctx, http.MethodPost, path, body, out)
}

// Patch partially updates the resource at path
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Send(ctx, http.MethodPatch, path, body, out)
}

// Delete removes the resource at path
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Send(ctx, http.MethodDelete, path, nil, nil)
}

// Send performs one round trip. body (if non-nil) is sent as JSON and a
// successful JSON response is decoded into out (if non-nil). Failures are
// *NetworkError when no response arrived and *HTTPError otherwise.
func (c *Client) Send(ctx context.Context, method, path string, body, out any) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if isUnsafe(method) {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(CSRFHeader, token)
		}
		// Django's CSRF check compares these with the trusted origins on HTTPS.
		req.Header.Set("Origin", c.baseURL.Scheme+"://"+c.baseURL.Host)
		req.Header.Set("Referer", c.baseURL.String())
	}

	log := c.logger.With().Str("method", method).Str("path", path).Str("request_id", requestID).Logger()
	start := time.Now()

	c.mu.RLock()
	httpClient := c.httpClient
	c.mu.RUnlock()

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("request failed")
		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.fireUnauthorized()
		}
		return &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Body: respBody}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) resolve(path string) (*url.URL, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if rel.IsAbs() || rel.Host != "" {
		return nil, fmt.Errorf("invalid request path %q: must be relative to the API root", path)
	}
	return c.baseURL.ResolveReference(rel), nil
}

func (c *Client) fireUnauthorized() {
	c.mu.RLock()
	hooks := append([]func(){}, c.unauthorized...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
