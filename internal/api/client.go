// Package api implements the HTTP client for the remote audit REST API:
// bearer-token auth, per-request timeouts, and the error-kind classifier
// the sync engine branches retry behavior on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldvisor/auditsync/internal/logging"
)

// DefaultTimeout bounds every replay call so a stuck request cannot block
// the single-flight drain cycle indefinitely.
const DefaultTimeout = 20 * time.Second

// Caller is the surface the sync engine and the progress store depend on.
type Caller interface {
	// Do performs one call against the audit API. A non-nil error is
	// always an *Error carrying its classification.
	Do(ctx context.Context, method, endpoint string, payload json.RawMessage) error
}

// Client talks to the remote audit API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logging.Logger

	// onAuthExpired is invoked when a call fails with an expired-token
	// signal (or the stored token is already past its exp claim). The auth
	// collaborator clears local auth state and forces re-login; the sync
	// engine only sees a non-retryable error.
	onAuthExpired func(ctx context.Context)
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

func WithClientLogger(log logging.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

func WithAuthExpiredHandler(fn func(ctx context.Context)) ClientOption {
	return func(c *Client) { c.onAuthExpired = fn }
}

func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		log:     logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs one authenticated call. Failures are returned as *Error; the
// response body is drained and discarded on success.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload json.RawMessage) error {
	_, err := c.roundTrip(ctx, method, endpoint, payload)
	return err
}

// Get performs a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	body, err := c.roundTrip(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindPermanent, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, payload json.RawMessage) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &Error{Kind: KindPermanent, Message: fmt.Sprintf("token source: %v", err)}
	}
	if token != "" && TokenExpired(token, time.Now()) {
		c.expireSession(ctx)
		return nil, &Error{Kind: KindAuthExpired, Message: "stored token is expired"}
	}

	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint), body)
	if err != nil {
		return nil, &Error{Kind: KindPermanent, Message: err.Error()}
	}
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	apiErr := classifyResponse(resp.StatusCode, respBody)
	if apiErr.Kind == KindAuthExpired {
		c.expireSession(ctx)
	}
	c.log.Debug(ctx, "api call failed",
		"method", method, "endpoint", endpoint, "status", resp.StatusCode, "kind", apiErr.Kind.String())
	return nil, apiErr
}

func (c *Client) expireSession(ctx context.Context) {
	c.log.Warn(ctx, "access token expired, invalidating session")
	if c.onAuthExpired != nil {
		c.onAuthExpired(ctx)
	}
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// Typed helpers for the audit resource. Endpoints mirror the remote API:
// create, get, update progress, terminal submit, and status change.

func AuditEndpoint(auditID string, parts ...string) string {
	segs := append([]string{"audits", url.PathEscape(auditID)}, parts...)
	return "/" + strings.Join(segs, "/")
}

func (c *Client) CreateAudit(ctx context.Context, payload json.RawMessage) error {
	return c.Do(ctx, http.MethodPost, "/audits", payload)
}

func (c *Client) GetAudit(ctx context.Context, auditID string, out any) error {
	return c.Get(ctx, AuditEndpoint(auditID), out)
}

func (c *Client) UpdateProgress(ctx context.Context, auditID string, payload json.RawMessage) error {
	return c.Do(ctx, http.MethodPut, AuditEndpoint(auditID, "progress"), payload)
}

func (c *Client) SubmitAudit(ctx context.Context, auditID string, payload json.RawMessage) error {
	return c.Do(ctx, http.MethodPost, AuditEndpoint(auditID, "submit"), payload)
}

func (c *Client) ChangeStatus(ctx context.Context, auditID string, payload json.RawMessage) error {
	return c.Do(ctx, http.MethodPost, AuditEndpoint(auditID, "status"), payload)
}
