// Package client is the Go SDK for the fulfild session engine.
//
// The server owns all session state; this client is a thin wrapper over the
// JSON API plus an optional resumption cache that lets a buyer pick up an
// in-flight session after a page reload or client restart.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Entity is one completion step in a session, as reported by the server.
type Entity struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Completed bool   `json:"completed"`
}

// Session is the server's view of a fulfilment session.
type Session struct {
	SessionID    string    `json:"session_id"`
	ResourceID   string    `json:"resource_id"`
	Quantity     int       `json:"quantity"`
	CurrentIndex int       `json:"current_index"`
	Entities     []Entity  `json:"entities"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Client talks to a fulfild server.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger
}

// New creates a Client. It reads the server address from the
// FULFIL_SERVER_ADDR environment variable by default; options override.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: os.Getenv("FULFIL_SERVER_ADDR"),
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

type initSessionRequest struct {
	ResourceID  string   `json:"resource_id"`
	Quantity    int      `json:"quantity"`
	EntityTypes []string `json:"entity_types"`
}

type indexResponse struct {
	CurrentIndex int `json:"current_index"`
}

type updatePaymentRequest struct {
	EntityID    string `json:"entity_id"`
	CheckoutRef string `json:"checkout_ref"`
}

type updateFormResponseRequest struct {
	EntityID   string `json:"entity_id"`
	FormID     string `json:"form_id"`
	ResponseID string `json:"response_id"`
}

type updateWaitlistRequest struct {
	EntityID string `json:"entity_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// InitSession creates a new session for the given resource, quantity, and
// step sequence. On success the session ID is stored in the resumption
// cache, if one is configured.
func (c *Client) InitSession(ctx context.Context, resourceID string, quantity int, entityTypes []string) (*Session, error) {
	var sess Session
	req := initSessionRequest{ResourceID: resourceID, Quantity: quantity, EntityTypes: entityTypes}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sessions", req, &sess); err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Store(Key{ResourceID: resourceID, Quantity: quantity}, sess.SessionID)
	}
	return &sess, nil
}

// GetSessionInfo fetches the current state of a session.
func (c *Client) GetSessionInfo(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession terminates a session. Deleting a session that no longer
// exists is not an error.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/v1/sessions/"+sessionID, nil, nil)
}

// NextEntity advances the session to the next step and returns the new
// current index. Returns ErrInvalidTransition when the current step is not
// yet complete. At the terminal step it is a no-op.
func (c *Client) NextEntity(ctx context.Context, sessionID string) (int, error) {
	var resp indexResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID+"/next", nil, &resp); err != nil {
		return 0, err
	}
	return resp.CurrentIndex, nil
}

// PrevEntity moves the session back one step and returns the new current
// index. Backward navigation is never gated; at the first step it is a no-op.
func (c *Client) PrevEntity(ctx context.Context, sessionID string) (int, error) {
	var resp indexResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID+"/prev", nil, &resp); err != nil {
		return 0, err
	}
	return resp.CurrentIndex, nil
}

// UpdatePayment records a completed checkout on a payment step.
func (c *Client) UpdatePayment(ctx context.Context, sessionID, entityID, checkoutRef string) error {
	req := updatePaymentRequest{EntityID: entityID, CheckoutRef: checkoutRef}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/sessions/"+sessionID+"/payment", req, nil)
}

// UpdateDelayedPayment records a completed deferred checkout on a
// delayed-payment step.
func (c *Client) UpdateDelayedPayment(ctx context.Context, sessionID, entityID, checkoutRef string) error {
	req := updatePaymentRequest{EntityID: entityID, CheckoutRef: checkoutRef}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/sessions/"+sessionID+"/delayed-payment", req, nil)
}

// UpdateFormResponse records a form submission on a form step.
func (c *Client) UpdateFormResponse(ctx context.Context, sessionID, entityID, formID, responseID string) error {
	req := updateFormResponseRequest{EntityID: entityID, FormID: formID, ResponseID: responseID}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/sessions/"+sessionID+"/form-response", req, nil)
}

// UpdateWaitlist records a waitlist signup on a waitlist step.
func (c *Client) UpdateWaitlist(ctx context.Context, sessionID, entityID, fullName, email string) error {
	req := updateWaitlistRequest{EntityID: entityID, FullName: fullName, Email: email}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/sessions/"+sessionID+"/waitlist", req, nil)
}

// EnsureSession returns a live session for the given transaction, resuming a
// cached one when possible. A cache hit is verified with GetSessionInfo; if
// the server no longer knows the session, the stale entry is cleared and a
// fresh session is created. Without a cache this is equivalent to InitSession.
func (c *Client) EnsureSession(ctx context.Context, resourceID string, quantity int, entityTypes []string) (*Session, error) {
	if c.cache != nil {
		key := Key{ResourceID: resourceID, Quantity: quantity}
		if sessionID, ok := c.cache.Get(key); ok {
			sess, err := c.GetSessionInfo(ctx, sessionID)
			if err == nil {
				c.logger.Debug("resumed cached session", "session_id", sessionID)
				return sess, nil
			}
			if !errors.Is(err, ErrSessionNotFound) {
				return nil, err
			}
			// Session expired or deleted server-side.
			c.cache.Clear(key)
		}
	}
	return c.InitSession(ctx, resourceID, quantity, entityTypes)
}

// doRequest performs an HTTP request against the fulfild server. Non-2xx
// responses are decoded into an *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	url := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return parseAPIError(httpResp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// parseAPIError decodes the server's error body. A body that doesn't match
// the error schema still yields an APIError with the raw text as message.
func parseAPIError(statusCode int, body []byte) error {
	var wire struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Code != "" {
		return &APIError{StatusCode: statusCode, Code: wire.Error.Code, Message: wire.Error.Message}
	}
	return &APIError{
		StatusCode: statusCode,
		Code:       fmt.Sprintf("http_%d", statusCode),
		Message:    strings.TrimSpace(string(body)),
	}
}
