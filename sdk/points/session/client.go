package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Client talks to the authentication endpoints of a points backend. It
// holds a cookie jar so the session cookie set by Login flows into
// subsequent Verify, Refresh, and Logout calls.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the backend at baseURL (no trailing
// slash). The underlying http.Client carries a fresh cookie jar.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithHTTP creates a Client using a caller-supplied http.Client,
// for tests and embeddings with their own transport.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// NonceResponse is the body of GET /api/auth/nonce/.
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// LoginRequest is the body of POST /api/auth/login/.
type LoginRequest struct {
	Message      string `json:"message"`
	Signature    string `json:"signature"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Authenticated bool   `json:"authenticated"`
	Address       string `json:"address"`
	UserID        uint   `json:"user_id"`
	Created       bool   `json:"created"`
	ReferralCode  string `json:"referral_code,omitempty"`
	ReferredBy    string `json:"referred_by,omitempty"`
}

// VerifyResponse is the body of GET /api/auth/verify/. The endpoint never
// errors; Authenticated false covers missing and expired sessions alike.
type VerifyResponse struct {
	Authenticated bool   `json:"authenticated"`
	Address       string `json:"address,omitempty"`
	UserID        uint   `json:"user_id,omitempty"`
}

// Nonce fetches a fresh single-use nonce for the sign-in challenge.
func (c *Client) Nonce(ctx context.Context) (string, error) {
	var out NonceResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/nonce/", nil, &out); err != nil {
		return "", err
	}
	return out.Nonce, nil
}

// Login submits the signed challenge and, on success, leaves the session
// cookie in the client's jar.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify asks the backend whether the current session is valid.
func (c *Client) Verify(ctx context.Context) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout destroys the backend session. It is idempotent on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout/", nil, nil)
}

// Refresh extends the session TTL. A 401 surfaces as an error so callers
// can fall back to a full verify.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/refresh/", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeAPIError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// apiErrorBody matches the backend's error envelope.
type apiErrorBody struct {
	Error string `json:"error"`
}

// APIError carries the backend's status and error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err == nil {
		var body apiErrorBody
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
