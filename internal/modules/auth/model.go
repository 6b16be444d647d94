// Package auth implements wallet-based authentication: single-use sign-in
// nonces, signature verification against the challenge message, and Redis
// backed sessions identified by an opaque cookie token.
//
// This is a CORE module -- always enabled, cannot be disabled.
package auth

import (
	"context"
	"time"
)

// Session represents an authenticated session stored in Redis.
// The session token is the key, and this struct is the value (JSON-encoded).
type Session struct {
	UserID    uint      `json:"user_id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is the slice of a user record the auth flow needs. The concrete
// user store lives in the users module; app wiring adapts it to
// AccountProvider so auth carries no dependency on user internals.
type Account struct {
	ID           uint
	Address      string
	ReferralCode string
	ReferredBy   *uint
}

// AccountProvider resolves wallet addresses to accounts and applies
// referral codes at login time.
type AccountProvider interface {
	// GetOrCreateByAddress returns the account for a lowercase wallet
	// address, creating it on first sign-in.
	GetOrCreateByAddress(ctx context.Context, address string) (account Account, created bool, err error)

	// ApplyReferral redeems a referral code for the user and returns the
	// referrer's address. Validation failures (unknown code, self
	// referral, already referred) must come back as non-internal errors.
	ApplyReferral(ctx context.Context, userID uint, code string) (referrerAddress string, err error)
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the signed challenge submitted by the client.
type LoginRequest struct {
	Message      string `json:"message"`
	Signature    string `json:"signature"`
	ReferralCode string `json:"referral_code"`
}

// --- Response DTOs ---

// NonceResponse is the body of GET /api/auth/nonce/.
type NonceResponse struct {
	Nonce string `json:"nonce"`
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

// VerifyResponse is the body of GET /api/auth/verify/.
type VerifyResponse struct {
	Authenticated bool   `json:"authenticated"`
	Address       string `json:"address,omitempty"`
	UserID        uint   `json:"user_id,omitempty"`
}
