// Package users manages participant accounts keyed by wallet address.
// Accounts are created implicitly on first sign-in; profile fields start
// from address-derived placeholders the user can edit later. Each account
// carries a unique referral code that other participants can redeem once
// at their own first login.
//
// This is a CORE module -- auth depends on it and it cannot be disabled.
package users

import (
	"time"
)

// User represents a participant account. This is the domain model used
// throughout the application. Database scanning and JSON marshaling use
// this struct directly.
type User struct {
	ID           uint      `json:"id"`
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Visible      bool      `json:"visible"`
	IsReviewer   bool      `json:"is_reviewer"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   *uint     `json:"referred_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validator represents a testnet validator node operated by a user.
type Validator struct {
	ID          uint   `json:"id"`
	UserID      uint   `json:"user_id"`
	NodeVersion string `json:"node_version"`
	User        *User  `json:"user,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// UpdateProfileRequest holds the fields a user may change on their own
// profile. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Visible  *bool   `json:"visible"`
}
