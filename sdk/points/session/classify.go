package session

import "strings"

// Category identifies a recognized sign-in failure class.
type Category string

const (
	CategoryWalletNotInstalled Category = "wallet-not-installed"
	CategoryUserRejected       Category = "user-rejected"
	CategorySignatureFailed    Category = "signature-verification-failed"
	CategoryNonceExpired       Category = "nonce-expired"
	CategoryNetworkError       Category = "network-error"
	CategoryGeneric            Category = "generic-failure"
)

// messages maps each category to the text shown to the user.
var messages = map[Category]string{
	CategoryWalletNotInstalled: "MetaMask is not installed. Please install MetaMask to continue.",
	CategoryUserRejected:       "You rejected the signature request. Please try again and approve the signature.",
	CategorySignatureFailed:    "Signature verification failed. Please try again.",
	CategoryNonceExpired:       "Your authentication request expired. Please try again.",
	CategoryNetworkError:       "Network error. Please check your connection and try again.",
}

// Classify maps a raw sign-in error message onto a known failure category
// by substring, checked in priority order. Unrecognized messages come back
// as CategoryGeneric with the original text preserved.
func Classify(raw string) (Category, string) {
	switch {
	case strings.Contains(raw, "not installed"):
		return CategoryWalletNotInstalled, messages[CategoryWalletNotInstalled]
	case strings.Contains(raw, "User rejected"), strings.Contains(raw, "User denied"):
		return CategoryUserRejected, messages[CategoryUserRejected]
	case strings.Contains(raw, "signature"):
		return CategorySignatureFailed, messages[CategorySignatureFailed]
	case strings.Contains(raw, "nonce"):
		return CategoryNonceExpired, messages[CategoryNonceExpired]
	case strings.Contains(raw, "network"), strings.Contains(raw, "Network Error"):
		return CategoryNetworkError, messages[CategoryNetworkError]
	default:
		return CategoryGeneric, raw
	}
}
