package session

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		raw      string
		category Category
	}{
		{"MetaMask not installed", CategoryWalletNotInstalled},
		{"provider is not installed in this browser", CategoryWalletNotInstalled},
		{"User rejected the request.", CategoryUserRejected},
		{"MetaMask Tx Signature: User denied message signature.", CategoryUserRejected},
		{"invalid signature for address", CategorySignatureFailed},
		{"nonce expired or already used", CategoryNonceExpired},
		{"network error: connection refused", CategoryNetworkError},
		{"Network Error", CategoryNetworkError},
		{"something else entirely", CategoryGeneric},
	}
	for _, tt := range tests {
		got, msg := Classify(tt.raw)
		if got != tt.category {
			t.Errorf("Classify(%q) = %s, want %s", tt.raw, got, tt.category)
		}
		if msg == "" {
			t.Errorf("Classify(%q) returned empty message", tt.raw)
		}
	}
}

func TestClassifyGenericPreservesText(t *testing.T) {
	_, msg := Classify("quota exceeded for project")
	if msg != "quota exceeded for project" {
		t.Errorf("generic message = %q, want original text", msg)
	}
}
