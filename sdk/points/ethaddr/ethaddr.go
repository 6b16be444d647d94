// Package ethaddr provides validation and formatting helpers for Ethereum
// addresses. Addresses are stored lowercase throughout the system; the
// EIP-55 checksummed form is only used where a wallet expects to see it
// (e.g. inside a sign-in challenge message).
package ethaddr

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// hexDigits of an address, not counting the 0x prefix.
const hexDigits = 40

// Valid reports whether s looks like an Ethereum address: a 0x prefix
// followed by exactly 40 hex digits. Mixed case is accepted; checksum
// correctness is not enforced here.
func Valid(s string) bool {
	if len(s) != hexDigits+2 {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Normalize lowercases an address for storage and comparison.
// Returns an error if the input is not a valid address.
func Normalize(s string) (string, error) {
	if !Valid(s) {
		return "", fmt.Errorf("invalid ethereum address: %q", s)
	}
	return "0x" + strings.ToLower(s[2:]), nil
}

// Checksum returns the EIP-55 mixed-case form of an address. A hex letter
// is uppercased when the corresponding nibble of keccak256(lowercase hex
// address without prefix) is 8 or higher.
func Checksum(s string) (string, error) {
	norm, err := Normalize(s)
	if err != nil {
		return "", err
	}
	body := norm[2:]

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(body))
	digest := h.Sum(nil)

	out := make([]byte, hexDigits)
	for i := 0; i < hexDigits; i++ {
		c := body[i]
		if c >= 'a' && c <= 'f' {
			nibble := digest[i/2]
			if i%2 == 0 {
				nibble >>= 4
			} else {
				nibble &= 0x0f
			}
			if nibble >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// Short returns the conventional abbreviated display form, e.g.
// "0x1234…abcd". Invalid input is returned unchanged.
func Short(s string) string {
	if !Valid(s) {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
