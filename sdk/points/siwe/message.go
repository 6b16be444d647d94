// Package siwe builds and parses the Sign-In-With-Ethereum style challenge
// message exchanged during wallet login. The format is fixed: both the
// client (which asks the wallet to sign it) and the server (which recovers
// the signer from it) depend on the exact line layout, so it lives in one
// shared package.
package siwe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/genlayer-foundation/points/sdk/points/ethaddr"
)

// Statement is the fixed purpose line embedded in every challenge.
const Statement = "Sign in with Ethereum to GenLayer Testnet Contributions"

// Version is the SIWE protocol version line value.
const Version = "1"

// DefaultChainID is Ethereum mainnet, the only chain logins are issued for.
const DefaultChainID = 1

// Message is one challenge. Address carries whatever case the builder put
// in (typically EIP-55); comparisons must lowercase it first.
type Message struct {
	Domain   string
	Address  string
	URI      string
	ChainID  int
	Nonce    string
	IssuedAt time.Time
}

// String renders the message in the exact newline-joined wire layout:
//
//	{domain} wants you to sign in with your Ethereum account:
//	{address}
//
//	{statement}
//
//	URI: {uri}
//	Version: 1
//	Chain ID: {chain id}
//	Nonce: {nonce}
//	Issued At: {ISO-8601}
func (m Message) String() string {
	chain := m.ChainID
	if chain == 0 {
		chain = DefaultChainID
	}
	lines := []string{
		m.Domain + " wants you to sign in with your Ethereum account:",
		m.Address,
		"",
		Statement,
		"",
		"URI: " + m.URI,
		"Version: " + Version,
		"Chain ID: " + strconv.Itoa(chain),
		"Nonce: " + m.Nonce,
		"Issued At: " + m.IssuedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	return strings.Join(lines, "\n")
}

// Parse extracts the fields the server needs from a raw challenge. It is
// deliberately lenient about lines it does not care about, but requires a
// well-formed address on the second line and a Nonce line.
func Parse(raw string) (*Message, error) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("message too short: %d lines", len(lines))
	}

	m := &Message{ChainID: DefaultChainID}

	m.Domain = strings.TrimSuffix(lines[0], " wants you to sign in with your Ethereum account:")

	addr := strings.TrimSpace(lines[1])
	if !ethaddr.Valid(addr) {
		return nil, fmt.Errorf("line 2 is not an ethereum address: %q", addr)
	}
	m.Address = addr

	for _, line := range lines[2:] {
		switch {
		case strings.HasPrefix(line, "URI: "):
			m.URI = strings.TrimSpace(line[len("URI: "):])
		case strings.HasPrefix(line, "Chain ID: "):
			if n, err := strconv.Atoi(strings.TrimSpace(line[len("Chain ID: "):])); err == nil {
				m.ChainID = n
			}
		case strings.HasPrefix(line, "Nonce: "):
			m.Nonce = strings.TrimSpace(line[len("Nonce: "):])
		case strings.HasPrefix(line, "Issued At: "):
			if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(line[len("Issued At: "):])); err == nil {
				m.IssuedAt = ts
			}
		}
	}

	if m.Nonce == "" {
		return nil, fmt.Errorf("message has no nonce line")
	}

	return m, nil
}
