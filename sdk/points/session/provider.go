package session

import "context"

// WalletProvider abstracts the injected Ethereum wallet (MetaMask or
// compatible). Implementations bridge to whatever runtime hosts the wallet;
// tests supply fakes.
type WalletProvider interface {
	// RequestAccounts prompts the user to connect and returns the granted
	// accounts. An empty slice means the user connected no account.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns the currently connected accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)

	// SignMessage asks the wallet to personal_sign message with the given
	// account and returns the 65-byte signature as 0x-prefixed hex.
	SignMessage(ctx context.Context, account, message string) (string, error)

	// OnAccountsChanged registers a callback for account switches and
	// disconnects. An empty slice signals disconnect.
	OnAccountsChanged(fn func(accounts []string))

	// OnChainChanged registers a callback for network switches.
	OnChainChanged(fn func(chainID string))
}

// Navigator abstracts page-level navigation so the Manager can redirect
// after login and reload on chain changes.
type Navigator interface {
	// Host returns the host[:port] used as the SIWE domain.
	Host() string
	// Origin returns the scheme://host[:port] used as the SIWE URI.
	Origin() string
	// Go navigates to path.
	Go(path string)
	// Reload performs a full page reload.
	Reload()
}

// ProfileLoader lets the embedding application load or discard
// user-profile data alongside authentication transitions. Either method
// may be a no-op.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, address string)
	ClearProfile()
}

// NopProfileLoader is a ProfileLoader that does nothing.
type NopProfileLoader struct{}

func (NopProfileLoader) LoadProfile(context.Context, string) {}
func (NopProfileLoader) ClearProfile()                       {}
