package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/genlayer-foundation/points/sdk/points/ethaddr"
	"github.com/genlayer-foundation/points/sdk/points/siwe"
)

// RefreshInterval is how often the background loop extends the session.
const RefreshInterval = 5 * time.Minute

// ErrNoWallet is returned when the provider reports no connected accounts.
var ErrNoWallet = errors.New("wallet not installed or no accounts available")

// Manager drives the sign-in lifecycle: wallet connection, challenge
// signing, session verification, refresh, and reaction to wallet events.
// All observable state goes through the Store.
type Manager struct {
	store    *Store
	client   *Client
	provider WalletProvider
	nav      Navigator
	kv       KeyValueStore
	profiles ProfileLoader

	group singleflight.Group
	now   func() time.Time
}

// NewManager wires a Manager from its collaborators. profiles may be nil,
// in which case profile loading is skipped. Wallet event handlers are
// registered immediately when provider is non-nil.
func NewManager(store *Store, client *Client, provider WalletProvider, nav Navigator, kv KeyValueStore, profiles ProfileLoader) *Manager {
	if profiles == nil {
		profiles = NopProfileLoader{}
	}
	m := &Manager{
		store:    store,
		client:   client,
		provider: provider,
		nav:      nav,
		kv:       kv,
		profiles: profiles,
		now:      time.Now,
	}
	if provider != nil {
		provider.OnAccountsChanged(m.handleAccountsChanged)
		provider.OnChainChanged(func(string) { m.handleChainChanged() })
	}
	return m
}

// Connect prompts the wallet for access and records the first granted
// account (lowercase) in the store without authenticating.
func (m *Manager) Connect(ctx context.Context) (string, error) {
	if m.provider == nil {
		return "", ErrNoWallet
	}
	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", ErrNoWallet
	}
	addr, err := ethaddr.Normalize(accounts[0])
	if err != nil {
		return "", err
	}
	m.store.setAddress(addr)
	return addr, nil
}

// SignIn runs the full login flow: connect, fetch a nonce, build and sign
// the challenge, exchange it for a session, then redirect. A referral code
// stashed in storage is sent once and cleared on success. Errors are
// classified and recorded on the store before being returned.
func (m *Manager) SignIn(ctx context.Context) error {
	m.store.ClearError()
	m.store.SetLoading(true)
	defer m.store.SetLoading(false)

	addr, err := m.Connect(ctx)
	if err != nil {
		return m.fail(err)
	}
	if err := m.signInWith(ctx, addr); err != nil {
		return m.fail(err)
	}
	return nil
}

// signInWith performs nonce, challenge, signature, and login for an
// already-connected account.
func (m *Manager) signInWith(ctx context.Context, addr string) error {
	nonce, err := m.client.Nonce(ctx)
	if err != nil {
		return fmt.Errorf("fetching nonce: %w", err)
	}

	// The wallet displays the checksummed form; the backend lowercases
	// again before lookup.
	checksummed, err := ethaddr.Checksum(addr)
	if err != nil {
		return err
	}
	msg := siwe.Message{
		Domain:   m.nav.Host(),
		Address:  checksummed,
		URI:      m.nav.Origin(),
		ChainID:  siwe.DefaultChainID,
		Nonce:    nonce,
		IssuedAt: m.now(),
	}

	signature, err := m.provider.SignMessage(ctx, addr, msg.String())
	if err != nil {
		return err
	}

	req := LoginRequest{Message: msg.String(), Signature: signature}
	if m.kv != nil {
		if code, ok := m.kv.Get(referralKey); ok && code != "" {
			req.ReferralCode = code
		}
	}

	res, err := m.client.Login(ctx, req)
	if err != nil {
		return err
	}
	if !res.Authenticated {
		return errors.New("signature verification failed")
	}

	if m.kv != nil && req.ReferralCode != "" {
		m.kv.Delete(referralKey)
	}

	// The backend may omit or mangle the address; the account we just
	// signed with is authoritative in that case.
	authed, err := ethaddr.Normalize(res.Address)
	if err != nil || authed == "" {
		authed = addr
	}
	m.store.SetAuthenticated(true, authed)
	m.profiles.LoadProfile(ctx, authed)

	// Confirm the fresh cookie in the background so a broken session
	// surfaces before the next API call instead of after it.
	go m.runVerify(context.WithoutCancel(ctx))

	m.redirectAfterLogin(authed)
	return nil
}

// fail classifies err, records the user-facing message, and returns err.
func (m *Manager) fail(err error) error {
	_, msg := Classify(err.Error())
	m.store.SetError(msg)
	return err
}

// redirectAfterLogin navigates to the path stashed before the login
// prompt, falling back to the signed-in participant's page.
func (m *Manager) redirectAfterLogin(addr string) {
	dest := "/participant/" + addr
	if m.kv != nil {
		if saved, ok := m.kv.Get(redirectKey); ok && saved != "" {
			dest = saved
			m.kv.Delete(redirectKey)
		}
	}
	if m.nav != nil {
		m.nav.Go(dest)
	}
}

// SetRedirectAfterLogin stashes path so the next successful login lands
// there instead of the participant page.
func (m *Manager) SetRedirectAfterLogin(path string) {
	if m.kv != nil {
		m.kv.Set(redirectKey, path)
	}
}

// SetReferralCode stashes a referral code to send with the next login.
func (m *Manager) SetReferralCode(code string) {
	if m.kv != nil && code != "" {
		m.kv.Set(referralKey, code)
	}
}

// Verify reports whether the backend considers the session valid. The
// first call per process hits the backend; later calls answer from the
// store until ResetVerification. Concurrent first calls share one
// round-trip. Backend failures report false without error so callers can
// treat the session as signed out.
func (m *Manager) Verify(ctx context.Context) bool {
	if st := m.store.Get(); st.HasVerified {
		return st.IsAuthenticated
	}
	return m.runVerify(ctx)
}

// runVerify always performs (or joins) a backend verify round-trip and
// applies its outcome to the store.
func (m *Manager) runVerify(ctx context.Context) bool {
	v, _, _ := m.group.Do("verify", func() (any, error) {
		res, err := m.client.Verify(ctx)
		if err != nil || !res.Authenticated {
			m.store.SetAuthenticated(false, "")
			return false, nil
		}
		addr, aerr := ethaddr.Normalize(res.Address)
		if aerr != nil {
			// Keep whatever address the wallet connection recorded
			// rather than blanking an authenticated session.
			addr = m.store.Get().Address
		}
		m.store.SetAuthenticated(true, addr)
		return true, nil
	})
	ok, _ := v.(bool)
	return ok
}

// Logout ends the session. The backend call is best effort: local state,
// persisted snapshot, and profile are cleared regardless of its outcome,
// and the verified flag resets so the next Verify asks the backend again.
func (m *Manager) Logout(ctx context.Context) {
	// Session cookie may already be gone; local teardown proceeds either way.
	_ = m.client.Logout(ctx)
	m.store.SetAuthenticated(false, "")
	m.store.ResetVerification()
	m.profiles.ClearProfile()
}

// RefreshOnce extends the session TTL. A failed refresh falls back to a
// full verify so an expired session flips the store to signed out.
func (m *Manager) RefreshOnce(ctx context.Context) {
	if st := m.store.Get(); !st.IsAuthenticated {
		return
	}
	if err := m.client.Refresh(ctx); err != nil {
		m.runVerify(ctx)
	}
}

// Run verifies the session once, then keeps it alive on a fixed interval
// until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	m.Verify(ctx)

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RefreshOnce(ctx)
		}
	}
}

// handleAccountsChanged reacts to wallet account switches. Disconnecting
// logs out; switching accounts logs out of the old session and signs in
// as the new account through the same provider handle. A failed re-login
// leaves a prompt in the store instead of a half-switched session.
func (m *Manager) handleAccountsChanged(accounts []string) {
	ctx := context.Background()

	if len(accounts) == 0 {
		m.Logout(ctx)
		return
	}

	next, err := ethaddr.Normalize(accounts[0])
	if err != nil {
		// An account we cannot even parse is treated like a disconnect.
		m.Logout(ctx)
		return
	}
	current := m.store.Get().Address
	if next == current {
		return
	}

	m.Logout(ctx)
	m.store.setAddress(next)
	if err := m.signInWith(ctx, next); err != nil {
		_, msg := Classify(err.Error())
		m.store.SetError("Account changed. " + msg + " Please sign in again.")
	}
}

// handleChainChanged reloads the page, matching wallet-provider guidance
// for network switches.
func (m *Manager) handleChainChanged() {
	if m.nav != nil {
		m.nav.Reload()
	}
}

// ReferralFromPath extracts a referral code from an invite path of the
// form /ref/{code} and returns it, or "" when the path is not an invite.
func ReferralFromPath(path string) string {
	const prefix = "/ref/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	code := strings.TrimPrefix(path, prefix)
	if i := strings.IndexAny(code, "/?#"); i >= 0 {
		code = code[:i]
	}
	return code
}
