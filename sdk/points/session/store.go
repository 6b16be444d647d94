// Package session manages wallet-based authentication for points clients:
// connecting a wallet, signing the SIWE challenge, exchanging it for a
// backend session cookie, and keeping that session alive. State lives in an
// observable Store so UI layers can react to every change; all mutation
// goes through the Manager.
package session

import (
	"encoding/json"
	"sync"
)

// StorageKey is where the optimistic auth snapshot persists between page
// loads. Absence means unauthenticated-on-load.
const StorageKey = "points-auth"

// referralKey holds a referral code captured from an invite link until the
// next successful login consumes it.
const referralKey = "points-referral"

// redirectKey holds the path to navigate to after the next successful login.
const redirectKey = "points-redirect-after-login"

// State is the client-perceived authentication state. Address is lowercase
// hex and empty when unknown; IsAuthenticated implies a non-empty Address.
type State struct {
	IsAuthenticated bool
	Address         string
	Loading         bool
	Err             string
	// HasVerified records whether the backend confirmed this session since
	// process start. A persisted snapshot loads as authenticated but
	// unverified until the first verify round-trip.
	HasVerified bool
}

// KeyValueStore is the persistence collaborator (localStorage in a browser
// embedding, a file or memory store elsewhere).
type KeyValueStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// persistedAuth is the JSON shape stored under StorageKey.
type persistedAuth struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	Address         string `json:"address"`
}

// Store holds the shared authentication state and notifies subscribers on
// every mutation, including writes that do not change the value.
type Store struct {
	mu      sync.Mutex
	state   State
	kv      KeyValueStore
	subs    map[int]func(State)
	nextSub int
}

// NewStore creates a store seeded from the persisted snapshot in kv, if
// any. The loaded state is optimistic: it claims authentication without
// having verified it, and HasVerified stays false until the Manager's
// first verify call settles.
func NewStore(kv KeyValueStore) *Store {
	s := &Store{
		kv:   kv,
		subs: make(map[int]func(State)),
	}
	if kv != nil {
		if raw, ok := kv.Get(StorageKey); ok {
			var saved persistedAuth
			if err := json.Unmarshal([]byte(raw), &saved); err == nil {
				s.state.IsAuthenticated = saved.IsAuthenticated
				s.state.Address = saved.Address
			}
		}
	}
	return s
}

// Get returns a snapshot of the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run on every state mutation. It is invoked
// immediately with the current state, and the returned function removes
// the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetAuthenticated records a verification outcome: it flips the
// authentication flag, stores the (lowercase) address, marks the session
// verified, and syncs the persisted snapshot — written when authenticated,
// removed otherwise.
func (s *Store) SetAuthenticated(ok bool, address string) {
	s.update(func(st *State) {
		st.IsAuthenticated = ok
		st.Address = address
		st.HasVerified = true
	})

	if s.kv == nil {
		return
	}
	if ok && address != "" {
		raw, _ := json.Marshal(persistedAuth{IsAuthenticated: true, Address: address})
		s.kv.Set(StorageKey, string(raw))
	} else {
		s.kv.Delete(StorageKey)
	}
}

// ResetVerification clears the verified flag so the next Verify call hits
// the backend again. Called on logout.
func (s *Store) ResetVerification() {
	s.update(func(st *State) { st.HasVerified = false })
}

// SetLoading toggles the in-flight indicator.
func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) { st.Loading = loading })
}

// SetError records a user-facing error message for passive observers.
func (s *Store) SetError(msg string) {
	s.update(func(st *State) { st.Err = msg })
}

// ClearError removes any recorded error.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = "" })
}

// setAddress records a connected address before authentication completes.
func (s *Store) setAddress(address string) {
	s.update(func(st *State) { st.Address = address })
}

// update applies a mutation under the lock and notifies subscribers with
// the resulting snapshot. Callbacks run outside the lock so a subscriber
// may read the store re-entrantly.
func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// MemoryStore is an in-memory KeyValueStore for tests and headless
// embeddings.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value for key.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// Delete removes key.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}
