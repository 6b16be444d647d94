package session

import (
	"testing"
)

func TestStoreLoadsPersistedSnapshot(t *testing.T) {
	kv := NewMemoryStore()
	kv.Set(StorageKey, `{"is_authenticated":true,"address":"0xabc"}`)

	store := NewStore(kv)
	st := store.Get()
	if !st.IsAuthenticated || st.Address != "0xabc" {
		t.Errorf("loaded state = %+v, want authenticated 0xabc", st)
	}
	if st.HasVerified {
		t.Error("a loaded snapshot must not count as verified")
	}
}

func TestStoreIgnoresCorruptSnapshot(t *testing.T) {
	kv := NewMemoryStore()
	kv.Set(StorageKey, "{not json")

	st := NewStore(kv).Get()
	if st.IsAuthenticated || st.Address != "" {
		t.Errorf("state from corrupt snapshot = %+v, want zero", st)
	}
}

func TestStoreSubscribeNotifiesEveryMutation(t *testing.T) {
	store := NewStore(NewMemoryStore())

	var calls []State
	unsubscribe := store.Subscribe(func(s State) { calls = append(calls, s) })

	store.SetLoading(true)
	store.SetLoading(true) // same value still notifies
	store.SetAuthenticated(true, "0xabc")

	// 1 immediate + 3 mutations
	if len(calls) != 4 {
		t.Fatalf("notifications = %d, want 4", len(calls))
	}
	last := calls[len(calls)-1]
	if !last.IsAuthenticated || last.Address != "0xabc" || !last.HasVerified {
		t.Errorf("final notification = %+v", last)
	}

	unsubscribe()
	store.SetLoading(false)
	if len(calls) != 4 {
		t.Error("unsubscribed callback should not fire")
	}
}

func TestStoreSetAuthenticatedSyncsStorage(t *testing.T) {
	kv := NewMemoryStore()
	store := NewStore(kv)

	store.SetAuthenticated(true, "0xabc")
	if _, ok := kv.Get(StorageKey); !ok {
		t.Error("expected snapshot written on authenticate")
	}

	store.SetAuthenticated(false, "")
	if _, ok := kv.Get(StorageKey); ok {
		t.Error("expected snapshot removed on deauthenticate")
	}
}

func TestStoreSubscriberMayReadReentrantly(t *testing.T) {
	store := NewStore(NewMemoryStore())
	store.Subscribe(func(State) {
		// Must not deadlock.
		_ = store.Get()
	})
	store.SetLoading(true)
}
