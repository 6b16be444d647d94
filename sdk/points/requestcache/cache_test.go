package requestcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey_OrderIndependent(t *testing.T) {
	a := Key(map[string]any{"category": "validator", "is_active": true, "page": 2})
	b := Key(map[string]any{"page": 2, "is_active": true, "category": "validator"})
	if a != b {
		t.Errorf("keys differ:\n%s\n%s", a, b)
	}
}

func TestKey_DropsNilValues(t *testing.T) {
	a := Key(map[string]any{"category": "validator", "state": nil})
	b := Key(map[string]any{"category": "validator"})
	if a != b {
		t.Errorf("keys differ:\n%s\n%s", a, b)
	}
}

func TestKey_DistinguishesValues(t *testing.T) {
	a := Key(map[string]any{"page": 1})
	b := Key(map[string]any{"page": 2})
	if a == b {
		t.Error("different params should produce different keys")
	}
}

func TestDo_CachesResult(t *testing.T) {
	c := New(time.Minute)
	var calls int32

	fetch := func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"a", "b"}, nil
	}

	params := map[string]any{"category": "builder"}
	for i := 0; i < 3; i++ {
		got, err := Do(context.Background(), c, params, fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %v", got)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}
}

func TestDo_DeduplicatesConcurrentCalls(t *testing.T) {
	c := New(time.Minute)
	var calls int32
	release := make(chan struct{})

	fetch := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}

	// Two callers with identical, order-shuffled parameter maps while the
	// first fetch is still in flight.
	paramsA := map[string]any{"is_active": true, "category": "validator"}
	paramsB := map[string]any{"category": "validator", "is_active": true}

	var wg sync.WaitGroup
	results := make([]int, 2)
	for i, p := range []map[string]any{paramsA, paramsB} {
		wg.Add(1)
		go func(i int, p map[string]any) {
			defer wg.Done()
			v, err := Do(context.Background(), c, p, fetch)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i, p)
	}

	// Give both goroutines time to join the flight, then let it settle.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}
	if results[0] != 7 || results[1] != 7 {
		t.Errorf("results = %v", results)
	}
}

func TestDo_RefetchesAfterExpiry(t *testing.T) {
	c := New(time.Minute)

	// Injected clock so the test does not sleep for real.
	current := time.Now()
	c.now = func() time.Time { return current }

	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "fresh", nil
	}

	params := map[string]any{"page": 1}
	if _, err := Do(context.Background(), c, params, fetch); err != nil {
		t.Fatal(err)
	}
	if _, err := Do(context.Background(), c, params, fetch); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("fetch called %d times before expiry, want 1", n)
	}

	current = current.Add(time.Minute + time.Second)
	if _, err := Do(context.Background(), c, params, fetch); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times after expiry, want 2", n)
	}
}

func TestDo_ErrorsAreNotCached(t *testing.T) {
	c := New(time.Minute)
	var calls int32

	boom := errors.New("backend down")
	fetch := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", boom
		}
		return "recovered", nil
	}

	params := map[string]any{"q": "x"}
	if _, err := Do(context.Background(), c, params, fetch); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	got, err := Do(context.Background(), c, params, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times, want 2", n)
	}
}

func TestDo_MismatchedCachedTypeRefetches(t *testing.T) {
	c := New(time.Minute)
	params := map[string]any{"page": 1}

	if _, err := Do(context.Background(), c, params, func(ctx context.Context) (string, error) {
		return "stringy", nil
	}); err != nil {
		t.Fatal(err)
	}

	// Same key, different result type: the stale entry must behave like a
	// miss, not a panic, and the new value replaces it.
	var calls int32
	got, err := Do(context.Background(), c, params, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}

	// The int result is now the cached entry for this key.
	again, err := Do(context.Background(), c, params, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if again != 42 {
		t.Errorf("got %d, want cached 42", again)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times after cache, want 1", n)
	}
}

func TestInvalidate(t *testing.T) {
	c := New(time.Minute)
	var calls int32
	fetch := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	keep := map[string]any{"page": 1}
	drop := map[string]any{"page": 2}
	if _, err := Do(context.Background(), c, keep, fetch); err != nil {
		t.Fatal(err)
	}
	if _, err := Do(context.Background(), c, drop, fetch); err != nil {
		t.Fatal(err)
	}

	c.Invalidate(drop)

	// keep is still cached; drop refetches.
	if v, _ := Do(context.Background(), c, keep, fetch); v != 1 {
		t.Errorf("keep = %d, want cached 1", v)
	}
	if v, _ := Do(context.Background(), c, drop, fetch); v != 3 {
		t.Errorf("drop = %d, want refetched 3", v)
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute)
	var calls int32
	fetch := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	params := map[string]any{"page": 1}
	if _, err := Do(context.Background(), c, params, fetch); err != nil {
		t.Fatal(err)
	}
	c.Clear()
	if _, err := Do(context.Background(), c, params, fetch); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times, want 2", n)
	}
}
