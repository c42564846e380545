package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSafeUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Cookiezi", "cookiezi"},
		{"White Cat", "white_cat"},
		{"  padded name ", "padded_name"},
	}
	for _, c := range cases {
		if got := SafeUsername(c.in); got != c.want {
			t.Errorf("SafeUsername(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTokenIDUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := r.Add(int32(i+1000), fmt.Sprintf("user%d", i))
		if len(tok.ID()) != 32 {
			t.Fatalf("token id length = %d, want 32", len(tok.ID()))
		}
		if seen[tok.ID()] {
			t.Fatalf("duplicate token id %s", tok.ID())
		}
		seen[tok.ID()] = true
	}
}

func TestQueueOrderAndDrain(t *testing.T) {
	r := NewRegistry()
	tok := r.Add(1001, "queueuser")

	tok.Enqueue([]byte{1, 2})
	tok.Enqueue([]byte{3})
	tok.Enqueue(nil) // no-op

	got := tok.FetchQueue()
	want := []byte{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("queue length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if second := tok.FetchQueue(); len(second) != 0 {
		t.Errorf("second fetch returned %d bytes, want 0", len(second))
	}
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	r := NewRegistry()
	tok := r.Add(1002, "concurrent")

	var wg sync.WaitGroup
	const writers = 8
	const perWriter = 100
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				tok.Enqueue([]byte{0xAB, 0xCD})
			}
		}()
	}
	wg.Wait()

	if got := len(tok.FetchQueue()); got != writers*perWriter*2 {
		t.Errorf("drained %d bytes, want %d", got, writers*perWriter*2)
	}
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	tok := r.Add(42, "Some User")

	if got := r.Get(tok.ID()); got != tok {
		t.Errorf("Get by token id failed")
	}
	if got := r.GetByUserID(42); got != tok {
		t.Errorf("GetByUserID failed")
	}
	if got := r.GetByUsername("some user"); got != tok {
		t.Errorf("GetByUsername (safe form) failed")
	}
	if got := r.GetByUsername("nobody"); got != nil {
		t.Errorf("GetByUsername for offline user = %v, want nil", got)
	}

	if !r.Remove(tok.ID()) {
		t.Fatalf("Remove returned false for live session")
	}
	if r.Remove(tok.ID()) {
		t.Errorf("Remove returned true for already-removed session")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d after removal, want 0", r.Count())
	}
}

func TestOtherSessions(t *testing.T) {
	r := NewRegistry()
	a := r.Add(7, "dupe")
	b := r.Add(7, "dupe")
	r.Add(8, "other")

	others := r.OtherSessions(7, a.ID())
	if len(others) != 1 || others[0] != b {
		t.Errorf("OtherSessions returned %d sessions, want exactly the second one", len(others))
	}
}

func TestTimedOutRespectsGrace(t *testing.T) {
	r := NewRegistry()
	tok := r.Add(9, "fresh")
	tok.lastPing.Store(time.Now().Add(-5 * time.Minute).UnixNano())

	// Fresh login: lastPing is stale but loginTime is recent.
	if got := r.TimedOut(100*time.Second, time.Minute); len(got) != 0 {
		t.Errorf("fresh session reported as timed out")
	}

	tok.mu.Lock()
	tok.loginTime = time.Now().Add(-10 * time.Minute)
	tok.mu.Unlock()
	if got := r.TimedOut(100*time.Second, time.Minute); len(got) != 1 {
		t.Errorf("stale session not reported as timed out")
	}
}

func TestSilence(t *testing.T) {
	r := NewRegistry()
	tok := r.Add(10, "loud")

	if tok.Silenced() {
		t.Fatalf("new session silenced")
	}
	tok.Silence(time.Minute)
	if !tok.Silenced() {
		t.Errorf("session not silenced after Silence")
	}
	tok.Silence(-time.Second)
	if tok.Silenced() {
		t.Errorf("session still silenced after expiry")
	}
}

func TestEnqueueAllExcludes(t *testing.T) {
	r := NewRegistry()
	a := r.Add(1, "a")
	b := r.Add(2, "b")

	r.EnqueueAll([]byte{0xFF}, a.ID())
	if n := a.QueueLen(); n != 0 {
		t.Errorf("excluded session got %d bytes", n)
	}
	if n := b.QueueLen(); n != 1 {
		t.Errorf("included session got %d bytes, want 1", n)
	}
}
