package stream

import (
	"testing"

	"github.com/rosupd/bancho/internal/session"
)

func TestJoinLeave(t *testing.T) {
	sessions := session.NewRegistry()
	m := NewManager(sessions)
	tok := sessions.Add(1, "a")

	m.Join("chat/#osu", tok.ID())
	if !m.In("chat/#osu", tok.ID()) {
		t.Fatalf("session not in stream after Join")
	}
	if m.Size("chat/#osu") != 1 {
		t.Errorf("Size = %d, want 1", m.Size("chat/#osu"))
	}

	m.Leave("chat/#osu", tok.ID())
	if m.In("chat/#osu", tok.ID()) {
		t.Errorf("session still in stream after Leave")
	}
	// Leaving an unknown stream must not panic.
	m.Leave("nope", tok.ID())
}

func TestBroadcastExcludesAndDelivers(t *testing.T) {
	sessions := session.NewRegistry()
	m := NewManager(sessions)
	a := sessions.Add(1, "a")
	b := sessions.Add(2, "b")
	m.Join("main", a.ID())
	m.Join("main", b.ID())

	m.Broadcast("main", []byte{1, 2, 3}, a.ID())

	if n := a.QueueLen(); n != 0 {
		t.Errorf("excluded session got %d bytes", n)
	}
	if n := b.QueueLen(); n != 3 {
		t.Errorf("member got %d bytes, want 3", n)
	}
}

func TestBroadcastPrunesDeadMembers(t *testing.T) {
	sessions := session.NewRegistry()
	m := NewManager(sessions)
	a := sessions.Add(1, "a")
	m.Join("main", a.ID())

	sessions.Remove(a.ID())
	m.Broadcast("main", []byte{9})

	if m.In("main", a.ID()) {
		t.Errorf("dead session still a member after broadcast")
	}
}

func TestLeaveAll(t *testing.T) {
	sessions := session.NewRegistry()
	m := NewManager(sessions)
	tok := sessions.Add(1, "a")
	m.Join("one", tok.ID())
	m.Join("two", tok.ID())

	m.LeaveAll(tok.ID())
	if m.In("one", tok.ID()) || m.In("two", tok.ID()) {
		t.Errorf("session still a member after LeaveAll")
	}
}

func TestRemoveStream(t *testing.T) {
	sessions := session.NewRegistry()
	m := NewManager(sessions)
	m.Add("temp")
	if !m.Exists("temp") {
		t.Fatalf("stream missing after Add")
	}
	m.Remove("temp")
	if m.Exists("temp") {
		t.Errorf("stream still exists after Remove")
	}
}
