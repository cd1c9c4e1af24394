package chat

import (
	"sync"
	"testing"
)

func newTestSession() *Session {
	return newSession(nil, nil)
}

func TestRegistry_JoinIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newTestSession()

	r.Join(s, "c1")
	r.Join(s, "c1")
	r.Join(s, "c1")

	if got := r.Online("c1"); got != 1 {
		t.Errorf("Online(c1) = %d, want 1", got)
	}
	if !r.IsMember(s, "c1") {
		t.Error("IsMember() = false after Join")
	}
}

func TestRegistry_LeaveIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newTestSession()

	// 未加入时离开不报错
	r.Leave(s, "c1")

	r.Join(s, "c1")
	r.Leave(s, "c1")
	r.Leave(s, "c1")

	if got := r.Online("c1"); got != 0 {
		t.Errorf("Online(c1) = %d, want 0", got)
	}
	if r.IsMember(s, "c1") {
		t.Error("IsMember() = true after Leave")
	}
}

func TestRegistry_LastOperationWins(t *testing.T) {
	r := NewRegistry()
	s := newTestSession()

	r.Join(s, "c1")
	r.Leave(s, "c1")
	r.Join(s, "c1")
	r.Leave(s, "c1")
	r.Join(s, "c1")

	if !r.IsMember(s, "c1") {
		t.Error("membership should equal the last operation (join)")
	}
}

func TestRegistry_LeaveAll(t *testing.T) {
	r := NewRegistry()
	s := newTestSession()
	other := newTestSession()

	r.Join(s, "c1")
	r.Join(s, "c2")
	r.Join(s, "c3")
	r.Join(other, "c1")

	courses := r.LeaveAll(s)
	if len(courses) != 3 {
		t.Fatalf("LeaveAll() returned %d courses, want 3", len(courses))
	}
	for _, c := range []string{"c1", "c2", "c3"} {
		if r.IsMember(s, c) {
			t.Errorf("IsMember(%s) = true after LeaveAll", c)
		}
	}
	if !r.IsMember(other, "c1") {
		t.Error("LeaveAll() must not affect other sessions")
	}
	if got := r.Online("c1"); got != 1 {
		t.Errorf("Online(c1) = %d, want 1", got)
	}

	// 再次调用无害
	if courses := r.LeaveAll(s); courses != nil {
		t.Errorf("second LeaveAll() = %v, want nil", courses)
	}
}

func TestRegistry_MembersOfSnapshot(t *testing.T) {
	r := NewRegistry()
	a := newTestSession()
	b := newTestSession()
	r.Join(a, "c1")
	r.Join(b, "c1")

	snap := r.MembersOf("c1")
	if len(snap) != 2 {
		t.Fatalf("MembersOf() = %d members, want 2", len(snap))
	}

	// 快照后离开不影响已取出的切片，但新快照立即反映
	r.LeaveAll(b)
	if len(snap) != 2 {
		t.Errorf("snapshot mutated after LeaveAll")
	}
	after := r.MembersOf("c1")
	if len(after) != 1 || after[0] != a {
		t.Errorf("MembersOf() after LeaveAll = %d members, want only a", len(after))
	}
}

func TestRegistry_MembersOfEmpty(t *testing.T) {
	r := NewRegistry()
	if got := r.MembersOf("nope"); got != nil {
		t.Errorf("MembersOf(unknown) = %v, want nil", got)
	}
	if got := r.Online("nope"); got != 0 {
		t.Errorf("Online(unknown) = %d, want 0", got)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	sessions := make([]*Session, 50)
	for i := range sessions {
		sessions[i] = newTestSession()
	}

	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			r.Join(s, "c1")
			r.Join(s, "c2")
			_ = r.MembersOf("c1")
			r.Leave(s, "c2")
		}(s)
	}
	wg.Wait()

	if got := r.Online("c1"); got != len(sessions) {
		t.Errorf("Online(c1) = %d, want %d", got, len(sessions))
	}
	if got := r.Online("c2"); got != 0 {
		t.Errorf("Online(c2) = %d, want 0", got)
	}

	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			r.LeaveAll(s)
		}(s)
	}
	wg.Wait()

	if got := r.Online("c1"); got != 0 {
		t.Errorf("Online(c1) after LeaveAll = %d, want 0", got)
	}
}
