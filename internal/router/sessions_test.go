package router

import (
	"testing"

	"github.com/relaymcp/relaymcp/internal/session"
)

func TestSessionStore_PutGetRemove(t *testing.T) {
	s := newSessionStore()
	sess := session.New("id-1", "backend", nil, nil, nil, nil)

	s.put("id-1", sess, func() {})

	got, ok := s.get("id-1")
	if !ok || got.sess != sess {
		t.Fatalf("get(id-1) = %+v, %v", got, ok)
	}

	s.remove("id-1")
	if _, ok := s.get("id-1"); ok {
		t.Fatal("expected id-1 to be gone after remove")
	}
}

func TestSessionStore_EndCancelsAndRemoves(t *testing.T) {
	s := newSessionStore()
	sess := session.New("id-1", "backend", nil, nil, nil, nil)

	cancelled := false
	s.put("id-1", sess, func() { cancelled = true })

	if !s.end("id-1") {
		t.Fatal("end(id-1) should report true for a live session")
	}
	if !cancelled {
		t.Fatal("expected end to invoke the cancel func")
	}
	if _, ok := s.get("id-1"); ok {
		t.Fatal("expected id-1 to be removed after end")
	}
	if s.end("id-1") {
		t.Fatal("end should report false for an already-ended session")
	}
}

func TestSessionStore_CloseAllCancelsEverySession(t *testing.T) {
	s := newSessionStore()
	var cancelCount int
	for _, id := range []string{"a", "b", "c"} {
		sess := session.New(id, "backend", nil, nil, nil, nil)
		s.put(id, sess, func() { cancelCount++ })
	}

	s.closeAll()

	if cancelCount != 3 {
		t.Fatalf("cancelCount = %d, want 3", cancelCount)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, ok := s.get(id); ok {
			t.Fatalf("expected %q to be removed after closeAll", id)
		}
	}
}
