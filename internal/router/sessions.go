package router

import (
	"sync"

	"github.com/relaymcp/relaymcp/internal/session"
)

// liveSession pairs a running *session.Session with the cancel func
// that tears it down, so an explicit DELETE or process shutdown can
// end it ahead of natural end-of-stream.
type liveSession struct {
	sess   *session.Session
	cancel func()
}

// sessionStore is the router's non-owning index of live sessions,
// keyed by session id (the Mcp-Session-Id value, or an SSE client id).
// It holds only back-references for routing lookups and teardown; the
// Session itself owns its transports and, transitively, its bound
// child.
type sessionStore struct {
	mu sync.Mutex
	m  map[string]*liveSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{m: make(map[string]*liveSession)}
}

func (s *sessionStore) put(id string, sess *session.Session, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = &liveSession{sess: sess, cancel: cancel}
}

func (s *sessionStore) get(id string) (*liveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.m[id]
	return ls, ok
}

func (s *sessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

// end cancels and removes the session named id, if live. It reports
// whether a session was found.
func (s *sessionStore) end(id string) bool {
	s.mu.Lock()
	ls, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	ls.cancel()
	return true
}

// closeAll cancels every live session, for process-wide shutdown.
func (s *sessionStore) closeAll() {
	s.mu.Lock()
	sessions := make([]*liveSession, 0, len(s.m))
	for id := range s.m {
		sessions = append(sessions, s.m[id])
	}
	s.m = make(map[string]*liveSession)
	s.mu.Unlock()

	for _, ls := range sessions {
		ls.cancel()
	}
}
