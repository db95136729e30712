package chat

import "sync"

// State is where a user is in a conversation.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingEvent     State = "awaiting_event"
	StateAwaitingGift      State = "awaiting_gift"
	StateAwaitingDelete    State = "awaiting_delete"
	StateAwaitingBroadcast State = "awaiting_broadcast"
)

// Session is one user's conversation state. EditingID is set while an
// awaiting_event step edits an existing event instead of creating one.
type Session struct {
	State     State
	EditingID uint
}

// sessionStore keeps conversation state in memory, keyed by user. It also
// hands out a per-user lock so one user's messages are handled in order.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	locks    map[string]*sync.Mutex
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *sessionStore) Get(userID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{State: StateIdle}
	}
	return sess
}

func (s *sessionStore) Set(userID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.State == StateIdle {
		delete(s.sessions, userID)
		return
	}
	s.sessions[userID] = sess
}

func (s *sessionStore) Clear(userID string) {
	s.Set(userID, Session{State: StateIdle})
}

func (s *sessionStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}
