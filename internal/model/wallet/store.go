package wallet

import "sync"

// Store holds at most one wallet session per conversation. Entries are owned
// exclusively by their conversation; the only concurrency control needed is
// atomic per-key replacement.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewStore bootstraps the in-memory session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]Session)}
}

// Get retrieves the session for a conversation, if any.
func (s *Store) Get(conversationID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[conversationID]
	return session, ok
}

// Put installs or replaces the conversation's session. Used on wallet
// creation, import and network switch.
func (s *Store) Put(conversationID string, session Session) {
	s.mu.Lock()
	s.sessions[conversationID] = session
	s.mu.Unlock()
}

// Remove disconnects the conversation's wallet. Removing an absent session
// is not an error.
func (s *Store) Remove(conversationID string) {
	s.mu.Lock()
	delete(s.sessions, conversationID)
	s.mu.Unlock()
}

// IsConnected reports whether the conversation has a wallet session.
func (s *Store) IsConnected(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[conversationID]
	return ok
}
