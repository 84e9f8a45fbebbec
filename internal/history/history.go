// Package history keeps per-session conversation state in memory.
// Each session maps to one append-only message sequence; the sequence is
// created lazily on first lookup and lives until the process exits (or
// Store.Clear). Nothing here persists across restarts.
package history

import (
	"sync"
)

// SessionHistory is the ordered message sequence of one conversation.
// The same instance is returned for every lookup of its session ID, so all
// holders observe appends immediately. Safe for concurrent use.
type SessionHistory struct {
	sessionID string

	mu       sync.Mutex
	messages []Message
}

// SessionID returns the identifier this history was created under.
func (h *SessionHistory) SessionID() string {
	return h.sessionID
}

// Messages returns a snapshot copy of the sequence in conversation order.
// Appends that land after the snapshot is taken are not reflected in it.
func (h *SessionHistory) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the current number of stored messages.
func (h *SessionHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Append places msgs after all previously stored messages, preserving their
// relative order. The batch is committed as a whole: concurrent Append calls
// serialize, so two callers' batches never interleave. Messages are never
// rewritten or removed.
func (h *SessionHistory) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	h.mu.Lock()
	h.messages = append(h.messages, msgs...)
	h.mu.Unlock()
}

// Store maps session identifiers to their histories. Construct one with
// NewStore and pass it to whatever needs it; there is no package-level
// instance. Sessions are never evicted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*SessionHistory
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*SessionHistory)}
}

// GetOrCreate returns the history for sessionID, creating an empty one on
// first lookup. Creation is atomic: concurrent calls for the same identifier
// all receive the same instance. The store lock covers only the map access,
// never the caller's subsequent reads or appends.
func (s *Store) GetOrCreate(sessionID string) *SessionHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		h = &SessionHistory{sessionID: sessionID}
		s.sessions[sessionID] = h
	}
	return h
}

// Len returns the number of sessions currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Clear drops every session. Histories handed out earlier keep working but
// are no longer reachable through the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.sessions = make(map[string]*SessionHistory)
	s.mu.Unlock()
}
