package chat

import (
	"log/slog"
	"sync"

	"github.com/dromero/tienda-server/internal/domain"
)

// SessionManager holds dispatcher session state per user and tab session.
// State is in-memory only; it lives as long as the server process and is
// cleared explicitly on reset or widget teardown.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]map[string]*sessionEntry
}

type sessionEntry struct {
	state domain.Session
	busy  bool
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]map[string]*sessionEntry),
	}
}

// Begin marks the session busy and returns its current state. It returns
// ok=false if a dispatch is already in flight for this session; callers must
// not start a second one (the UI equivalent is the disabled send button).
func (m *SessionManager) Begin(userID, sessionID string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entryLocked(userID, sessionID)
	if entry.busy {
		return domain.Session{}, false
	}
	entry.busy = true
	return entry.state, true
}

// Finish stores the post-dispatch session state and clears the busy flag.
func (m *SessionManager) Finish(userID, sessionID string, state domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entryLocked(userID, sessionID)
	entry.state = state
	entry.busy = false
}

// Abort clears the busy flag without touching session state. Used when a
// dispatch fails before producing a new state.
func (m *SessionManager) Abort(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.sessions[userID]; ok {
		if entry, ok := sessions[sessionID]; ok {
			entry.busy = false
		}
	}
}

// Reset discards the session state for a user and tab session.
func (m *SessionManager) Reset(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.sessions[userID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(m.sessions, userID)
		}
		slog.Info("Chat session reset", "user_id", userID, "session_id", sessionID)
	}
}

func (m *SessionManager) entryLocked(userID, sessionID string) *sessionEntry {
	if _, ok := m.sessions[userID]; !ok {
		m.sessions[userID] = make(map[string]*sessionEntry)
	}
	if _, ok := m.sessions[userID][sessionID]; !ok {
		m.sessions[userID][sessionID] = &sessionEntry{}
	}
	return m.sessions[userID][sessionID]
}
