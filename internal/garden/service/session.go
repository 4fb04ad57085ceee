package service

import (
	"sync"

	"github.com/google/uuid"
)

// ============================================================
// Session Manager
// ============================================================

type Session struct {
	UserID string
	Role   string
}

type SessionManager struct {
	mu     sync.Mutex
	tokens map[string]Session // token -> session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		tokens: make(map[string]Session),
	}
}

func (m *SessionManager) Issue(userID, role string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := uuid.NewString()
	m.tokens[token] = Session{UserID: userID, Role: role}
	return token
}

func (m *SessionManager) Resolve(token string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tokens[token]
	return s, ok
}

func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}
