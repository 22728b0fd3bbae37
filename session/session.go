// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/eduparty/network"
)

// Session is one authenticated WebSocket connection. It lives exactly as
// long as the connection handler that created it.
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     int64
	Username   string
	CreatedAt  time.Time
	lobbyCode  string
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, userID int64, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		UserID:     userID,
		CreatedAt:  now,
		lastActive: now,
	}
}

func (s *Session) Send(v interface{}) error {
	return s.Conn.Send(v)
}

func (s *Session) GetID() string {
	return s.ID
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) SetLobbyCode(code string) {
	s.mutex.Lock()
	s.lobbyCode = code
	s.mutex.Unlock()
}

func (s *Session) LobbyCode() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lobbyCode
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks every open connection in the process.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByUserID(userID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// IdleSince returns sessions with no inbound activity since cutoff.
func (m *Manager) IdleSince(cutoff time.Time) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.LastActive().Before(cutoff) {
			result = append(result, session)
		}
	}
	return result
}

// All returns a snapshot of every open session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}
