// lobby/manager.go
package lobby

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/monitor"
)

const (
	codeSpace         = 10000
	maxRandomAttempts = 32
)

// Manager owns every active lobby in the process. Build one at startup and
// share it with all connection handlers.
type Manager struct {
	lobbies  map[string]*Lobby
	mutex    sync.RWMutex
	monitor  *monitor.Monitor
	randCode func() (int, error)
}

func NewManager(mon *monitor.Monitor) *Manager {
	return &Manager{
		lobbies:  make(map[string]*Lobby),
		monitor:  mon,
		randCode: cryptoCode,
	}
}

func cryptoCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

func formatCode(n int) string {
	return fmt.Sprintf("%04d", n)
}

// CreateLobby registers an empty lobby under a fresh 4-digit code.
// Collisions are retried; if random draws keep colliding the first free
// code after the last draw is used.
func (m *Manager) CreateLobby() (*Lobby, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code, err := m.allocateCode()
	if err != nil {
		return nil, err
	}

	l := NewLobby(code, m.monitor)
	m.register(l)
	return l, nil
}

// CreateLobbyWith registers a new lobby that already has host as its only
// member, so a concurrent Cleanup never sees it empty. The roster is not
// broadcast; the caller announces the lobby first.
func (m *Manager) CreateLobbyWith(host *Player) (*Lobby, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code, err := m.allocateCode()
	if err != nil {
		return nil, err
	}

	l := NewLobby(code, m.monitor)
	host.setHost(true)
	l.players = []*Player{host}
	m.register(l)
	return l, nil
}

// register must be called with the write lock held.
func (m *Manager) register(l *Lobby) {
	m.lobbies[l.Code] = l
	m.monitor.SetActiveLobbies(len(m.lobbies))
	logger.Log.Infof("Lobby %s created", l.Code)
}

// allocateCode must be called with the write lock held.
func (m *Manager) allocateCode() (string, error) {
	if len(m.lobbies) >= codeSpace {
		return "", ErrNoCodesAvailable
	}

	n := 0
	for i := 0; i < maxRandomAttempts; i++ {
		var err error
		n, err = m.randCode()
		if err != nil {
			return "", fmt.Errorf("generate lobby code: %w", err)
		}
		n %= codeSpace
		if _, taken := m.lobbies[formatCode(n)]; !taken {
			return formatCode(n), nil
		}
	}

	for i := 1; i < codeSpace; i++ {
		code := formatCode((n + i) % codeSpace)
		if _, taken := m.lobbies[code]; !taken {
			return code, nil
		}
	}
	return "", ErrNoCodesAvailable
}

func (m *Manager) GetLobby(code string) (*Lobby, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	l, exists := m.lobbies[code]
	return l, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.lobbies)
}

// Cleanup reaps stale players from every lobby, then removes lobbies that
// are empty. A lobby with members is never removed. It returns the number
// of lobbies removed.
func (m *Manager) Cleanup() int {
	m.mutex.RLock()
	lobbies := make([]*Lobby, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		lobbies = append(lobbies, l)
	}
	m.mutex.RUnlock()

	for _, l := range lobbies {
		l.reapStale()
	}

	var stopped []Game
	removed := 0

	m.mutex.Lock()
	for code, l := range m.lobbies {
		closed, g := l.closeIfEmpty()
		if !closed {
			continue
		}
		delete(m.lobbies, code)
		removed++
		if g != nil {
			stopped = append(stopped, g)
		}
		logger.Log.Infof("Lobby %s removed (empty)", code)
	}
	m.monitor.SetActiveLobbies(len(m.lobbies))
	m.mutex.Unlock()

	for _, g := range stopped {
		g.Stop()
	}
	return removed
}

// Shutdown stops every running game and forgets all lobbies.
func (m *Manager) Shutdown() {
	m.mutex.Lock()
	lobbies := m.lobbies
	m.lobbies = make(map[string]*Lobby)
	m.monitor.SetActiveLobbies(0)
	m.mutex.Unlock()

	for _, l := range lobbies {
		if g := l.Game(); g != nil {
			g.Stop()
		}
	}
}
