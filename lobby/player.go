package lobby

import (
	"sync"

	"github.com/wfunc/eduparty/network"
)

// Player is a connected participant and their state in the current match.
type Player struct {
	Conn     network.Connection
	Username string
	ID       int64

	mu       sync.RWMutex
	alive    bool
	host     bool
	score    int
	scoredAt uint64
	stale    bool
}

func NewPlayer(conn network.Connection, username string, id int64) *Player {
	return &Player{
		Conn:     conn,
		Username: username,
		ID:       id,
		alive:    true,
	}
}

func (p *Player) GetID() int64 {
	return p.ID
}

func (p *Player) Send(v interface{}) error {
	return p.Conn.Send(v)
}

func (p *Player) IsAlive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.alive
}

// Eliminate marks the player out of the current game. It cannot be undone
// until the next game resets the player.
func (p *Player) Eliminate() {
	p.mu.Lock()
	p.alive = false
	p.mu.Unlock()
}

func (p *Player) IsHost() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.host
}

func (p *Player) setHost(host bool) {
	p.mu.Lock()
	p.host = host
	p.mu.Unlock()
}

func (p *Player) Score() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.score
}

// ScoredAt is the sequence number of the player's latest scoring event in
// the current round, or 0 if they have not scored.
func (p *Player) ScoredAt() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scoredAt
}

// AddScore adds points and stamps the scoring event with seq. It returns
// the new score.
func (p *Player) AddScore(points int, seq uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.score += points
	p.scoredAt = seq
	return p.score
}

func (p *Player) ResetScore() {
	p.mu.Lock()
	p.score = 0
	p.scoredAt = 0
	p.mu.Unlock()
}

// ResetForGame readies the player for a new game: alive with no score.
func (p *Player) ResetForGame() {
	p.mu.Lock()
	p.alive = true
	p.score = 0
	p.scoredAt = 0
	p.mu.Unlock()
}

// takeOver copies prev's match state into p and strips prev of host.
func (p *Player) takeOver(prev *Player) {
	prev.mu.Lock()
	alive, host, score, scoredAt := prev.alive, prev.host, prev.score, prev.scoredAt
	prev.host = false
	prev.mu.Unlock()

	p.mu.Lock()
	p.alive, p.host, p.score, p.scoredAt = alive, host, score, scoredAt
	p.mu.Unlock()
}

func (p *Player) IsStale() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stale
}

func (p *Player) markStale() {
	p.mu.Lock()
	p.stale = true
	p.mu.Unlock()
}

func (p *Player) Info() network.PlayerInfo {
	return network.PlayerInfo{Username: p.Username, IsHost: p.IsHost(), ID: p.ID}
}
