// lobby/lobby.go
package lobby

import (
	"sync"
	"time"

	"github.com/thoas/go-funk"
	"github.com/wfunc/eduparty/broadcast"
	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/monitor"
	"github.com/wfunc/eduparty/network"
)

// Lobby is one match's membership. Player order is join order and decides
// host succession.
type Lobby struct {
	Code      string
	CreatedAt time.Time

	mu      sync.RWMutex
	players []*Player
	game    Game
	closed  bool
	monitor *monitor.Monitor
}

func NewLobby(code string, mon *monitor.Monitor) *Lobby {
	return &Lobby{
		Code:      code,
		CreatedAt: time.Now(),
		monitor:   mon,
	}
}

// Connect appends p, makes them host if the lobby was empty, and sends the
// new roster to everyone. A player joining while a game runs spectates
// until the next game.
//
// A member with the same ID is a previous connection of the same user: p
// takes its place in join order along with its host flag, alive flag and
// score, and the old connection is closed.
func (l *Lobby) Connect(p *Player) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLobbyClosed
	}
	var replaced *Player
	for i, existing := range l.players {
		if existing == p {
			l.mu.Unlock()
			return nil
		}
		if existing.ID == p.ID {
			replaced = existing
			p.takeOver(existing)
			l.players[i] = p
			break
		}
	}
	if replaced == nil {
		if len(l.players) == 0 {
			p.setHost(true)
		}
		if l.game != nil {
			p.Eliminate()
		}
		l.players = append(l.players, p)
	}
	l.mu.Unlock()

	if replaced != nil {
		logger.Log.Infof("Player %d (%s) reconnected to lobby %s", p.ID, p.Username, l.Code)
		if err := replaced.Conn.Close(); err != nil {
			logger.Log.Debugf("Lobby %s: closing replaced connection of player %d: %v", l.Code, p.ID, err)
		}
	} else {
		logger.Log.Infof("Player %d (%s) joined lobby %s", p.ID, p.Username, l.Code)
	}
	l.BroadcastPlayerList()
	return nil
}

// Member returns the current member with the given ID.
func (l *Lobby) Member(id int64) (*Player, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Disconnect removes p and hands host to the earliest remaining joiner if
// p was host. The roster is re-broadcast. It reports whether p was a member.
func (l *Lobby) Disconnect(p *Player) bool {
	l.mu.Lock()
	idx := -1
	for i, existing := range l.players {
		if existing == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return false
	}

	l.players = append(l.players[:idx:idx], l.players[idx+1:]...)
	wasHost := p.IsHost()
	p.setHost(false)
	var newHost *Player
	if wasHost && len(l.players) > 0 {
		newHost = l.players[0]
		newHost.setHost(true)
	}
	remaining := len(l.players)
	l.mu.Unlock()

	logger.Log.Infof("Player %d (%s) left lobby %s, %d remaining", p.ID, p.Username, l.Code, remaining)
	if newHost != nil {
		logger.Log.Infof("Lobby %s host migrated to player %d", l.Code, newHost.ID)
	}
	if remaining > 0 {
		l.BroadcastPlayerList()
	}
	return true
}

// Broadcast delivers msg to every current member independently. Failed
// recipients are logged and marked stale for the next cleanup pass; they
// are never removed here.
func (l *Lobby) Broadcast(msg interface{}) broadcast.Report {
	report := broadcast.Fanout(l.Players(), msg)
	l.recordFailures(report.Failures())
	return report
}

// Send delivers a private message with the same failure handling as Broadcast.
func (l *Lobby) Send(p *Player, msg interface{}) broadcast.Delivery {
	d := broadcast.Deliver(p, msg)
	if d.Status == broadcast.Failed {
		l.recordFailures([]broadcast.Delivery{d})
	}
	return d
}

func (l *Lobby) recordFailures(failures []broadcast.Delivery) {
	if len(failures) == 0 {
		return
	}
	l.monitor.AddBroadcastFailures(len(failures))

	for _, f := range failures {
		logger.Log.Warnf("Lobby %s: delivery to player %d failed: %v", l.Code, f.RecipientID, f.Err)
		// The failed connection itself; a reconnect may now hold the same ID.
		if p, ok := f.Recipient.(*Player); ok {
			p.markStale()
		}
	}
}

func (l *Lobby) BroadcastPlayerList() broadcast.Report {
	return l.Broadcast(network.PlayerListEvent{Type: network.EvtPlayerList, Players: l.Roster()})
}

// Players returns the members in join order.
func (l *Lobby) Players() []*Player {
	l.mu.RLock()
	defer l.mu.RUnlock()

	players := make([]*Player, len(l.players))
	copy(players, l.players)
	return players
}

// AlivePlayers returns the members still in the game, in join order.
func (l *Lobby) AlivePlayers() []*Player {
	return funk.Filter(l.Players(), func(p *Player) bool {
		return p.IsAlive()
	}).([]*Player)
}

func (l *Lobby) Contains(p *Player) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, existing := range l.players {
		if existing == p {
			return true
		}
	}
	return false
}

func (l *Lobby) Host() *Player {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.players {
		if p.IsHost() {
			return p
		}
	}
	return nil
}

func (l *Lobby) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players)
}

func (l *Lobby) Roster() []network.PlayerInfo {
	players := l.Players()
	roster := make([]network.PlayerInfo, 0, len(players))
	for _, p := range players {
		roster = append(roster, p.Info())
	}
	return roster
}

// AttachGame records g as the lobby's running game.
func (l *Lobby) AttachGame(g Game) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLobbyClosed
	}
	if l.game != nil {
		return ErrGameInProgress
	}
	l.game = g
	return nil
}

// DetachGame clears the running game if it is still g.
func (l *Lobby) DetachGame(g Game) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.game == g {
		l.game = nil
	}
}

func (l *Lobby) Game() Game {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.game
}

// reapStale disconnects every member whose last delivery failed and closes
// their connections.
func (l *Lobby) reapStale() int {
	stale := funk.Filter(l.Players(), func(p *Player) bool {
		return p.IsStale()
	}).([]*Player)

	for _, p := range stale {
		if l.Disconnect(p) {
			logger.Log.Infof("Lobby %s: reaped stale player %d", l.Code, p.ID)
			if err := p.Conn.Close(); err != nil {
				logger.Log.Debugf("Lobby %s: closing stale connection of player %d: %v", l.Code, p.ID, err)
			}
		}
	}
	return len(stale)
}

// closeIfEmpty marks an empty lobby closed so no one can join it after it
// is deregistered. It returns whether the lobby closed and its game, if any.
func (l *Lobby) closeIfEmpty() (bool, Game) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.players) > 0 {
		return false, nil
	}
	l.closed = true
	g := l.game
	l.game = nil
	return true, g
}
