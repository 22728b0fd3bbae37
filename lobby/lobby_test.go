package lobby

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/eduparty/broadcast"
	"github.com/wfunc/eduparty/network"
)

// MockConnection is a test double for network.Connection that records
// every message sent through it.
type MockConnection struct {
	mu      sync.Mutex
	sent    []interface{}
	sendErr error
	closed  atomic.Bool
}

func (m *MockConnection) Send(v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, v)
	return nil
}

func (m *MockConnection) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *MockConnection) ReadCommand() (*network.Command, error) { return nil, nil }
func (m *MockConnection) RemoteAddr() net.Addr                    { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)     {}

func (m *MockConnection) Sent() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interface{}, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockConnection) LastPlayerList(t *testing.T) network.PlayerListEvent {
	t.Helper()
	sent := m.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if ev, ok := sent[i].(network.PlayerListEvent); ok {
			return ev
		}
	}
	t.Fatal("no PLAYER_LIST received")
	return network.PlayerListEvent{}
}

type mockGame struct {
	stopped atomic.Bool
}

func (g *mockGame) HandleInput(p *Player, raw string) {}
func (g *mockGame) Stop()                             { g.stopped.Store(true) }

func newTestPlayer(id int64, name string) (*Player, *MockConnection) {
	conn := &MockConnection{}
	return NewPlayer(conn, name, id), conn
}

func hostCount(l *Lobby) int {
	n := 0
	for _, p := range l.Players() {
		if p.IsHost() {
			n++
		}
	}
	return n
}

func TestLobby_ConnectFirstPlayerIsHost(t *testing.T) {
	l := NewLobby("1234", nil)
	a, connA := newTestPlayer(1, "ana")
	b, connB := newTestPlayer(2, "ben")

	require.NoError(t, l.Connect(a))
	require.NoError(t, l.Connect(b))

	assert.True(t, a.IsHost())
	assert.False(t, b.IsHost())
	assert.Equal(t, 1, hostCount(l))
	assert.Same(t, a, l.Host())

	list := connB.LastPlayerList(t)
	assert.Equal(t, []network.PlayerInfo{
		{Username: "ana", IsHost: true, ID: 1},
		{Username: "ben", IsHost: false, ID: 2},
	}, list.Players)
	assert.Len(t, connA.LastPlayerList(t).Players, 2)
}

func TestLobby_ConnectTwiceIsNoop(t *testing.T) {
	l := NewLobby("1234", nil)
	a, _ := newTestPlayer(1, "ana")

	require.NoError(t, l.Connect(a))
	require.NoError(t, l.Connect(a))
	assert.Equal(t, 1, l.Len())
}

func TestLobby_HostMigration(t *testing.T) {
	l := NewLobby("1234", nil)
	a, _ := newTestPlayer(1, "a")
	b, connB := newTestPlayer(2, "b")
	c, _ := newTestPlayer(3, "c")
	for _, p := range []*Player{a, b, c} {
		require.NoError(t, l.Connect(p))
	}

	assert.True(t, l.Disconnect(a))
	assert.True(t, b.IsHost())
	assert.False(t, a.IsHost())
	assert.Equal(t, 1, hostCount(l))
	assert.Equal(t, []*Player{b, c}, l.Players())

	list := connB.LastPlayerList(t)
	require.Len(t, list.Players, 2)
	assert.True(t, list.Players[0].IsHost)

	assert.True(t, l.Disconnect(c))
	assert.True(t, b.IsHost())

	assert.True(t, l.Disconnect(b))
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Host())
}

func TestLobby_DisconnectNonHostKeepsHost(t *testing.T) {
	l := NewLobby("1234", nil)
	a, _ := newTestPlayer(1, "a")
	b, _ := newTestPlayer(2, "b")
	require.NoError(t, l.Connect(a))
	require.NoError(t, l.Connect(b))

	assert.True(t, l.Disconnect(b))
	assert.True(t, a.IsHost())
	assert.False(t, l.Disconnect(b))
}

func TestLobby_BroadcastIsolatesFailures(t *testing.T) {
	l := NewLobby("1234", nil)
	a, connA := newTestPlayer(1, "a")
	b, connB := newTestPlayer(2, "b")
	c, connC := newTestPlayer(3, "c")
	for _, p := range []*Player{a, b, c} {
		require.NoError(t, l.Connect(p))
	}
	connB.mu.Lock()
	connB.sendErr = errors.New("broken pipe")
	connB.mu.Unlock()

	before := len(connA.Sent())
	report := l.Broadcast(network.NewEvent(network.EvtRoundEnd))

	assert.Equal(t, 2, report.Delivered())
	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(2), failures[0].RecipientID)

	assert.Len(t, connA.Sent(), before+1)
	assert.Equal(t, network.NewEvent(network.EvtRoundEnd), connC.Sent()[len(connC.Sent())-1])

	// Not removed inline; only marked.
	assert.Equal(t, 3, l.Len())
	assert.True(t, b.IsStale())
	assert.False(t, a.IsStale())
}

func TestLobby_SendRecordsFailure(t *testing.T) {
	l := NewLobby("1234", nil)
	a, connA := newTestPlayer(1, "a")
	require.NoError(t, l.Connect(a))
	connA.mu.Lock()
	connA.sendErr = errors.New("closed")
	connA.mu.Unlock()

	d := l.Send(a, network.NewEvent(network.EvtEliminated))
	assert.Equal(t, broadcast.Failed, d.Status)
	assert.True(t, a.IsStale())
}

func TestLobby_AttachGame(t *testing.T) {
	l := NewLobby("1234", nil)
	g1, g2 := &mockGame{}, &mockGame{}

	assert.Nil(t, l.Game())
	require.NoError(t, l.AttachGame(g1))
	assert.ErrorIs(t, l.AttachGame(g2), ErrGameInProgress)

	l.DetachGame(g2)
	assert.Same(t, g1, l.Game())

	l.DetachGame(g1)
	assert.Nil(t, l.Game())
	require.NoError(t, l.AttachGame(g2))
}

func TestLobby_JoinDuringGameSpectates(t *testing.T) {
	l := NewLobby("1234", nil)
	a, _ := newTestPlayer(1, "a")
	require.NoError(t, l.Connect(a))
	require.NoError(t, l.AttachGame(&mockGame{}))

	late, _ := newTestPlayer(2, "late")
	require.NoError(t, l.Connect(late))

	assert.False(t, late.IsAlive())
	assert.Equal(t, []*Player{a}, l.AlivePlayers())
}

func TestPlayer_Scoring(t *testing.T) {
	p, _ := newTestPlayer(1, "a")
	assert.True(t, p.IsAlive())

	assert.Equal(t, 100, p.AddScore(100, 3))
	assert.Equal(t, 200, p.AddScore(100, 7))
	assert.Equal(t, uint64(7), p.ScoredAt())

	p.ResetScore()
	assert.Equal(t, 0, p.Score())
	assert.Equal(t, uint64(0), p.ScoredAt())

	p.Eliminate()
	assert.False(t, p.IsAlive())
	p.ResetForGame()
	assert.True(t, p.IsAlive())
}

func TestLobby_ReconnectReplacesMember(t *testing.T) {
	l := NewLobby("1234", nil)
	old, oldConn := newTestPlayer(7, "gus")
	a, _ := newTestPlayer(1, "ana")
	require.NoError(t, l.Connect(old))
	require.NoError(t, l.Connect(a))
	old.AddScore(100, 1)

	fresh, freshConn := newTestPlayer(7, "gus")
	require.NoError(t, l.Connect(fresh))

	assert.Equal(t, []*Player{fresh, a}, l.Players())
	assert.Same(t, fresh, l.Host())
	assert.False(t, old.IsHost())
	assert.Equal(t, 100, fresh.Score())
	assert.True(t, oldConn.closed.Load())
	assert.False(t, freshConn.closed.Load())
	assert.Len(t, freshConn.LastPlayerList(t).Players, 2)

	member, ok := l.Member(7)
	require.True(t, ok)
	assert.Same(t, fresh, member)
	assert.False(t, l.Disconnect(old), "replaced connection is no longer a member")
}

func TestLobby_ReconnectDuringGameKeepsAliveFlag(t *testing.T) {
	l := NewLobby("1234", nil)
	old, _ := newTestPlayer(7, "gus")
	require.NoError(t, l.Connect(old))
	require.NoError(t, l.AttachGame(&mockGame{}))

	fresh, _ := newTestPlayer(7, "gus")
	require.NoError(t, l.Connect(fresh))
	assert.True(t, fresh.IsAlive(), "a reconnect is not a spectator")
}
