package rpc

import (
	"context"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/eduparty/game"
	"github.com/wfunc/eduparty/persistence"
	"github.com/wfunc/eduparty/services"
)

func TestGetPlayerStatsOverRPC(t *testing.T) {
	ps := services.NewPlayerService(persistence.NewMemory(), "arithmetic")
	require.NoError(t, ps.RecordOutcome(context.Background(), game.Outcome{
		LobbyCode:    "0001",
		Kind:         game.OutcomeWinner,
		WinnerID:     7,
		Participants: []game.Participant{{ID: 7}, {ID: 8}},
	}))

	srv, err := NewServer("127.0.0.1:0", ps)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	defer func() {
		srv.Stop()
		assert.NoError(t, <-done)
	}()

	client, err := rpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer client.Close()

	var reply GetPlayerStatsReply
	require.NoError(t, client.Call("GameService.GetPlayerStats", &GetPlayerStatsArgs{UserID: 7}, &reply))
	assert.Equal(t, int64(7), reply.Stats.UserID)
	assert.Equal(t, 1, reply.Stats.Wins)
	assert.Equal(t, 1, reply.Stats.TotalGames)

	var unknown GetPlayerStatsReply
	require.NoError(t, client.Call("GameService.GetPlayerStats", &GetPlayerStatsArgs{UserID: 99}, &unknown))
	assert.Equal(t, 0, unknown.Stats.TotalGames)
}
