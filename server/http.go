package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/network"
)

type statusResponse struct {
	Status       string `json:"status"`
	Lobbies      int    `json:"lobbies"`
	Sessions     int    `json:"sessions"`
	IdleSessions int    `json:"idle_sessions"`
	Uptime       string `json:"uptime"`
}

type lobbyResponse struct {
	Code    string               `json:"code"`
	HostID  *int64               `json:"host_id,omitempty"`
	InGame  bool                 `json:"in_game"`
	Players []network.PlayerInfo `json:"players"`
	Created time.Time            `json:"created_at"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("Writing response: %v", err)
	}
}

func (s *GameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	idle := 0
	if hb := s.opts.Server.Heartbeat; hb > 0 {
		idle = len(s.sessionManager.IdleSince(time.Now().Add(-hb)))
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:       "online",
		Lobbies:      s.lobbyManager.Count(),
		Sessions:     s.sessionManager.Count(),
		IdleSessions: idle,
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

func (s *GameServer) handleLobby(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lobbyManager.GetLobby(chi.URLParam(r, "code"))
	if !ok {
		writeJSON(w, http.StatusNotFound, network.NewError("Lobby not found"))
		return
	}
	resp := lobbyResponse{
		Code:    l.Code,
		InGame:  l.Game() != nil,
		Players: l.Roster(),
		Created: l.CreatedAt,
	}
	if host := l.Host(); host != nil {
		resp.HostID = &host.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
