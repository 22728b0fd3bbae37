package network

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Client -> server commands.
const (
	CmdCreate    = "CREATE"
	CmdJoin      = "JOIN"
	CmdStartGame = "START_GAME"
	CmdGameInput = "GAME_INPUT"
)

// Server -> client event types.
const (
	EvtLobbyCreated = "LOBBY_CREATED"
	EvtLobbyJoined  = "LOBBY_JOINED"
	EvtError        = "ERROR"
	EvtPlayerList   = "PLAYER_LIST"
	EvtGameStart    = "GAME_START"
	EvtRoundStart   = "ROUND_START"
	EvtRoundEnd     = "ROUND_END"
	EvtLogicCheck   = "LOGIC_CHECK"
	EvtEliminated   = "ELIMINATED"
	EvtGameOver     = "GAME_OVER"
	EvtGameState    = "gamestate"
)

// Command is the envelope every client message arrives in.
type Command struct {
	Command  string          `json:"command"`
	Username string          `json:"username,omitempty"`
	Code     string          `json:"code,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// CommandLabel maps a client-sent command name onto the fixed set used for
// metrics labels. Anything unrecognised is "unknown".
func CommandLabel(command string) string {
	switch command {
	case CmdCreate, CmdJoin, CmdStartGame, CmdGameInput:
		return command
	default:
		return "unknown"
	}
}

// InputText returns the GAME_INPUT payload as text. Clients send either a
// JSON string or a bare number; anything else is returned verbatim.
// Numbers are normalised first, so 12.0 and 1.2e1 both become "12", while
// the string "12.0" is passed through unchanged and fails integer parsing.
func (c *Command) InputText() string {
	raw := bytes.TrimSpace(c.Input)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if n, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return string(raw)
}

// Event is a server message with no payload besides its type.
type Event struct {
	Type string `json:"type"`
}

type LobbyCodeEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type ErrorEvent struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type PlayerInfo struct {
	Username string `json:"username"`
	IsHost   bool   `json:"is_host"`
	ID       int64  `json:"id"`
}

type PlayerListEvent struct {
	Type    string       `json:"type"`
	Players []PlayerInfo `json:"players"`
}

type RoundStartEvent struct {
	Type        string `json:"type"`
	Round       int    `json:"round"`
	Instruction string `json:"instruction"`
}

type LogicCheckEvent struct {
	Type            string `json:"type"`
	AliveCount      int    `json:"alive_count"`
	EliminatedCount int    `json:"eliminated_count"`
}

type GameOverEvent struct {
	Type     string `json:"type"`
	Winner   string `json:"winner"`
	WinnerID *int64 `json:"winner_id,omitempty"`
}

// GameStateEvent is the private acknowledgement of one GAME_INPUT.
type GameStateEvent struct {
	Type    string `json:"type"`
	Msg     string `json:"msg"`
	Correct bool   `json:"correct"`
	Score   int    `json:"score"`
}

func NewEvent(eventType string) Event {
	return Event{Type: eventType}
}

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EvtError, Msg: msg}
}
