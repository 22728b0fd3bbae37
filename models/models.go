// models/models.go
package models

import (
	"time"
)

// GameRecord is one finished game as stored by the result store.
type GameRecord struct {
	LobbyCode string       `json:"lobby_code"`
	GameType  string       `json:"game_type"`
	Outcome   string       `json:"outcome"` // winner/draw/no_one
	WinnerID  *int64       `json:"winner_id,omitempty"`
	Rounds    int          `json:"rounds"`
	Players   []PlayerInfo `json:"players"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}

// PlayerInfo 玩家信息（用于游戏记录）
type PlayerInfo struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"` // win/lose/draw
	Points  int    `json:"points"`
}

// PlayerStats is a player's win/loss history.
type PlayerStats struct {
	UserID     int64 `json:"user_id"`
	Wins       int   `json:"wins"`
	TotalGames int   `json:"total_games"`
}

func (s PlayerStats) Losses() int {
	return s.TotalGames - s.Wins
}
