// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormUser is an account known to the auth service.
type GormUser struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Elo          int    `gorm:"default:1000"`
}

func (GormUser) TableName() string { return "users" }

// GormGameStat 玩家统计
type GormGameStat struct {
	ID         uint  `gorm:"primaryKey"`
	UserID     int64 `gorm:"uniqueIndex;not null"`
	Wins       int   `gorm:"default:0;not null"`
	TotalGames int   `gorm:"default:0;not null"`
	UpdatedAt  time.Time
}

func (GormGameStat) TableName() string { return "game_stats" }

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	LobbyCode string       `gorm:"index;not null"`
	GameType  string       `gorm:"not null"`
	Outcome   string       `gorm:"not null"`
	WinnerID  *int64       `gorm:"index"`
	Rounds    int          `gorm:"default:0"`
	Players   []PlayerInfo `gorm:"type:jsonb;serializer:json"`
	StartedAt time.Time
	EndedAt   time.Time
}

func (GormGameRecord) TableName() string { return "game_records" }

func NewGormGameRecord(r *GameRecord) *GormGameRecord {
	return &GormGameRecord{
		LobbyCode: r.LobbyCode,
		GameType:  r.GameType,
		Outcome:   r.Outcome,
		WinnerID:  r.WinnerID,
		Rounds:    r.Rounds,
		Players:   r.Players,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
}
