// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/eduparty/models"
)

// Database stores finished games and per-player statistics.
type Database interface {
	// SaveGameResult stores record and bumps every listed player's stats,
	// atomically.
	SaveGameResult(ctx context.Context, record *models.GameRecord) error
	GetPlayerStats(ctx context.Context, userID int64) (*models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// winIncrement is 1 for the record's winner and 0 for everyone else.
func winIncrement(record *models.GameRecord, userID int64) int {
	if record.WinnerID != nil && *record.WinnerID == userID {
		return 1
	}
	return 0
}

func dsn(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}
