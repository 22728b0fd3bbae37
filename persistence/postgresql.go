// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/eduparty/models"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
)

// PostgreSQL is the plain database/sql variant of the result store.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables creates the tables that GormPostgreSQL would auto-migrate.
func initTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_stats (
            id SERIAL PRIMARY KEY,
            user_id BIGINT UNIQUE NOT NULL,
            wins INTEGER NOT NULL DEFAULT 0,
            total_games INTEGER NOT NULL DEFAULT 0,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            lobby_code VARCHAR(8) NOT NULL,
            game_type VARCHAR(100) NOT NULL,
            outcome VARCHAR(16) NOT NULL,
            winner_id BIGINT,
            rounds INTEGER NOT NULL DEFAULT 0,
            players JSONB NOT NULL,
            started_at TIMESTAMP,
            ended_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_game_records_lobby_code ON game_records(lobby_code)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveGameResult 保存游戏记录并更新玩家统计
func (p *PostgreSQL) SaveGameResult(ctx context.Context, record *models.GameRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO game_records (lobby_code, game_type, outcome, winner_id, rounds, players, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, record.LobbyCode, record.GameType, record.Outcome, record.WinnerID, record.Rounds,
		playersJSON, record.StartedAt, record.EndedAt)
	if err != nil {
		return err
	}

	for _, player := range record.Players {
		win := winIncrement(record, player.UserID)
		_, err = tx.ExecContext(ctx, `
            INSERT INTO game_stats (user_id, wins, total_games)
            VALUES ($1, $2, 1)
            ON CONFLICT (user_id) DO UPDATE
            SET wins = game_stats.wins + EXCLUDED.wins,
                total_games = game_stats.total_games + 1,
                updated_at = CURRENT_TIMESTAMP
        `, player.UserID, win)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPlayerStats 获取玩家统计
func (p *PostgreSQL) GetPlayerStats(ctx context.Context, userID int64) (*models.PlayerStats, error) {
	stats := &models.PlayerStats{UserID: userID}
	err := p.db.QueryRowContext(ctx,
		"SELECT wins, total_games FROM game_stats WHERE user_id = $1",
		userID,
	).Scan(&stats.Wins, &stats.TotalGames)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
