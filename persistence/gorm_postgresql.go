// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/wfunc/eduparty/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn(host, port, user, password, dbname)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormUser{},
		&models.GormGameStat{},
		&models.GormGameRecord{},
	)
}

// SaveGameResult 保存游戏记录并更新玩家统计
func (p *GormPostgreSQL) SaveGameResult(ctx context.Context, record *models.GameRecord) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.NewGormGameRecord(record)).Error; err != nil {
			return err
		}

		for _, player := range record.Players {
			win := winIncrement(record, player.UserID)
			stat := models.GormGameStat{UserID: player.UserID, Wins: win, TotalGames: 1}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"total_games": gorm.Expr("game_stats.total_games + 1"),
					"wins":        gorm.Expr("game_stats.wins + ?", win),
					"updated_at":  time.Now(),
				}),
			}).Create(&stat).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPlayerStats 获取玩家统计
func (p *GormPostgreSQL) GetPlayerStats(ctx context.Context, userID int64) (*models.PlayerStats, error) {
	var stat models.GormGameStat
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.PlayerStats{UserID: stat.UserID, Wins: stat.Wins, TotalGames: stat.TotalGames}, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
