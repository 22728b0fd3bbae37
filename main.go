package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfunc/eduparty/config"
	"github.com/wfunc/eduparty/game"
	"github.com/wfunc/eduparty/lobby"
	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/minigame"
	"github.com/wfunc/eduparty/monitor"
	"github.com/wfunc/eduparty/persistence"
	"github.com/wfunc/eduparty/server"
	"github.com/wfunc/eduparty/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	settings, err := game.SettingsFromConfig(cfg.Game, minigame.DefaultRegistry())
	if err != nil {
		logger.Log.Fatalf("Invalid game configuration: %v", err)
	}

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	var playerService *services.PlayerService
	if db != nil {
		defer db.Close()
		playerService = services.NewPlayerService(db, cfg.Game.Minigame)
		logger.Log.Infof("Result store ready (%s)", cfg.Database.Driver)
	} else {
		logger.Log.Warn("No result store configured; game results are not recorded")
	}

	mon := monitor.NewMonitor("eduparty")

	gameServer := server.NewGameServer(server.Options{
		Server:          cfg.Server,
		CleanupInterval: cfg.Lobby.CleanupInterval,
		MinPlayers:      cfg.Game.MinPlayers,
		Settings:        settings,
		Lobbies:         lobby.NewManager(mon),
		PlayerService:   playerService,
		Monitor:         mon,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(ctx); err != nil {
		logger.Log.Errorf("Server stopped: %v", err)
		return
	}
	logger.Log.Info("Server stopped")
}

// openDatabase returns the configured result store, or nil for "none".
func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "memory", "":
		return persistence.NewMemory(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
