// services/player_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/eduparty/game"
	"github.com/wfunc/eduparty/models"
	"github.com/wfunc/eduparty/persistence"
)

// PlayerService records finished games and answers stats queries. It
// implements game.Recorder.
type PlayerService struct {
	db       persistence.Database
	gameType string
}

func NewPlayerService(db persistence.Database, gameType string) *PlayerService {
	return &PlayerService{db: db, gameType: gameType}
}

var _ game.Recorder = (*PlayerService)(nil)

// RecordOutcome 保存游戏结果并更新胜负统计
func (s *PlayerService) RecordOutcome(ctx context.Context, outcome game.Outcome) error {
	record := NewGameRecord(outcome, s.gameType)
	if err := s.db.SaveGameResult(ctx, record); err != nil {
		return fmt.Errorf("save game %s: %w", outcome.LobbyCode, err)
	}
	return nil
}

// GetPlayerStats returns a player's record. A player with no finished
// games gets zero stats rather than an error.
func (s *PlayerService) GetPlayerStats(ctx context.Context, userID int64) (*models.PlayerStats, error) {
	stats, err := s.db.GetPlayerStats(ctx, userID)
	switch {
	case errors.Is(err, persistence.ErrRecordNotFound):
		return &models.PlayerStats{UserID: userID}, nil
	case err != nil:
		return nil, fmt.Errorf("player %d stats: %w", userID, err)
	}
	return stats, nil
}

// NewGameRecord converts a game outcome into its stored form.
func NewGameRecord(outcome game.Outcome, gameType string) *models.GameRecord {
	record := &models.GameRecord{
		LobbyCode: outcome.LobbyCode,
		GameType:  gameType,
		Outcome:   string(outcome.Kind),
		Rounds:    outcome.Rounds,
		StartedAt: outcome.StartedAt,
		EndedAt:   outcome.EndedAt,
	}
	if outcome.Kind == game.OutcomeWinner {
		id := outcome.WinnerID
		record.WinnerID = &id
	}

	for _, p := range outcome.Participants {
		result := "lose"
		switch {
		case outcome.Kind == game.OutcomeDraw:
			result = "draw"
		case outcome.Kind == game.OutcomeWinner && p.ID == outcome.WinnerID:
			result = "win"
		}
		record.Players = append(record.Players, models.PlayerInfo{
			UserID:  p.ID,
			Name:    p.Username,
			Outcome: result,
			Points:  p.Score,
		})
	}
	return record
}
