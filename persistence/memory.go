// persistence/memory.go
package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/eduparty/models"
)

// Memory keeps results in process. Used when no database is configured
// and in tests.
type Memory struct {
	mu      sync.RWMutex
	records []models.GameRecord
	stats   map[int64]*models.PlayerStats
}

func NewMemory() *Memory {
	return &Memory{stats: make(map[int64]*models.PlayerStats)}
}

func (m *Memory) SaveGameResult(ctx context.Context, record *models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, *record)
	for _, player := range record.Players {
		s, ok := m.stats[player.UserID]
		if !ok {
			s = &models.PlayerStats{UserID: player.UserID}
			m.stats[player.UserID] = s
		}
		s.TotalGames++
		s.Wins += winIncrement(record, player.UserID)
	}
	return nil
}

func (m *Memory) GetPlayerStats(ctx context.Context, userID int64) (*models.PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *s
	return &out, nil
}

// Records returns a copy of every saved game.
func (m *Memory) Records() []models.GameRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.GameRecord(nil), m.records...)
}

func (m *Memory) Close() error { return nil }
