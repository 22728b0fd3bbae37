package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/wfunc/eduparty/config"
	"github.com/wfunc/eduparty/minigame"
)

// ScoringPolicy decides what repeated correct answers in one round earn.
type ScoringPolicy string

const (
	// OncePerRound awards points for a player's first correct answer only.
	OncePerRound ScoringPolicy = "once_per_round"
	// Accumulate awards points for every correct answer.
	Accumulate ScoringPolicy = "accumulate"
)

func ParseScoringPolicy(s string) (ScoringPolicy, error) {
	switch ScoringPolicy(s) {
	case OncePerRound, Accumulate:
		return ScoringPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown scoring policy %q", s)
	}
}

type Settings struct {
	MaxRounds        int
	RoundDuration    time.Duration
	EliminationPause time.Duration
	CorrectPoints    int
	Scoring          ScoringPolicy
	// EarlyFinish ends a round as soon as every alive player has submitted.
	EarlyFinish bool
	NewMinigame minigame.Factory
	// Rand seeds minigame generation; nil means a time-seeded source.
	Rand *rand.Rand
}

func DefaultSettings() Settings {
	return Settings{
		MaxRounds:        4,
		RoundDuration:    30 * time.Second,
		EliminationPause: 3 * time.Second,
		CorrectPoints:    100,
		Scoring:          OncePerRound,
		NewMinigame:      minigame.NewArithmeticFactory(),
	}
}

// SettingsFromConfig builds Settings from the game section of the config,
// resolving the minigame by name in reg.
func SettingsFromConfig(cfg config.GameConfig, reg *minigame.Registry) (Settings, error) {
	s := DefaultSettings()
	if cfg.MaxRounds > 0 {
		s.MaxRounds = cfg.MaxRounds
	}
	if cfg.RoundDuration > 0 {
		s.RoundDuration = cfg.RoundDuration
	}
	if cfg.EliminationPause >= 0 {
		s.EliminationPause = cfg.EliminationPause
	}
	if cfg.CorrectPoints > 0 {
		s.CorrectPoints = cfg.CorrectPoints
	}
	s.EarlyFinish = cfg.EarlyFinish

	if cfg.ScoringPolicy != "" {
		policy, err := ParseScoringPolicy(cfg.ScoringPolicy)
		if err != nil {
			return s, err
		}
		s.Scoring = policy
	}

	if cfg.Minigame != "" {
		factory, err := reg.Get(cfg.Minigame)
		if err != nil {
			return s, err
		}
		s.NewMinigame = factory
	}
	return s, nil
}
