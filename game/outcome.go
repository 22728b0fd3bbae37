package game

import (
	"context"
	"time"
)

type OutcomeKind string

const (
	OutcomeWinner OutcomeKind = "winner"
	OutcomeDraw   OutcomeKind = "draw"
	OutcomeNoOne  OutcomeKind = "no_one"
)

const (
	drawText  = "Draw (No Score)"
	noOneText = "No One"
)

// Participant is one player's final standing.
type Participant struct {
	ID       int64
	Username string
	Score    int
	Alive    bool
}

// Outcome is the result of a game that reached its final round.
type Outcome struct {
	LobbyCode    string
	Kind         OutcomeKind
	WinnerID     int64
	WinnerName   string
	Rounds       int
	Participants []Participant
	StartedAt    time.Time
	EndedAt      time.Time
}

// Recorder persists finished games. It is called once per game that
// reaches GAME_OVER normally.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}
