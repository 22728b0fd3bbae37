// Package game runs one lobby's match: rounds, elimination and the final
// winner.
package game

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/eduparty/lobby"
	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/minigame"
	"github.com/wfunc/eduparty/monitor"
	"github.com/wfunc/eduparty/network"
	"github.com/wfunc/eduparty/state"
	"github.com/wfunc/eduparty/timer"
)

const recordTimeout = 5 * time.Second

// Session is the round state machine for one lobby. Scores, alive flags,
// the round counter and the active minigame only change under mu.
type Session struct {
	lobby    *lobby.Lobby
	settings Settings
	recorder Recorder
	monitor  *monitor.Monitor
	rng      *rand.Rand

	mu           sync.Mutex
	round        int
	active       minigame.Minigame
	// scored and submitted are keyed by user ID so a reconnect within a
	// round keeps its state.
	scored       map[int64]bool
	submitted    map[int64]bool
	early        chan struct{}
	earlyClosed  bool
	seq          uint64
	participants []*lobby.Player
	outcome      *Outcome
	startedAt    time.Time

	machine *state.BaseStateMachine
	phases  map[Phase]state.State

	started atomic.Bool
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSession binds a session to l. recorder and mon may be nil.
func NewSession(l *lobby.Lobby, settings Settings, recorder Recorder, mon *monitor.Monitor) *Session {
	if settings.NewMinigame == nil {
		settings.NewMinigame = minigame.NewArithmeticFactory()
	}
	rng := settings.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		lobby:    l,
		settings: settings,
		recorder: recorder,
		monitor:  mon,
		rng:      rng,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.machine, s.phases = newPhaseMachine(l.Code, s.roundsLeft)
	s.running.Store(true)
	return s
}

func (s *Session) roundsLeft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round < s.settings.MaxRounds
}

func (s *Session) setPhase(p Phase) {
	if err := s.machine.ChangeState(s.phases[p]); err != nil {
		logger.Log.Errorf("Lobby %s: cannot enter %s from %s: %v", s.lobby.Code, p, s.Phase(), err)
	}
}

func (s *Session) Phase() Phase {
	return Phase(s.machine.GetCurrentState().GetID())
}

func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

func (s *Session) Running() bool {
	return s.running.Load()
}

// Done is closed when Start returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome is the final result, or nil if the game was stopped before its
// last round ended.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Stop asks the round loop to end. An open input window is interrupted at
// once. Safe to call any number of times, from any goroutine.
func (s *Session) Stop() {
	s.running.Store(false)
	s.cancel()
}

// Start runs the game to completion and blocks until it ends. Cancelling
// ctx has the same effect as Stop. A session runs at most once.
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer close(s.done)
	defer s.lobby.DetachGame(s)

	stopOnParent := context.AfterFunc(ctx, s.Stop)
	defer stopOnParent()

	s.monitor.GameStarted()
	logger.Log.Infof("Lobby %s: game started", s.lobby.Code)

	s.mu.Lock()
	s.startedAt = time.Now()
	s.participants = s.lobby.Players()
	for _, p := range s.participants {
		p.ResetForGame()
	}
	s.mu.Unlock()

	s.lobby.Broadcast(network.NewEvent(network.EvtGameStart))

	for s.Round() < s.settings.MaxRounds && s.running.Load() {
		round := s.playRound()
		if !s.running.Load() {
			break
		}

		if round < s.settings.MaxRounds {
			s.setPhase(PhaseLogicCheck)
			if s.logicCheckElimination() {
				timer.Window(s.ctx, s.settings.EliminationPause, nil)
			}
		} else {
			s.setPhase(PhaseGameOver)
			s.declareWinner()
		}
	}

	if s.Phase() != PhaseGameOver {
		s.setPhase(PhaseGameOver)
	}
	s.running.Store(false)
	s.cancel()
	s.finish()
}

// playRound runs one challenge window and returns its round number.
func (s *Session) playRound() int {
	s.mu.Lock()
	s.round++
	round := s.round
	s.active = s.settings.NewMinigame(round, s.rng)
	s.active.Start()
	s.scored = make(map[int64]bool)
	s.submitted = make(map[int64]bool)
	s.early = make(chan struct{})
	s.earlyClosed = false
	instructions := s.active.Instructions()
	early := s.early
	s.mu.Unlock()

	s.setPhase(PhaseRoundActive)
	logger.Log.Infof("Lobby %s: round %d started", s.lobby.Code, round)

	s.lobby.Broadcast(network.RoundStartEvent{
		Type:        network.EvtRoundStart,
		Round:       round,
		Instruction: instructions,
	})

	var earlyCh <-chan struct{}
	if s.settings.EarlyFinish {
		earlyCh = early
	}
	res := timer.Window(s.ctx, s.settings.RoundDuration, earlyCh)

	s.mu.Lock()
	s.active.Finish()
	s.active = nil
	s.mu.Unlock()

	logger.Log.Infof("Lobby %s: round %d ended (%s)", s.lobby.Code, round, res)
	s.lobby.Broadcast(network.NewEvent(network.EvtRoundEnd))
	return round
}

// HandleInput evaluates one answer against the active minigame. Input
// outside a round, or from a player who is eliminated or no longer in the
// lobby, is ignored.
func (s *Session) HandleInput(p *lobby.Player, raw string) {
	s.mu.Lock()
	if s.active == nil || !p.IsAlive() || !s.lobby.Contains(p) {
		s.mu.Unlock()
		return
	}

	correct := s.active.ProcessInput(p.ID, raw)
	ev := network.GameStateEvent{Type: network.EvtGameState, Correct: correct}
	switch {
	case !correct:
		ev.Msg = "Wrong!"
		ev.Score = p.Score()
	case s.settings.Scoring == OncePerRound && s.scored[p.ID]:
		ev.Msg = "Already scored"
		ev.Score = p.Score()
	default:
		s.seq++
		ev.Msg = "Correct!"
		ev.Score = p.AddScore(s.settings.CorrectPoints, s.seq)
		s.scored[p.ID] = true
	}

	s.submitted[p.ID] = true
	if s.settings.EarlyFinish && !s.earlyClosed && s.allAliveSubmitted() {
		s.earlyClosed = true
		close(s.early)
	}
	s.mu.Unlock()

	s.monitor.ObserveAnswer(correct)
	s.lobby.Send(p, ev)
}

// allAliveSubmitted must be called with mu held.
func (s *Session) allAliveSubmitted() bool {
	alive := s.lobby.AlivePlayers()
	if len(alive) == 0 {
		return false
	}
	for _, p := range alive {
		if !s.submitted[p.ID] {
			return false
		}
	}
	return true
}

// ranked returns the alive members ordered best first: higher score, then
// the earlier latest scoring event, then earlier join. Call with mu held.
func (s *Session) ranked() []*lobby.Player {
	alive := s.lobby.AlivePlayers()
	sort.SliceStable(alive, func(i, j int) bool {
		a, b := alive[i], alive[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		return scoredBefore(a.ScoredAt(), b.ScoredAt())
	})
	return alive
}

// scoredBefore orders scoring sequence numbers, with 0 (never scored) last.
func scoredBefore(a, b uint64) bool {
	if a == 0 {
		return false
	}
	if b == 0 {
		return true
	}
	return a < b
}

// logicCheckElimination keeps the top half of alive players (rounded
// down) and eliminates the rest. With one or no alive player it does
// nothing and returns false.
func (s *Session) logicCheckElimination() bool {
	s.mu.Lock()
	alive := s.ranked()
	if len(alive) <= 1 {
		s.mu.Unlock()
		return false
	}

	survivorCount := len(alive) / 2
	survivors, eliminated := alive[:survivorCount], alive[survivorCount:]
	for _, p := range eliminated {
		p.Eliminate()
	}
	for _, p := range survivors {
		p.ResetScore()
	}
	s.mu.Unlock()

	for _, p := range eliminated {
		s.lobby.Send(p, network.NewEvent(network.EvtEliminated))
	}
	s.lobby.Broadcast(network.LogicCheckEvent{
		Type:            network.EvtLogicCheck,
		AliveCount:      len(survivors),
		EliminatedCount: len(eliminated),
	})

	s.monitor.AddEliminations(len(eliminated))
	logger.Log.Infof("Lobby %s: logic check kept %d, eliminated %d", s.lobby.Code, len(survivors), len(eliminated))
	return true
}

// declareWinner announces the best alive player, a draw if nobody alive
// scored, or "No One" if nobody is alive.
func (s *Session) declareWinner() {
	s.mu.Lock()
	ranked := s.ranked()

	outcome := Outcome{
		LobbyCode: s.lobby.Code,
		Rounds:    s.round,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	for _, p := range s.participants {
		if current, ok := s.lobby.Member(p.ID); ok {
			p = current
		}
		outcome.Participants = append(outcome.Participants, Participant{
			ID:       p.ID,
			Username: p.Username,
			Score:    p.Score(),
			Alive:    p.IsAlive(),
		})
	}

	ev := network.GameOverEvent{Type: network.EvtGameOver}
	switch {
	case len(ranked) == 0:
		outcome.Kind = OutcomeNoOne
		ev.Winner = noOneText
	case ranked[0].Score() == 0:
		outcome.Kind = OutcomeDraw
		ev.Winner = drawText
	default:
		winner := ranked[0]
		outcome.Kind = OutcomeWinner
		outcome.WinnerID = winner.ID
		outcome.WinnerName = winner.Username
		ev.Winner = winner.Username
		ev.WinnerID = &winner.ID
	}
	s.outcome = &outcome
	s.mu.Unlock()

	logger.Log.Infof("Lobby %s: game over, %s %s", s.lobby.Code, outcome.Kind, outcome.WinnerName)
	s.lobby.Broadcast(ev)
}

func (s *Session) finish() {
	outcome := s.Outcome()
	if outcome == nil {
		s.monitor.GameFinished("stopped")
		logger.Log.Infof("Lobby %s: game stopped", s.lobby.Code)
		return
	}
	s.monitor.GameFinished(string(outcome.Kind))

	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordOutcome(ctx, *outcome); err != nil {
		logger.Log.Errorf("Lobby %s: failed to record outcome: %v", s.lobby.Code, err)
	}
}
