package game

import (
	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/state"
)

type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseRoundActive Phase = "ROUND_ACTIVE"
	PhaseLogicCheck  Phase = "LOGIC_CHECK"
	PhaseGameOver    Phase = "GAME_OVER"
)

type phaseState struct {
	state.BaseState
	lobbyCode string
}

func (p *phaseState) OnEnter() {
	logger.Log.Debugf("Lobby %s entered %s", p.lobbyCode, p.ID)
}

// newPhaseMachine wires the round loop's legal transitions. ROUND_ACTIVE
// may only lead to LOGIC_CHECK while rounds remain.
func newPhaseMachine(lobbyCode string, roundsLeft func() bool) (*state.BaseStateMachine, map[Phase]state.State) {
	phases := map[Phase]state.State{}
	for _, id := range []Phase{PhaseInit, PhaseRoundActive, PhaseLogicCheck, PhaseGameOver} {
		phases[id] = &phaseState{BaseState: state.BaseState{ID: string(id)}, lobbyCode: lobbyCode}
	}

	sm := state.NewBaseStateMachine(phases[PhaseInit])
	sm.AddTransition(phases[PhaseInit], phases[PhaseRoundActive], nil)
	sm.AddTransition(phases[PhaseInit], phases[PhaseGameOver], nil)
	sm.AddTransition(phases[PhaseRoundActive], phases[PhaseLogicCheck], roundsLeft)
	sm.AddTransition(phases[PhaseRoundActive], phases[PhaseGameOver], nil)
	sm.AddTransition(phases[PhaseLogicCheck], phases[PhaseRoundActive], nil)
	sm.AddTransition(phases[PhaseLogicCheck], phases[PhaseGameOver], nil)
	return sm, phases
}
