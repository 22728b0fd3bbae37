package state

import (
	"errors"
	"sync"
)

// StateMachine drives a set of named states.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine is a StateMachine guarded by a mutex. Until the first
// AddTransition any change is allowed; after that only registered
// transitions whose condition holds are.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	history      []string
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
		history:      []string{initialState.GetID()},
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	if len(sm.transitions) > 0 {
		condition, exists := sm.transitions[currentID][newID]
		if !exists {
			return ErrTransitionNotAllowed
		}
		if condition != nil && !condition() {
			return ErrTransitionNotAllowed
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.history = append(sm.history, newID)
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// History returns the IDs of every state entered, oldest first.
func (sm *BaseStateMachine) History() []string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	history := make([]string, len(sm.history))
	copy(history, sm.history)
	return history
}

// BaseState is a State with no-op hooks; embed it and override what you need.
type BaseState struct {
	ID string
}

func (s *BaseState) GetID() string {
	return s.ID
}

func (s *BaseState) OnEnter() {}

func (s *BaseState) OnExit() {}
