// Package minigame defines the per-round challenge contract and its
// implementations.
package minigame

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// Minigame is one round's challenge. Implementations must be safe for
// concurrent ProcessInput calls.
type Minigame interface {
	// Instructions is the prompt shown to players for this round.
	Instructions() string
	Start()
	// ProcessInput evaluates one submission. Malformed input is incorrect,
	// never an error.
	ProcessInput(playerID int64, raw string) bool
	CheckWinCondition(playerID int64) bool
	Difficulty() int
	Completed() bool
	Finish()
}

// Factory builds a minigame for a difficulty tier.
type Factory func(difficulty int, rng *rand.Rand) Minigame

// Base carries the state every minigame shares.
type Base struct {
	difficulty int
	mu         sync.RWMutex
	completed  bool
}

func NewBase(difficulty int) *Base {
	return &Base{difficulty: difficulty}
}

func (b *Base) Difficulty() int {
	return b.difficulty
}

func (b *Base) Completed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.completed
}

func (b *Base) Finish() {
	b.mu.Lock()
	b.completed = true
	b.mu.Unlock()
}

// Registry maps minigame names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in minigame.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ArithmeticName, NewArithmeticFactory())
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("minigame %q: %w", name, ErrUnknownMinigame)
	}
	return f, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
