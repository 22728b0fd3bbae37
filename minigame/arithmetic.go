package minigame

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const ArithmeticName = "arithmetic"

// Arithmetic asks one sum, difference or product whose operands grow with
// the difficulty tier.
type Arithmetic struct {
	*Base
	a, b     int
	operator string
	answer   int
}

// NewArithmetic generates a problem for difficulty d using rng. A nil rng
// uses a time-seeded source.
func NewArithmetic(d int, rng *rand.Rand) *Arithmetic {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g := &Arithmetic{Base: NewBase(d)}
	switch {
	case d <= 1:
		g.a, g.b = between(rng, 1, 10), between(rng, 1, 10)
		g.operator, g.answer = "+", g.a+g.b
	case d == 2:
		g.a, g.b = between(rng, 10, 50), between(rng, 1, 10)
		g.operator, g.answer = "-", g.a-g.b
	default:
		g.a, g.b = between(rng, 5, 12), between(rng, 5, 12)
		g.operator, g.answer = "*", g.a*g.b
	}
	return g
}

func NewArithmeticFactory() Factory {
	return func(difficulty int, rng *rand.Rand) Minigame {
		return NewArithmetic(difficulty, rng)
	}
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func (g *Arithmetic) Problem() string {
	return fmt.Sprintf("%d %s %d", g.a, g.operator, g.b)
}

func (g *Arithmetic) Operands() (int, int) {
	return g.a, g.b
}

func (g *Arithmetic) Answer() int {
	return g.answer
}

func (g *Arithmetic) Instructions() string {
	return "Solve the math problem: " + g.Problem()
}

func (g *Arithmetic) Start() {}

func (g *Arithmetic) ProcessInput(playerID int64, raw string) bool {
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return val == g.answer
}

// CheckWinCondition is always false; the round timer decides completion.
func (g *Arithmetic) CheckWinCondition(playerID int64) bool {
	return false
}
