package minigame

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic_DifficultyOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		g := NewArithmetic(1, rng)
		a, b := g.Operands()

		require.GreaterOrEqual(t, a, 1)
		require.LessOrEqual(t, a, 10)
		require.GreaterOrEqual(t, b, 1)
		require.LessOrEqual(t, b, 10)
		require.Equal(t, a+b, g.Answer())
		require.True(t, g.ProcessInput(7, strconv.Itoa(a+b)))
	}
}

func TestArithmetic_DifficultyTwo(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		g := NewArithmetic(2, rng)
		a, b := g.Operands()

		require.GreaterOrEqual(t, a, 10)
		require.LessOrEqual(t, a, 50)
		require.GreaterOrEqual(t, b, 1)
		require.LessOrEqual(t, b, 10)
		require.Equal(t, a-b, g.Answer())
	}
}

func TestArithmetic_DifficultyThreeAndAbove(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, d := range []int{3, 4, 9} {
		for i := 0; i < 200; i++ {
			g := NewArithmetic(d, rng)
			a, b := g.Operands()

			require.GreaterOrEqual(t, a, 5)
			require.LessOrEqual(t, a, 12)
			require.GreaterOrEqual(t, b, 5)
			require.LessOrEqual(t, b, 12)
			require.Equal(t, a*b, g.Answer())
			require.Equal(t, d, g.Difficulty())
		}
	}
}

func TestArithmetic_ProcessInput(t *testing.T) {
	g := NewArithmetic(1, rand.New(rand.NewSource(4)))
	answer := strconv.Itoa(g.Answer())

	assert.True(t, g.ProcessInput(1, answer))
	assert.True(t, g.ProcessInput(1, " "+answer+"\n"))
	assert.False(t, g.ProcessInput(1, strconv.Itoa(g.Answer()+1)))
	assert.False(t, g.ProcessInput(1, "banana"))
	assert.False(t, g.ProcessInput(1, ""))
	assert.False(t, g.ProcessInput(1, answer+".0"))
	assert.False(t, g.ProcessInput(1, "99999999999999999999999"))
}

func TestArithmetic_Instructions(t *testing.T) {
	g := NewArithmetic(3, rand.New(rand.NewSource(5)))
	a, b := g.Operands()

	assert.Equal(t, "Solve the math problem: "+strconv.Itoa(a)+" * "+strconv.Itoa(b), g.Instructions())
	assert.False(t, g.CheckWinCondition(1))
}

func TestBase_Finish(t *testing.T) {
	g := NewArithmetic(1, nil)
	assert.False(t, g.Completed())
	g.Finish()
	assert.True(t, g.Completed())
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{ArithmeticName}, r.Names())

	f, err := r.Get(ArithmeticName)
	require.NoError(t, err)
	assert.Equal(t, 2, f(2, nil).Difficulty())

	_, err = r.Get("trivia")
	assert.ErrorIs(t, err, ErrUnknownMinigame)
}
