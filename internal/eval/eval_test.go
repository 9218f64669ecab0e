package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/aaschess/internal/board"
)

func TestClassicalStartIsBalanced(t *testing.T) {
	pos := board.StartPosition()
	// Only the tempo bonus separates the sides.
	assert.Equal(t, tempo, Classical{}.Evaluate(pos))
}

func TestClassicalIsSideRelative(t *testing.T) {
	white, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 w - - 0 1")
	require.NoError(t, err)
	black, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 b - - 0 1")
	require.NoError(t, err)

	w := Classical{}.Evaluate(white)
	b := Classical{}.Evaluate(black)
	assert.Greater(t, w, 800)
	assert.Less(t, b, -800)
	assert.Equal(t, w-tempo, -(b - tempo))
}

func TestClassicalMirrorsTables(t *testing.T) {
	// An advanced white pawn is worth more than one on its home square.
	home, err := board.ParseFEN("4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	require.NoError(t, err)
	advanced, err := board.ParseFEN("4k3/4P3/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	assert.Greater(t, Classical{}.Evaluate(advanced), Classical{}.Evaluate(home))
}

func TestMaterial(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, -500, Material.Evaluate(pos))
	assert.Equal(t, 0, Material.Evaluate(board.StartPosition()))
}

func TestHeuristicPriors(t *testing.T) {
	// White can take a hanging queen.
	pos, err := board.ParseFEN("4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1")
	require.NoError(t, err)

	moves := pos.LegalMoves()
	priors, value := NewHeuristic(Material).Infer(pos, moves)
	require.Len(t, priors, len(moves))

	sum, best := 0.0, 0
	for i, p := range priors {
		sum += p
		if p > priors[best] {
			best = i
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, "d2d5", moves[best].String())
	assert.Less(t, value, 0.0)
	assert.GreaterOrEqual(t, value, -1.0)
}

func TestSoftmaxStable(t *testing.T) {
	out := Softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, out[0], 1e-12)
	assert.False(t, math.IsNaN(out[1]))
	assert.Empty(t, Softmax(nil))
}

func TestUniform(t *testing.T) {
	moves := board.StartPosition().LegalMoves()
	priors, value := Uniform{}.Infer(board.StartPosition(), moves)
	assert.Zero(t, value)
	for _, p := range priors {
		assert.InDelta(t, 1.0/20, p, 1e-12)
	}
}
