package eval

import (
	"math"

	"github.com/hailam/aaschess/internal/board"
)

// PolicyValue scores a position for tree search. Given the legal moves of
// pos it returns one prior per move (same order) and a value in [-1, 1]
// from the side to move's view.
type PolicyValue interface {
	Infer(pos *board.Position, moves []board.Move) (priors []float64, value float64)
}

// Heuristic derives priors from one-ply static evaluations and the value
// from the static evaluation of pos. It lets the tree search run without a
// learned network.
type Heuristic struct {
	Eval Evaluator
	// Temperature in centipawns for the prior softmax. Lower is sharper.
	Temperature float64
	// ValueScale is the centipawn score mapped to a value of tanh(1).
	ValueScale float64
}

// NewHeuristic returns a Heuristic over ev with the default scales.
func NewHeuristic(ev Evaluator) Heuristic {
	if ev == nil {
		ev = Material
	}
	return Heuristic{Eval: ev, Temperature: 100, ValueScale: 400}
}

// Infer implements PolicyValue.
func (h Heuristic) Infer(pos *board.Position, moves []board.Move) ([]float64, float64) {
	ev := h.Eval
	if ev == nil {
		ev = Material
	}
	scale := h.ValueScale
	if scale <= 0 {
		scale = 400
	}
	value := math.Tanh(float64(ev.Evaluate(pos)) / scale)

	logits := make([]float64, len(moves))
	temp := h.Temperature
	if temp <= 0 {
		temp = 100
	}
	for i, m := range moves {
		logits[i] = -float64(ev.Evaluate(pos.Apply(m))) / temp
	}
	return Softmax(logits), value
}

// Softmax normalises logits into a distribution. The maximum is subtracted
// first so large logits do not overflow.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	hi := logits[0]
	for _, l := range logits[1:] {
		hi = math.Max(hi, l)
	}
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(l - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Uniform assigns equal priors and a neutral value.
type Uniform struct{}

// Infer implements PolicyValue.
func (Uniform) Infer(_ *board.Position, moves []board.Move) ([]float64, float64) {
	priors := make([]float64, len(moves))
	for i := range priors {
		priors[i] = 1 / float64(len(moves))
	}
	return priors, 0
}
