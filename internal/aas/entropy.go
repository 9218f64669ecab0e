package aas

import (
	"math"
	"slices"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

// scoredMove pairs a move with its branch value and features.
type scoredMove struct {
	move     board.Move
	features Feature
	value    float64
}

// rankMoves scores every move and sorts by branch value, highest first.
// Equal values keep generation order.
func rankMoves(pos *board.Position, moves []board.Move, w Weights) []scoredMove {
	out := make([]scoredMove, len(moves))
	for i, m := range moves {
		f := Features(pos, m)
		out[i] = scoredMove{move: m, features: f, value: branchValue(pos, m, f, w)}
	}
	slices.SortStableFunc(out, func(a, b scoredMove) int {
		switch {
		case a.value > b.value:
			return -1
		case a.value < b.value:
			return 1
		}
		return 0
	})
	return out
}

// StateEntropy measures how open the position is. It is
// MobilityWeight*ln(n+1) + EvalWeight*H, where n is the legal move count and
// H the Shannon entropy (nats) of a softmax over the one-ply evaluations of
// the SampleCap most promising moves. A position without moves has entropy 0
// and a forced reply has cfg.Forced.
func StateEntropy(pos *board.Position, ev eval.Evaluator, w Weights, cfg EntropyConfig) float64 {
	moves := pos.LegalMoves()
	return stateEntropy(pos, rankMoves(pos, moves, w), ev, cfg)
}

func stateEntropy(pos *board.Position, ranked []scoredMove, ev eval.Evaluator, cfg EntropyConfig) float64 {
	switch len(ranked) {
	case 0:
		return 0
	case 1:
		return cfg.Forced
	}
	if ev == nil {
		ev = eval.Material
	}
	sample := ranked
	if cfg.SampleCap > 0 && len(sample) > cfg.SampleCap {
		sample = sample[:cfg.SampleCap]
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 1
	}
	logits := make([]float64, len(sample))
	for i, sm := range sample {
		// Child scores are from the opponent's view.
		pawns := -float64(ev.Evaluate(pos.Apply(sm.move))) / 100
		logits[i] = pawns / temp
	}
	return cfg.MobilityWeight*math.Log(float64(len(ranked)+1)) + cfg.EvalWeight*shannon(eval.Softmax(logits))
}

// shannon returns the entropy of p in nats.
func shannon(p []float64) float64 {
	h := 0.0
	for _, x := range p {
		if x > 0 {
			h -= x * math.Log(x)
		}
	}
	return math.Max(h, 0)
}
