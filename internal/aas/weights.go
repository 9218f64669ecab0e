package aas

import (
	"math"

	"github.com/hailam/aaschess/internal/board"
)

// Feature is a bit set of the move properties BranchValue rewards.
type Feature uint8

const (
	FeatureCapture Feature = 1 << iota
	FeatureCheck
	FeatureCenter
	FeaturePromotion
)

// Features classifies m in pos.
func Features(pos *board.Position, m board.Move) Feature {
	var f Feature
	if pos.IsCapture(m) {
		f |= FeatureCapture
	}
	if m.IsPromotion() {
		f |= FeaturePromotion
	}
	if board.Center.Has(m.To) {
		f |= FeatureCenter
	}
	if pos.GivesCheck(m) {
		f |= FeatureCheck
	}
	return f
}

// Tactical reports whether the move is forcing: a capture, check or promotion.
func (f Feature) Tactical() bool {
	return f&(FeatureCapture|FeatureCheck|FeaturePromotion) != 0
}

// Weights are the multipliers BranchValue applies per feature.
type Weights struct {
	Capture   float64 `yaml:"capture" json:"capture" validate:"gt=0"`
	Check     float64 `yaml:"check" json:"check" validate:"gt=0"`
	Center    float64 `yaml:"center" json:"center" validate:"gt=0"`
	Promotion float64 `yaml:"promotion" json:"promotion" validate:"gt=0"`
}

// DefaultWeights returns the starting multipliers.
func DefaultWeights() Weights {
	return Weights{Capture: 2.0, Check: 1.5, Center: 1.2, Promotion: 3.0}
}

// BranchValue scores how promising m looks. The score only orders moves;
// nothing is pruned on it. A move with no rewarded feature scores 1.
func BranchValue(pos *board.Position, m board.Move, w Weights) float64 {
	return branchValue(pos, m, Features(pos, m), w)
}

func branchValue(pos *board.Position, m board.Move, f Feature, w Weights) float64 {
	v := 1.0
	if f&FeatureCapture != 0 {
		victim := pos.CapturedType(m).Value()
		v *= w.Capture * (1 + float64(victim)/1000)
	}
	if f&FeatureCheck != 0 {
		v *= w.Check
	}
	if f&FeatureCenter != 0 {
		v *= w.Center
	}
	if f&FeaturePromotion != 0 {
		v *= w.Promotion * float64(m.Promotion.Value()) / float64(board.Queen.Value())
	}
	return v
}

// Feedback reports how well the weights predicted a search outcome.
// Accuracy outside [0, 1] is clamped.
type Feedback struct {
	Features Feature
	Accuracy float64
}

// Mutate nudges the weights of the features present in fb. The step is
// Rate*(Accuracy-0.5), capped at MaxStep either way, and every weight stays
// within [MinWeight, MaxWeight].
func (w Weights) Mutate(fb Feedback, cfg MutationConfig) Weights {
	acc := clamp(fb.Accuracy, 0, 1)
	if math.IsNaN(acc) {
		return w
	}
	step := clamp(cfg.Rate*(acc-0.5), -cfg.MaxStep, cfg.MaxStep)
	nudge := func(v float64, f Feature) float64 {
		if fb.Features&f == 0 {
			return v
		}
		return clamp(v*(1+step), cfg.MinWeight, cfg.MaxWeight)
	}
	return Weights{
		Capture:   nudge(w.Capture, FeatureCapture),
		Check:     nudge(w.Check, FeatureCheck),
		Center:    nudge(w.Center, FeatureCenter),
		Promotion: nudge(w.Promotion, FeaturePromotion),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
