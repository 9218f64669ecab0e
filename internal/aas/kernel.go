package aas

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

// Plan is the allocator's answer for one position.
type Plan struct {
	Entropy   float64
	Gradient  EntropyGradient
	Budget    Budget
	Subspaces []Subspace
	// Ranked lists the legal moves by branch value, highest first.
	Ranked []board.Move
}

// Snapshot is the persistable state of a Kernel.
type Snapshot struct {
	Weights  Weights         `json:"weights"`
	Gradient EntropyGradient `json:"gradient"`
	Plans    uint64          `json:"plans"`
}

// Kernel is the stateful allocator. It owns the entropy gradient and the
// branch-value weights. Safe for concurrent use.
type Kernel struct {
	cfg    Config
	ev     eval.Evaluator
	logger *slog.Logger

	mu       sync.Mutex
	weights  Weights
	gradient EntropyGradient
	plans    uint64
}

// NewKernel returns a kernel scoring positions with ev. A nil ev falls back
// to material counting and a nil logger to slog.Default().
func NewKernel(cfg Config, ev eval.Evaluator, logger *slog.Logger) *Kernel {
	if ev == nil {
		ev = eval.Material
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kernel{
		cfg:     cfg,
		ev:      ev,
		logger:  logger.With("component", "aas"),
		weights: cfg.Weights,
	}
}

// Plan measures pos, records the reading in the gradient history and
// returns the resulting budget and move decomposition. Each call advances
// the gradient by exactly one reading.
func (k *Kernel) Plan(pos *board.Position) Plan {
	w := k.Weights()
	ranked := rankMoves(pos, pos.LegalMoves(), w)
	entropy := stateEntropy(pos, ranked, k.ev, k.cfg.Entropy)

	k.mu.Lock()
	k.gradient = k.gradient.Observe(entropy, k.cfg.HistoryLength)
	g := k.gradient
	k.plans++
	k.mu.Unlock()

	p := Plan{
		Entropy:   entropy,
		Gradient:  g,
		Budget:    Allocate(g, k.cfg.Allocator),
		Subspaces: split(ranked),
		Ranked:    make([]board.Move, len(ranked)),
	}
	for i, sm := range ranked {
		p.Ranked[i] = sm.move
	}

	k.logger.Debug("plan",
		"entropy", entropy,
		"delta", g.Delta,
		"trend", g.Trend(),
		"budget", p.Budget.String(),
		"subspaces", len(p.Subspaces))
	return p
}

// Record feeds the chosen move back into the weights. Accuracy is high when
// the move ranked near the top of the branch-value order the plan predicted.
func (k *Kernel) Record(pos *board.Position, plan Plan, chosen board.Move) Weights {
	idx := slices.Index(plan.Ranked, chosen)
	if idx < 0 || len(plan.Ranked) < 2 {
		return k.Weights()
	}
	acc := 1 - float64(idx)/float64(len(plan.Ranked)-1)
	return k.Mutate(Feedback{Features: Features(pos, chosen), Accuracy: acc})
}

// Mutate applies one bounded mutation step and returns the new weights.
func (k *Kernel) Mutate(fb Feedback) Weights {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.weights = k.weights.Mutate(fb, k.cfg.Mutation)
	return k.weights
}

// Weights returns the current branch-value weights.
func (k *Kernel) Weights() Weights {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.weights
}

// Gradient returns a copy of the current entropy gradient.
func (k *Kernel) Gradient() EntropyGradient {
	k.mu.Lock()
	defer k.mu.Unlock()
	g := k.gradient
	g.History = slices.Clone(g.History)
	return g
}

// Snapshot captures the state for persistence.
func (k *Kernel) Snapshot() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	g := k.gradient
	g.History = slices.Clone(g.History)
	return Snapshot{Weights: k.weights, Gradient: g, Plans: k.plans}
}

// Restore replaces the state with s. Weights are clamped into the
// configured bounds.
func (k *Kernel) Restore(s Snapshot) {
	m := k.cfg.Mutation
	w := Weights{
		Capture:   clamp(s.Weights.Capture, m.MinWeight, m.MaxWeight),
		Check:     clamp(s.Weights.Check, m.MinWeight, m.MaxWeight),
		Center:    clamp(s.Weights.Center, m.MinWeight, m.MaxWeight),
		Promotion: clamp(s.Weights.Promotion, m.MinWeight, m.MaxWeight),
	}
	g := s.Gradient
	if n := len(g.History); n > k.cfg.HistoryLength {
		g.History = g.History[n-k.cfg.HistoryLength:]
	}
	g.History = slices.Clone(g.History)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.weights, k.gradient, k.plans = w, g, s.Plans
}

// Reset forgets the game history but keeps the learned weights.
func (k *Kernel) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gradient = EntropyGradient{}
}
