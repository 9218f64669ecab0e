package mcts

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

// progressEvery is the number of simulations between progress reports and
// deadline checks.
const progressEvery = 64

// Limits bounds one search. Zero values fall back to the config.
type Limits struct {
	Simulations int
	MoveTime    time.Duration
	// CPuctScale multiplies the configured exploration constant.
	CPuctScale float64
	// RootMoves restricts the moves searched at the root.
	RootMoves []board.Move
	// Infinite runs until ctx is done unless Simulations or MoveTime is set.
	Infinite bool
	// OnProgress receives periodic snapshots of the running search.
	OnProgress func(Info)
}

// Info is a progress report.
type Info struct {
	Simulations int
	Depth       int
	Nodes       int
	Elapsed     time.Duration
	Best        board.Move
	Value       float64
}

// Result is the outcome of a search.
type Result struct {
	Move board.Move
	// Value is the root child's mean value in [-1, 1] from the side to move.
	Value float64
	// Score is Value expressed in centipawns.
	Score       int
	Simulations int
	Nodes       int
	Depth       int
	Elapsed     time.Duration
	PV          []board.Move
	Children    []ChildStats
	Outcome     board.Outcome
}

// Searcher runs tree searches with a fixed evaluator and config.
type Searcher struct {
	cfg    Config
	pv     eval.PolicyValue
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSearcher returns a searcher. A nil pv uses the material heuristic and a
// nil logger slog.Default().
func NewSearcher(cfg Config, pv eval.PolicyValue, logger *slog.Logger) *Searcher {
	if pv == nil {
		pv = eval.NewHeuristic(eval.Material)
	}
	if logger == nil {
		logger = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Searcher{
		cfg:    cfg,
		pv:     pv,
		rng:    rand.New(rand.NewPCG(seed, ^seed)),
		logger: logger.With("component", "mcts"),
	}
}

// Config returns the searcher's settings.
func (s *Searcher) Config() Config { return s.cfg }

// Search builds a fresh tree at pos and runs simulations until the budget
// is spent or ctx is done. Cancellation is checked between simulations.
func (s *Searcher) Search(ctx context.Context, pos *board.Position, limits Limits) Result {
	start := time.Now()
	cfg := s.cfg
	if limits.CPuctScale > 0 {
		cfg.CPuct *= limits.CPuctScale
	}
	// Each tree draws its noise seed from the searcher so repeated searches
	// with a fixed seed are reproducible as a sequence.
	cfg.Seed = s.rng.Uint64() | 1

	if !pos.HasLegalMoves() {
		return Result{Outcome: pos.Outcome(), Elapsed: time.Since(start)}
	}

	sims := limits.Simulations
	moveTime := limits.MoveTime
	if sims <= 0 && moveTime <= 0 && !limits.Infinite {
		sims = cfg.Simulations
	}
	if sims <= 0 {
		sims = math.MaxInt
	}
	var deadline time.Time
	switch {
	case moveTime > 0:
		deadline = start.Add(moveTime)
	case limits.Infinite:
	case cfg.MaxTime > 0:
		deadline = start.Add(cfg.MaxTime)
	}

	tree := NewTree(pos, s.pv, cfg, limits.RootMoves...)
	for tree.Simulations() < sims {
		if ctx.Err() != nil {
			break
		}
		tree.Simulate()
		if tree.Simulations()%progressEvery == 0 {
			if !deadline.IsZero() && time.Now().After(deadline) {
				break
			}
			if limits.OnProgress != nil {
				limits.OnProgress(s.info(tree, start))
			}
		}
	}

	res := s.result(tree, pos, start)
	if out := pos.Outcome(); out.IsTerminal() {
		res.Outcome = out
		res.Value, res.Score = 0, 0
	}
	s.logger.Debug("search finished",
		"move", res.Move.String(),
		"simulations", res.Simulations,
		"nodes", res.Nodes,
		"value", res.Value,
		"elapsed", res.Elapsed)
	return res
}

func (s *Searcher) info(tree *Tree, start time.Time) Info {
	m, q := mostVisited(tree.Children())
	return Info{
		Simulations: tree.Simulations(),
		Depth:       tree.MaxDepth(),
		Nodes:       tree.Size(),
		Elapsed:     time.Since(start),
		Best:        m,
		Value:       q,
	}
}

func (s *Searcher) result(tree *Tree, pos *board.Position, start time.Time) Result {
	children := tree.Children()
	move := s.choose(children, pos.Ply())
	var value float64
	for _, c := range children {
		if c.Move == move {
			value = c.Q
		}
	}
	return Result{
		Move:        move,
		Value:       value,
		Score:       ValueToScore(value),
		Simulations: tree.Simulations(),
		Nodes:       tree.Size(),
		Depth:       tree.MaxDepth(),
		Elapsed:     time.Since(start),
		PV:          tree.PV(),
		Children:    children,
		Outcome:     board.Ongoing,
	}
}

// choose picks the final move: arg-max visits from TemperaturePlies on or
// when the temperature is near zero, otherwise a sample proportional to
// visits^(1/T).
func (s *Searcher) choose(children []ChildStats, ply int) board.Move {
	if len(children) == 0 {
		return board.NoMove
	}
	temp := s.cfg.Temperature
	if ply >= s.cfg.TemperaturePlies || temp <= 0.01 {
		m, _ := mostVisited(children)
		return m
	}
	weights := make([]float64, len(children))
	total := 0.0
	for i, c := range children {
		weights[i] = math.Pow(float64(c.Visits), 1/temp)
		total += weights[i]
	}
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		m, _ := mostVisited(children)
		return m
	}
	r := s.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return children[i].Move
		}
	}
	return children[len(children)-1].Move
}

// mostVisited returns the first child with the highest visit count.
func mostVisited(children []ChildStats) (board.Move, float64) {
	if len(children) == 0 {
		return board.NoMove, 0
	}
	best := 0
	for i, c := range children {
		if c.Visits > children[best].Visits {
			best = i
		}
	}
	return children[best].Move, children[best].Q
}

// ValueToScore maps a value in [-1, 1] to centipawns, inverting the
// heuristic's tanh(cp/400).
func ValueToScore(v float64) int {
	v = math.Max(-0.999, math.Min(0.999, v))
	return int(math.Round(400 * math.Atanh(v)))
}
