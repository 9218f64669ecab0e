package mcts

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

// noParent marks the root's parent slot.
const noParent int32 = -1

// node is one arena slot. valueSum is kept from the view of the player who
// made node.move, so a parent reads it directly as Q for its own choice.
type node struct {
	parent   int32
	move     board.Move
	pos      *board.Position
	children []int32
	childIdx map[board.Move]int32
	visits   int
	valueSum float64
	prior    float64
	depth    int

	expanded      bool
	terminal      bool
	terminalValue float64
}

func (n *node) q() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.valueSum / float64(n.visits)
}

// ChildStats describes a root child after search.
type ChildStats struct {
	Move   board.Move
	Visits int
	Prior  float64
	// Q is the mean value from the root side to move's view.
	Q float64
}

// Tree is an arena-allocated search tree rooted at one position. A Tree is
// not safe for concurrent use.
type Tree struct {
	cfg   Config
	pv    eval.PolicyValue
	rng   *rand.Rand
	nodes []node

	simulations int
	maxDepth    int

	// rootMoves restricts the root expansion when set.
	rootMoves []board.Move
}

// NewTree builds a tree rooted at pos and expands the root. Root noise is
// mixed into the priors here, before any selection. A nil pv falls back to
// the material heuristic. rootMoves, when given, limits the root children;
// a list sharing no legal move is ignored.
func NewTree(pos *board.Position, pv eval.PolicyValue, cfg Config, rootMoves ...board.Move) *Tree {
	if pv == nil {
		pv = eval.NewHeuristic(eval.Material)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	t := &Tree{
		cfg:   cfg,
		pv:    pv,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		nodes: make([]node, 1, 1024),

		rootMoves: rootMoves,
	}
	t.nodes[0] = node{parent: noParent, pos: pos}
	t.expand(0)
	if cfg.DirichletEpsilon > 0 && len(t.nodes[0].children) > 1 {
		t.addNoise(0)
	}
	return t
}

// Root returns the root position.
func (t *Tree) Root() *board.Position { return t.nodes[0].pos }

// Size returns the number of nodes in the arena.
func (t *Tree) Size() int { return len(t.nodes) }

// Simulations returns the number of completed simulations.
func (t *Tree) Simulations() int { return t.simulations }

// MaxDepth returns the deepest ply reached by selection.
func (t *Tree) MaxDepth() int { return t.maxDepth }

// Visits returns the root visit count.
func (t *Tree) Visits() int { return t.nodes[0].visits }

// Simulate runs one selection, expansion, evaluation and backpropagation
// pass.
func (t *Tree) Simulate() {
	idx := int32(0)
	for {
		n := &t.nodes[idx]
		if !n.expanded || n.terminal || len(n.children) == 0 {
			break
		}
		idx = t.selectChild(idx)
	}

	var v float64
	if n := &t.nodes[idx]; n.terminal {
		v = n.terminalValue
	} else {
		v = t.expand(idx)
	}
	if d := t.nodes[idx].depth; d > t.maxDepth {
		t.maxDepth = d
	}
	t.backprop(idx, v)
	t.simulations++
}

// selectChild returns the child of idx maximising the PUCT score. The first
// child in generation order wins ties.
func (t *Tree) selectChild(idx int32) int32 {
	parent := &t.nodes[idx]
	// An unvisited parent uses 1 so the first pick follows the priors.
	sqrtN := math.Sqrt(float64(max(parent.visits, 1)))
	best := parent.children[0]
	bestScore := math.Inf(-1)
	for _, c := range parent.children {
		child := &t.nodes[c]
		score := child.q() + t.cfg.CPuct*child.prior*sqrtN/float64(1+child.visits)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// expand creates one child per legal move of idx and returns the value of
// idx from its side to move's view.
func (t *Tree) expand(idx int32) float64 {
	n := &t.nodes[idx]
	n.expanded = true
	pos := n.pos

	// Draws end the line before move generation so ply > 0 repetitions
	// score as 0 even with moves available.
	if idx != 0 && pos.IsDraw() {
		n.terminal = true
		n.terminalValue = 0
		return 0
	}
	moves := pos.LegalMoves()
	if idx == 0 {
		moves = restrict(moves, t.rootMoves)
	}
	if len(moves) == 0 {
		n.terminal = true
		if pos.InCheck() {
			n.terminalValue = -1
		}
		return n.terminalValue
	}

	priors, value := t.pv.Infer(pos, moves)
	priors = normalise(priors, len(moves))
	value = clampUnit(value)

	depth := n.depth + 1
	base := int32(len(t.nodes))
	children := make([]int32, len(moves))
	childIdx := make(map[board.Move]int32, len(moves))
	for i, m := range moves {
		t.nodes = append(t.nodes, node{
			parent: idx,
			move:   m,
			pos:    pos.Apply(m),
			prior:  priors[i],
			depth:  depth,
		})
		children[i] = base + int32(i)
		childIdx[m] = base + int32(i)
	}
	// append may have moved the arena; re-resolve the slot.
	n = &t.nodes[idx]
	n.children = children
	n.childIdx = childIdx
	return value
}

// backprop adds one visit on the path from idx to the root. v is the value
// of idx from its side to move's view, so the first update stores -v.
func (t *Tree) backprop(idx int32, v float64) {
	v = -v
	for idx != noParent {
		n := &t.nodes[idx]
		n.visits++
		n.valueSum += v
		v = -v
		idx = n.parent
	}
}

func (t *Tree) addNoise(idx int32) {
	n := &t.nodes[idx]
	noise := dirichlet(t.rng, t.cfg.DirichletAlpha, len(n.children))
	eps := t.cfg.DirichletEpsilon
	for i, c := range n.children {
		child := &t.nodes[c]
		child.prior = (1-eps)*child.prior + eps*noise[i]
	}
}

// Children returns statistics for the root's children in generation order.
func (t *Tree) Children() []ChildStats {
	root := &t.nodes[0]
	out := make([]ChildStats, len(root.children))
	for i, c := range root.children {
		child := &t.nodes[c]
		out[i] = ChildStats{
			Move:   child.move,
			Visits: child.visits,
			Prior:  child.prior,
			Q:      child.q(),
		}
	}
	return out
}

// Child returns the statistics of the root child reached by m.
func (t *Tree) Child(m board.Move) (ChildStats, bool) {
	c, ok := t.nodes[0].childIdx[m]
	if !ok {
		return ChildStats{}, false
	}
	child := &t.nodes[c]
	return ChildStats{Move: m, Visits: child.visits, Prior: child.prior, Q: child.q()}, true
}

// PV follows the most visited child from the root.
func (t *Tree) PV() []board.Move {
	var pv []board.Move
	idx := int32(0)
	for {
		n := &t.nodes[idx]
		if len(n.children) == 0 {
			return pv
		}
		best, bestVisits := int32(-1), 0
		for _, c := range n.children {
			if v := t.nodes[c].visits; v > bestVisits {
				best, bestVisits = c, v
			}
		}
		if best < 0 {
			return pv
		}
		pv = append(pv, t.nodes[best].move)
		idx = best
	}
}

func restrict(moves, only []board.Move) []board.Move {
	if len(only) == 0 {
		return moves
	}
	var out []board.Move
	for _, m := range moves {
		if slices.Contains(only, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return moves
	}
	return out
}

// normalise returns priors scaled to sum to one, or a uniform distribution
// when priors has the wrong length, negative or non-finite entries, or no
// mass.
func normalise(priors []float64, n int) []float64 {
	uniform := func() []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = 1 / float64(n)
		}
		return out
	}
	if len(priors) != n {
		return uniform()
	}
	sum := 0.0
	for _, p := range priors {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return uniform()
		}
		sum += p
	}
	if sum <= 0 {
		return uniform()
	}
	out := make([]float64, n)
	for i, p := range priors {
		out[i] = p / sum
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
