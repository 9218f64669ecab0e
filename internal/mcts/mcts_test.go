package mcts

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.DirichletEpsilon = 0
	cfg.TemperaturePlies = 0
	cfg.Seed = 42
	return cfg
}

func TestVisitAccounting(t *testing.T) {
	tree := NewTree(board.StartPosition(), eval.NewHeuristic(eval.Default()), DefaultConfig())
	require.Len(t, tree.Children(), 20)

	prev := make([]int, 20)
	for i := 1; i <= 300; i++ {
		tree.Simulate()
		assert.Equal(t, i, tree.Visits())

		sum := 0
		for j, c := range tree.Children() {
			require.GreaterOrEqual(t, c.Visits, prev[j], "child %s lost visits", c.Move)
			prev[j] = c.Visits
			sum += c.Visits
		}
		require.Equal(t, i, sum)
	}
	assert.Equal(t, 300, tree.Simulations())
	assert.Greater(t, tree.Size(), 21)
}

func TestRootMoves(t *testing.T) {
	pos := board.StartPosition()
	e4, err := board.ParseMove("e2e4", pos)
	require.NoError(t, err)
	d4, err := board.ParseMove("d2d4", pos)
	require.NoError(t, err)

	tree := NewTree(pos, eval.Uniform{}, quietConfig(), e4, d4)
	require.Len(t, tree.Children(), 2)

	res := NewSearcher(quietConfig(), eval.Uniform{}, nil).Search(context.Background(), pos, Limits{Simulations: 50, RootMoves: []board.Move{d4}})
	assert.Equal(t, d4, res.Move)

	// A list with no legal move is ignored.
	tree = NewTree(pos, eval.Uniform{}, quietConfig(), board.Move{From: board.E4, To: board.E5})
	assert.Len(t, tree.Children(), 20)
}

func TestTerminalRoot(t *testing.T) {
	mate := mustFEN(t, "R5k1/5ppp/8/8/8/8/8/7K b - - 0 1")
	tree := NewTree(mate, eval.Uniform{}, quietConfig())
	for range 5 {
		tree.Simulate()
	}
	assert.Equal(t, 5, tree.Visits())
	assert.Empty(t, tree.Children())
	assert.Empty(t, tree.PV())

	res := NewSearcher(quietConfig(), nil, nil).Search(context.Background(), mate, Limits{Simulations: 10})
	assert.True(t, res.Move.IsNull())
	assert.Equal(t, board.Checkmate, res.Outcome)

	stale := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	res = NewSearcher(quietConfig(), nil, nil).Search(context.Background(), stale, Limits{Simulations: 10})
	assert.True(t, res.Move.IsNull())
	assert.Equal(t, board.Stalemate, res.Outcome)

	// A draw that leaves legal moves is searched and valued as a draw.
	drawn := mustFEN(t, "8/8/4k3/8/8/3KN3/8/8 w - - 0 1")
	res = NewSearcher(quietConfig(), nil, nil).Search(context.Background(), drawn, Limits{Simulations: 64})
	assert.Contains(t, drawn.LegalMoves(), res.Move)
	assert.Equal(t, board.InsufficientMaterial, res.Outcome)
	assert.Zero(t, res.Score)
}

func TestFindsMateInOne(t *testing.T) {
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R6K w - - 0 1")
	s := NewSearcher(quietConfig(), eval.Uniform{}, nil)
	res := s.Search(context.Background(), pos, Limits{Simulations: 400})

	assert.Equal(t, "a1a8", res.Move.String())
	assert.Equal(t, 400, res.Simulations)
	assert.InDelta(t, 1.0, res.Value, 1e-9)
	assert.Positive(t, res.Score)
	require.NotEmpty(t, res.PV)
	assert.Equal(t, res.Move, res.PV[0])

	mateChild, ok := lookupChild(res.Children, res.Move)
	require.True(t, ok)
	for _, c := range res.Children {
		assert.LessOrEqual(t, c.Visits, mateChild.Visits)
	}
}

func TestTerminalChildValues(t *testing.T) {
	// Qg6 stalemates, Qg7 mates.
	pos := mustFEN(t, "7k/8/5K2/8/8/8/8/6Q1 w - - 0 1")
	tree := NewTree(pos, eval.Uniform{}, quietConfig())
	for range 200 {
		tree.Simulate()
	}
	mate, err := board.ParseMove("g1g7", pos)
	require.NoError(t, err)
	stale, err := board.ParseMove("g1g6", pos)
	require.NoError(t, err)

	m, ok := tree.Child(mate)
	require.True(t, ok)
	assert.InDelta(t, 1.0, m.Q, 1e-9)
	if s, ok := tree.Child(stale); ok && s.Visits > 0 {
		assert.InDelta(t, 0.0, s.Q, 1e-9)
	}
}

func TestSeededSearchIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	run := func() Result {
		return NewSearcher(cfg, eval.NewHeuristic(eval.Default()), nil).
			Search(context.Background(), board.StartPosition(), Limits{Simulations: 200})
	}
	a, b := run(), run()
	assert.Equal(t, a.Move, b.Move)
	assert.Equal(t, a.Children, b.Children)
	assert.Equal(t, a.Nodes, b.Nodes)
}

func TestRootNoise(t *testing.T) {
	pos := board.StartPosition()
	plain := NewTree(pos, eval.Uniform{}, quietConfig())

	cfg := quietConfig()
	cfg.DirichletEpsilon = 0.25
	noisy := NewTree(pos, eval.Uniform{}, cfg)

	sum, differs := 0.0, false
	for i, c := range noisy.Children() {
		sum += c.Prior
		if math.Abs(c.Prior-plain.Children()[i].Prior) > 1e-12 {
			differs = true
		}
		// Mixing keeps at least (1-eps) of the uniform prior.
		assert.GreaterOrEqual(t, c.Prior, 0.75/20-1e-12)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.True(t, differs)
}

func TestGammaMean(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, alpha := range []float64{0.3, 1, 2.5} {
		const n = 20000
		sum := 0.0
		for range n {
			g := gamma(rng, alpha)
			require.GreaterOrEqual(t, g, 0.0)
			sum += g
		}
		assert.InDelta(t, alpha, sum/n, 0.05*math.Max(1, alpha), "alpha %v", alpha)
	}

	d := dirichlet(rng, 0.3, 30)
	total := 0.0
	for _, x := range d {
		total += x
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestChoose(t *testing.T) {
	children := []ChildStats{
		{Move: board.Move{From: board.E2, To: board.E4}, Visits: 10},
		{Move: board.Move{From: board.D2, To: board.D4}, Visits: 90},
		{Move: board.Move{From: board.G1, To: board.F3}, Visits: 0},
	}

	t.Run("argmax past threshold", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Seed = 3
		s := NewSearcher(cfg, nil, nil)
		for range 20 {
			assert.Equal(t, children[1].Move, s.choose(children, cfg.TemperaturePlies))
		}
	})

	t.Run("cold temperature", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Seed = 3
		cfg.Temperature = 0.005
		s := NewSearcher(cfg, nil, nil)
		assert.Equal(t, children[1].Move, s.choose(children, 0))
	})

	t.Run("sampling follows visits", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Seed = 3
		s := NewSearcher(cfg, nil, nil)
		counts := map[board.Move]int{}
		for range 2000 {
			counts[s.choose(children, 0)]++
		}
		assert.Zero(t, counts[children[2].Move])
		assert.Greater(t, counts[children[1].Move], counts[children[0].Move])
		assert.Positive(t, counts[children[0].Move])
	})
}

func TestCancelledSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewSearcher(quietConfig(), nil, nil).Search(ctx, board.StartPosition(), Limits{Simulations: 1000})
	assert.Zero(t, res.Simulations)
	assert.False(t, res.Move.IsNull())
}

func TestInfiniteRunsUntilCancelled(t *testing.T) {
	cfg := quietConfig()
	cfg.Simulations = 32
	cfg.MaxTime = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res := NewSearcher(cfg, nil, nil).Search(ctx, board.StartPosition(), Limits{Infinite: true})
	assert.Greater(t, res.Simulations, 32, "neither the default budget nor MaxTime ends an infinite search")
	assert.GreaterOrEqual(t, res.Elapsed, 150*time.Millisecond)
	assert.False(t, res.Move.IsNull())

	// An explicit budget still wins over Infinite.
	res = NewSearcher(cfg, nil, nil).Search(context.Background(), board.StartPosition(), Limits{Infinite: true, Simulations: 64})
	assert.Equal(t, 64, res.Simulations)
}

func TestProgressAndScale(t *testing.T) {
	var reports []Info
	s := NewSearcher(quietConfig(), nil, nil)
	res := s.Search(context.Background(), board.StartPosition(), Limits{
		Simulations: 256,
		CPuctScale:  2,
		OnProgress:  func(i Info) { reports = append(reports, i) },
	})
	assert.Equal(t, 256, res.Simulations)
	require.Len(t, reports, 4)
	assert.Equal(t, 64, reports[0].Simulations)
	assert.Equal(t, 1.5, s.Config().CPuct)
}

func TestNormalise(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.75}, normalise([]float64{1, 3}, 2))
	assert.Equal(t, []float64{0.5, 0.5}, normalise([]float64{1}, 2))
	assert.Equal(t, []float64{0.5, 0.5}, normalise([]float64{math.NaN(), 1}, 2))
	assert.Equal(t, []float64{0.5, 0.5}, normalise([]float64{0, 0}, 2))
	assert.Equal(t, []float64{0.5, 0.5}, normalise([]float64{-1, 2}, 2))
}

func TestValueToScore(t *testing.T) {
	assert.Zero(t, ValueToScore(0))
	assert.Equal(t, 220, ValueToScore(math.Tanh(0.55)))
	assert.Equal(t, -ValueToScore(0.5), ValueToScore(-0.5))
	assert.Positive(t, ValueToScore(1))
}

func lookupChild(children []ChildStats, m board.Move) (ChildStats, bool) {
	for _, c := range children {
		if c.Move == m {
			return c, true
		}
	}
	return ChildStats{}, false
}
