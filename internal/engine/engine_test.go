package engine

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/aaschess/internal/aas"
	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
	"github.com/hailam/aaschess/internal/storage"
)

const (
	kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	mateIn1  = "6k1/5ppp/8/8/8/8/8/R6K w - - 0 1"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func newSearcher(opts Options) *Searcher {
	return NewSearcher(opts, eval.Default(), quietLogger())
}

func TestSearchDepth3(t *testing.T) {
	pos := board.StartPosition()
	res := newSearcher(DefaultOptions()).Search(context.Background(), pos, Limits{Depth: 3})

	assert.Contains(t, pos.LegalMoves(), res.Move)
	assert.Positive(t, res.Nodes)
	assert.LessOrEqual(t, res.Depth, 3)
	assert.Equal(t, 3, res.Depth)
	require.NotEmpty(t, res.PV)
	assert.Equal(t, res.Move, res.PV[0])
	assert.Equal(t, "alphabeta", res.Strategy)
}

func TestAspirationMatchesFullWindow(t *testing.T) {
	for _, fen := range []string{board.StartFEN, kiwipete, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"} {
		t.Run(fen, func(t *testing.T) {
			pos := mustFEN(t, fen)
			opts := DefaultOptions()
			opts.EnableLMR = false

			asp := newSearcher(opts).Search(context.Background(), pos, Limits{Depth: 4})

			opts.AspirationWindow = 0
			full := newSearcher(opts).Search(context.Background(), pos, Limits{Depth: 4})

			assert.Equal(t, 4, asp.Depth)
			assert.InDelta(t, full.Score, asp.Score, float64(DefaultOptions().AspirationWindow))
		})
	}
}

func TestFindsMateInOne(t *testing.T) {
	pos := mustFEN(t, mateIn1)
	res := newSearcher(DefaultOptions()).Search(context.Background(), pos, Limits{Depth: 4})

	assert.Equal(t, "a1a8", res.Move.String())
	assert.True(t, IsMateScore(res.Score))
	assert.Equal(t, MateScore-1, res.Score)
	assert.Equal(t, 1.0, res.Value)
	assert.True(t, pos.Apply(res.Move).IsCheckmate())
}

func TestKeepsQueenOutOfPawnAttack(t *testing.T) {
	// The queen on d4 is attacked by the pawn on e5.
	pos := mustFEN(t, "4k3/8/8/4p3/3Q4/8/8/4K3 w - - 0 1")
	res := newSearcher(DefaultOptions()).Search(context.Background(), pos, Limits{Depth: 3})
	assert.Greater(t, res.Score, 600, "best line %v", res.PV)
}

func TestStopKeepsLastCompletedDepth(t *testing.T) {
	s := newSearcher(DefaultOptions())
	var infos []Info
	res := s.Search(context.Background(), board.StartPosition(), Limits{
		OnInfo: func(i Info) {
			infos = append(infos, i)
			if i.Depth == 2 {
				s.Stop()
			}
		},
	})

	require.Len(t, infos, 2)
	assert.Equal(t, 2, res.Depth)
	assert.Equal(t, infos[1].PV, res.PV)
	assert.Equal(t, infos[1].Score, res.Score)
}

func TestCancelledBeforeFirstDepth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pos := board.StartPosition()
	res := newSearcher(DefaultOptions()).Search(ctx, pos, Limits{Depth: 6})

	assert.Zero(t, res.Depth)
	assert.False(t, res.Move.IsNull())
	assert.Contains(t, pos.LegalMoves(), res.Move)
}

func TestNodeLimit(t *testing.T) {
	res := newSearcher(DefaultOptions()).Search(context.Background(), board.StartPosition(), Limits{Nodes: 5000})
	assert.LessOrEqual(t, res.Nodes, uint64(5000))
	assert.False(t, res.Move.IsNull())
}

func TestMoveTime(t *testing.T) {
	start := time.Now()
	res := newSearcher(DefaultOptions()).Search(context.Background(), mustFEN(t, kiwipete), Limits{MoveTime: 100 * time.Millisecond})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Positive(t, res.Depth)
}

func TestRootMovesRestrictSearch(t *testing.T) {
	pos := board.StartPosition()
	only, err := board.ParseMove("a2a3", pos)
	require.NoError(t, err)
	res := newSearcher(DefaultOptions()).Search(context.Background(), pos, Limits{Depth: 3, RootMoves: []board.Move{only}})
	assert.Equal(t, only, res.Move)
}

func TestTerminalRoot(t *testing.T) {
	mated := mustFEN(t, "R5k1/5ppp/8/8/8/8/8/7K b - - 0 1")
	res := newSearcher(DefaultOptions()).Search(context.Background(), mated, Limits{Depth: 3})
	assert.True(t, res.Move.IsNull())
	assert.Equal(t, board.Checkmate, res.Outcome)
}

func TestDrawnRootStillMoves(t *testing.T) {
	tests := []struct {
		fen  string
		want board.Outcome
	}{
		{"8/8/4k3/8/8/3KN3/8/8 w - - 0 1", board.InsufficientMaterial},
		{"8/8/4k3/8/8/3KR3/8/8 w - - 100 80", board.FiftyMoveDraw},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			pos := mustFEN(t, tt.fen)
			res := newSearcher(DefaultOptions()).Search(context.Background(), pos, Limits{Depth: 3})
			assert.Contains(t, pos.LegalMoves(), res.Move)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Zero(t, res.Score)
			assert.Zero(t, res.Value)

			h := NewHybrid(DefaultOptions(), eval.Default(), 2, quietLogger())
			hres, err := h.Search(context.Background(), pos, Limits{Depth: 2})
			require.NoError(t, err)
			assert.Contains(t, pos.LegalMoves(), hres.Move)
			assert.Zero(t, hres.Score)
		})
	}

	pos, err := board.StartPosition().PlayMoves("g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8")
	require.NoError(t, err)
	e := newEngine(t)
	e.SetPosition(pos)
	res, err := e.Search(context.Background(), Limits{Depth: 2})
	require.NoError(t, err)
	assert.False(t, res.Move.IsNull())
	assert.Equal(t, board.RepetitionDraw, res.Outcome)
}

func TestTranspositionTable(t *testing.T) {
	tt := NewTranspositionTable(16)
	m := board.Move{From: board.E2, To: board.E4}

	tt.Store(1, 4, 30, TTExact, m)
	tt.Store(1, 2, -10, TTUpperBound, board.NoMove)
	e, ok := tt.Probe(1)
	require.True(t, ok)
	assert.Equal(t, 4, e.Depth, "shallower store must not replace")
	assert.Equal(t, m, e.BestMove)

	tt.Store(1, 5, 40, TTLowerBound, m)
	e, _ = tt.Probe(1)
	assert.Equal(t, 40, e.Score)

	for h := uint64(2); h <= 17; h++ {
		tt.Store(h, 1, 0, TTExact, board.NoMove)
	}
	// 17 entries overflow a cap of 16 and the oldest quarter goes.
	assert.Equal(t, 13, tt.Len())
	_, ok = tt.Probe(1)
	assert.False(t, ok)
	_, ok = tt.Probe(17)
	assert.True(t, ok)
	assert.Equal(t, 13*1000/16, tt.HashFull())

	tt.Clear()
	assert.Zero(t, tt.Len())
	assert.Zero(t, tt.HitRate())
}

func TestMateScoreAdjustment(t *testing.T) {
	score := MateScore - 5
	stored := AdjustScoreToTT(score, 3)
	assert.Equal(t, score, AdjustScoreFromTT(stored, 3))
	assert.Equal(t, MateScore-2, AdjustScoreFromTT(stored, 0))
	assert.Equal(t, 120, AdjustScoreToTT(120, 9))
	assert.Equal(t, -(MateScore - 5), AdjustScoreFromTT(AdjustScoreToTT(-(MateScore-5), 4), 4))
}

func TestMoveOrdering(t *testing.T) {
	// White can take the rook with the pawn or the queen, promote on b8 or
	// play quiet moves.
	pos := mustFEN(t, "4k3/1P6/8/3r4/2P1Q3/8/8/4K3 w - - 0 1")
	parse := func(s string) board.Move {
		m, err := board.ParseMove(s, pos)
		require.NoError(t, err)
		return m
	}
	pxr, qxr, promo, quiet, killer := parse("c4d5"), parse("e4d5"), parse("b7b8q"), parse("e1f1"), parse("e1f2")

	mo := NewMoveOrderer()
	mo.UpdateKillers(killer, 2)
	mo.UpdateHistory(quiet, 3)

	moves := []board.Move{quiet, killer, promo, qxr, pxr}
	scores := mo.ScoreMoves(pos, moves, 2, quiet)
	SortMoves(moves, scores)
	assert.Equal(t, []board.Move{quiet, pxr, qxr, promo, killer}, moves)

	assert.Equal(t, 9, mo.HistoryScore(quiet))
	assert.Equal(t, [2]board.Move{killer, board.NoMove}, mo.Killers(2))
	mo.UpdateKillers(quiet, 2)
	assert.Equal(t, [2]board.Move{quiet, killer}, mo.Killers(2))
}

func TestHistoryHalving(t *testing.T) {
	mo := NewMoveOrderer()
	a := board.Move{From: board.G1, To: board.F3}
	b := board.Move{From: board.B1, To: board.C3}
	mo.UpdateHistory(b, 10)
	for mo.HistoryScore(a) <= historyCeiling/2 {
		mo.UpdateHistory(a, 100)
	}
	before := mo.HistoryScore(b)
	for i := 0; i < 30 && mo.HistoryScore(b) == before; i++ {
		mo.UpdateHistory(a, 100)
	}
	assert.Equal(t, before/2, mo.HistoryScore(b))
	assert.LessOrEqual(t, mo.HistoryScore(a), historyCeiling)
}

func TestTimeManager(t *testing.T) {
	var tm TimeManager

	tm.Init(Limits{MoveTime: time.Second, TimeScale: 0.5}, board.White, 20)
	assert.Equal(t, 500*time.Millisecond, tm.MaximumTime())
	assert.Equal(t, 250*time.Millisecond, tm.OptimumTime())
	assert.True(t, tm.Limited())

	tm.Init(Limits{Clock: Clock{Time: [2]time.Duration{time.Minute, time.Minute}}}, board.Black, 40)
	// 60s / 40 moves to go
	assert.Equal(t, 1500*time.Millisecond, tm.OptimumTime())
	assert.Equal(t, 7500*time.Millisecond, tm.MaximumTime())

	tm.Init(Limits{Clock: Clock{Time: [2]time.Duration{time.Minute, time.Minute}}, TimeScale: 2}, board.Black, 40)
	assert.Equal(t, 3*time.Second, tm.OptimumTime())

	tm.Init(Limits{Infinite: true, Clock: Clock{Time: [2]time.Duration{time.Minute, time.Minute}}}, board.White, 0)
	assert.False(t, tm.Limited())
	assert.False(t, tm.PastOptimum())
	assert.True(t, tm.Deadline().IsZero())
}

func TestHybrid(t *testing.T) {
	h := NewHybrid(DefaultOptions(), eval.Default(), 2, quietLogger())

	pos := mustFEN(t, kiwipete)
	subs := aas.MultiAgentSplit(pos, aas.DefaultWeights())
	require.NotEmpty(t, subs)

	var infos int
	res, err := h.Search(context.Background(), pos, Limits{Depth: 3, Subspaces: subs, OnInfo: func(Info) { infos++ }})
	require.NoError(t, err)
	assert.Contains(t, pos.LegalMoves(), res.Move)
	assert.Equal(t, "hybrid", res.Strategy)
	assert.Equal(t, 1, infos)

	res, err = h.Search(context.Background(), mustFEN(t, mateIn1), Limits{Depth: 3})
	require.NoError(t, err)
	assert.Equal(t, "a1a8", res.Move.String())
}

func TestHybridCancelledInFirstPhase(t *testing.T) {
	pos := mustFEN(t, kiwipete)
	subs := aas.MultiAgentSplit(pos, aas.DefaultWeights())
	var dependent []board.Move
	for _, sub := range subs {
		if len(sub.DependsOn) > 0 {
			dependent = append(dependent, sub.Moves...)
		}
	}
	require.NotEmpty(t, dependent)

	// The first phase has no depth or time limit, so it is still running
	// when the evaluator cancels.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var evals atomic.Int64
	ev := eval.Func(func(p *board.Position) int {
		if evals.Add(1) == 200000 {
			cancel()
		}
		return eval.Default().Evaluate(p)
	})

	res, err := NewHybrid(DefaultOptions(), ev, 2, quietLogger()).Search(ctx, pos, Limits{Subspaces: subs})
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Positive(t, res.Depth, "the answer comes from a completed iteration")
	assert.NotContains(t, dependent, res.Move, "the second phase is skipped after a stop")
}

func TestHybridMergePrefersSearchedResults(t *testing.T) {
	h := NewHybrid(DefaultOptions(), eval.Default(), 1, quietLogger())
	subs := []aas.Subspace{{Name: aas.Tactical}, {Name: aas.Positional}}
	e4 := board.Move{From: board.E2, To: board.E4}
	h3 := board.Move{From: board.G2, To: board.H3}

	got := h.merge(subs, []Result{
		{Move: h3, Score: 500, Nodes: 1},
		{Move: e4, Score: 20, Depth: 3, Nodes: 10},
	})
	assert.Equal(t, e4, got.Move)
	assert.Equal(t, 3, got.Depth)
	assert.Equal(t, uint64(11), got.Nodes)

	// With nothing searched the best static score is all there is.
	got = h.merge(subs, []Result{{Move: h3, Score: 500}, {Move: e4, Score: 20}})
	assert.Equal(t, h3, got.Move)
}

func TestHybridRootMoves(t *testing.T) {
	h := NewHybrid(DefaultOptions(), eval.Default(), 2, quietLogger())
	pos := mustFEN(t, kiwipete)
	only, err := board.ParseMove("a2a3", pos)
	require.NoError(t, err)

	res, err := h.Search(context.Background(), pos, Limits{Depth: 2, RootMoves: []board.Move{only}})
	require.NoError(t, err)
	assert.Equal(t, only, res.Move)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("minimax")
	assert.Error(t, err)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AlphaBeta.TTEntries = 1 << 16
	return New(cfg, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestEngineSearch(t *testing.T) {
	e := newEngine(t)
	res, err := e.Search(context.Background(), Limits{Depth: 3})
	require.NoError(t, err)
	assert.Contains(t, e.Position().LegalMoves(), res.Move)
	// The allocator moves the requested depth by at most one ply.
	assert.InDelta(t, 3, res.Depth, 1)
	assert.Len(t, e.Kernel().Gradient().History, 1)
}

func TestEngineStartStop(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Start(context.Background(), Limits{Infinite: true}))
	assert.True(t, e.Searching())
	assert.ErrorIs(t, e.Start(context.Background(), Limits{Depth: 1}), ErrSearchInProgress)
	assert.ErrorIs(t, e.SetHashSize(16), ErrSearchInProgress)

	time.Sleep(20 * time.Millisecond)
	e.Stop()
	res, err := e.Wait()
	require.NoError(t, err)
	assert.False(t, res.Move.IsNull())
	assert.False(t, e.Searching())

	// A finished session accepts a new search.
	require.NoError(t, e.Start(context.Background(), Limits{Depth: 1}))
	_, err = e.Wait()
	require.NoError(t, err)
}

func TestEngineMCTSInfinite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeMCTS
	cfg.MCTS.Simulations = 32
	e := New(cfg, WithLogger(quietLogger()))

	require.NoError(t, e.Start(context.Background(), Limits{Infinite: true}))
	time.Sleep(300 * time.Millisecond)
	assert.True(t, e.Searching(), "an infinite search runs until stopped")

	e.Stop()
	res, err := e.Wait()
	require.NoError(t, err)
	assert.Equal(t, "mcts", res.Strategy)
	assert.Greater(t, res.Nodes, uint64(32))
	assert.Contains(t, e.Position().LegalMoves(), res.Move)
}

func TestEngineModes(t *testing.T) {
	e := newEngine(t)
	e.SetPosition(mustFEN(t, mateIn1))

	require.NoError(t, e.SetMode(ModeMCTS))
	res, err := e.Search(context.Background(), Limits{Simulations: 300})
	require.NoError(t, err)
	assert.Equal(t, "mcts", res.Strategy)
	assert.Contains(t, e.Position().LegalMoves(), res.Move)

	require.NoError(t, e.SetMode(ModeHybrid))
	res, err = e.Search(context.Background(), Limits{Depth: 3})
	require.NoError(t, err)
	assert.Equal(t, "hybrid", res.Strategy)
	assert.Equal(t, "a1a8", res.Move.String())

	assert.Error(t, e.SetMode("random"))
	assert.Equal(t, ModeHybrid, e.Mode())
}

func TestEngineTerminalPosition(t *testing.T) {
	e := newEngine(t)
	e.SetPosition(mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"))
	res, err := e.Search(context.Background(), Limits{Depth: 3})
	require.NoError(t, err)
	assert.True(t, res.Move.IsNull())
	assert.Equal(t, board.Stalemate, res.Outcome)
	assert.Empty(t, e.Kernel().Gradient().History)
}

func TestEnginePersistence(t *testing.T) {
	store, err := storage.OpenInMemory(nil)
	require.NoError(t, err)
	defer store.Close()

	e := newEngine(t, WithStorage(store))
	res, err := e.Search(context.Background(), Limits{Depth: 2})
	require.NoError(t, err)

	recent, err := store.RecentSearches(5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, res.Move.String(), recent[0].Move)
	assert.Equal(t, board.StartFEN, recent[0].FEN)

	restored := newEngine(t, WithStorage(store))
	assert.Equal(t, uint64(1), restored.Kernel().Snapshot().Plans)
	assert.Equal(t, e.Kernel().Weights(), restored.Kernel().Weights())
}

func TestEngineNewGame(t *testing.T) {
	e := newEngine(t)
	e.SetPosition(mustFEN(t, kiwipete))
	_, err := e.Search(context.Background(), Limits{Depth: 1})
	require.NoError(t, err)

	e.NewGame()
	assert.Equal(t, board.StartFEN, e.Position().FEN())
	assert.Empty(t, e.Kernel().Gradient().History)
}

func TestApplyBudget(t *testing.T) {
	e := newEngine(t)
	plan := aas.Plan{
		Budget:    aas.Budget{DepthExtension: 1, Width: 1.5, Time: 0.8, NodeScale: 1.5, Nodes: 3000000},
		Subspaces: []aas.Subspace{{Name: aas.Positional}},
	}

	l := e.applyBudget(Limits{Depth: 4}, plan)
	assert.Equal(t, 5, l.Depth)
	assert.Equal(t, 1.5, l.Width)
	assert.Equal(t, 0.8, l.TimeScale)
	assert.Zero(t, l.Nodes)
	assert.Equal(t, 1200, l.Simulations)
	assert.Len(t, l.Subspaces, 1)

	assert.Equal(t, uint64(3000000), e.applyBudget(Limits{}, plan).Nodes)
	assert.Zero(t, e.applyBudget(Limits{Infinite: true}, plan).Nodes)
	assert.Zero(t, e.applyBudget(Limits{Infinite: true}, plan).Simulations)
	assert.Zero(t, e.applyBudget(Limits{MoveTime: time.Second}, plan).Simulations)
	var clock Clock
	clock.Time[board.Black] = time.Minute
	assert.Zero(t, e.applyBudget(Limits{Clock: clock}, plan).Simulations)
	assert.Equal(t, 7, e.applyBudget(Limits{Infinite: true, Simulations: 7}, plan).Simulations)

	plan.Budget.DepthExtension = -2
	assert.Equal(t, 1, e.applyBudget(Limits{Depth: 1}, plan).Depth)
	assert.Equal(t, 3.0, e.applyBudget(Limits{Width: 2}, plan).Width)
}

func TestScoreToValue(t *testing.T) {
	assert.Zero(t, ScoreToValue(0))
	assert.Equal(t, 1.0, ScoreToValue(MateScore-3))
	assert.Equal(t, -1.0, ScoreToValue(-MateScore+3))
	assert.True(t, slices.IsSorted([]float64{ScoreToValue(-300), ScoreToValue(0), ScoreToValue(300)}))
}
