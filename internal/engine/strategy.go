package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
	"github.com/hailam/aaschess/internal/mcts"
)

// Mode names a search strategy.
type Mode string

const (
	ModeAlphaBeta Mode = "alphabeta"
	ModeMCTS      Mode = "mcts"
	ModeHybrid    Mode = "hybrid"
)

// Modes lists the selectable strategies.
var Modes = []Mode{ModeAlphaBeta, ModeMCTS, ModeHybrid}

// ParseMode validates a strategy name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// Strategy is one way of choosing a move. Implementations are not required
// to support concurrent searches.
type Strategy interface {
	Name() string
	Search(ctx context.Context, pos *board.Position, limits Limits) (Result, error)
}

// AlphaBeta searches with a single long-lived Searcher so the transposition
// table carries over between moves of a game.
type AlphaBeta struct {
	searcher *Searcher
}

// NewAlphaBeta returns the alpha-beta strategy.
func NewAlphaBeta(opts Options, ev eval.Evaluator, logger *slog.Logger) *AlphaBeta {
	return &AlphaBeta{searcher: NewSearcher(opts, ev, logger)}
}

// Name implements Strategy.
func (a *AlphaBeta) Name() string { return string(ModeAlphaBeta) }

// Search implements Strategy.
func (a *AlphaBeta) Search(ctx context.Context, pos *board.Position, limits Limits) (Result, error) {
	return a.searcher.Search(ctx, pos, limits), nil
}

// Clear empties the transposition table.
func (a *AlphaBeta) Clear() { a.searcher.Clear() }

// MCTS adapts the tree searcher to Strategy.
type MCTS struct {
	searcher *mcts.Searcher
}

// NewMCTS returns the tree search strategy.
func NewMCTS(cfg mcts.Config, pv eval.PolicyValue, logger *slog.Logger) *MCTS {
	return &MCTS{searcher: mcts.NewSearcher(cfg, pv, logger)}
}

// Name implements Strategy.
func (m *MCTS) Name() string { return string(ModeMCTS) }

// Search implements Strategy. The clock is turned into a move time by the
// same time manager the alpha-beta search uses.
func (m *MCTS) Search(ctx context.Context, pos *board.Position, limits Limits) (Result, error) {
	var tm TimeManager
	tm.Init(limits, pos.SideToMove, pos.Ply())

	ml := mcts.Limits{
		Simulations: limits.Simulations,
		MoveTime:    tm.MaximumTime(),
		CPuctScale:  limits.Width,
		RootMoves:   limits.RootMoves,
		Infinite:    limits.Infinite,
	}
	if limits.OnInfo != nil {
		ml.OnProgress = func(i mcts.Info) {
			limits.OnInfo(Info{
				Depth: i.Depth,
				Score: mcts.ValueToScore(i.Value),
				Nodes: uint64(i.Nodes),
				Time:  i.Elapsed,
				PV:    []board.Move{i.Best},
			})
		}
	}

	r := m.searcher.Search(ctx, pos, ml)
	return Result{
		Move:     r.Move,
		Score:    r.Score,
		Value:    r.Value,
		Depth:    r.Depth,
		SelDepth: r.Depth,
		Nodes:    uint64(r.Simulations),
		Elapsed:  r.Elapsed,
		PV:       r.PV,
		Outcome:  r.Outcome,
		Strategy: m.Name(),
	}, nil
}
