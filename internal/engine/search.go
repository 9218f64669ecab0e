package engine

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hailam/aaschess/internal/aas"
	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// Options configures the alpha-beta searcher.
type Options struct {
	// TTEntries caps the transposition table.
	TTEntries int `yaml:"tt_entries" validate:"gte=16"`
	// AspirationWindow is the half-width in centipawns around the previous
	// score. 0 disables aspiration.
	AspirationWindow int `yaml:"aspiration_window" validate:"gte=0"`
	QuiescenceDepth  int `yaml:"quiescence_depth" validate:"gte=0,lte=64"`
	// Late move reductions: quiet moves after the first LMRFullMoves at
	// depth LMRMinDepth or more are searched two plies shallower first.
	EnableLMR    bool `yaml:"enable_lmr"`
	LMRFullMoves int  `yaml:"lmr_full_moves" validate:"gte=1"`
	LMRMinDepth  int  `yaml:"lmr_min_depth" validate:"gte=2"`
}

// DefaultOptions returns the default searcher settings.
func DefaultOptions() Options {
	return Options{
		TTEntries:        1 << 20,
		AspirationWindow: 50,
		QuiescenceDepth:  8,
		EnableLMR:        true,
		LMRFullMoves:     4,
		LMRMinDepth:      3,
	}
}

// Limits specifies constraints on the search. The zero value searches until
// the context is cancelled.
type Limits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Clock    Clock         // Game clock, used when MoveTime is 0
	Infinite bool          // Search until stopped

	// TimeScale multiplies the time allotment (0 = 1).
	TimeScale float64
	// Width multiplies the number of moves searched at full depth before
	// late move reductions apply, and the tree search exploration (0 = 1).
	Width float64
	// Simulations is the tree search budget (0 = config default).
	Simulations int
	// RootMoves restricts the root to these moves when non-empty.
	RootMoves []board.Move
	// Subspaces partitions the root for the hybrid strategy.
	Subspaces []aas.Subspace

	// OnInfo receives a report after every completed iteration.
	OnInfo func(Info)
}

// Info contains information about the current search.
type Info struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// Result is the outcome of one search.
type Result struct {
	Move board.Move
	// Score is in centipawns from the side to move's view.
	Score int
	// Value is Score squashed into [-1, 1].
	Value    float64
	Depth    int
	SelDepth int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
	HashFull int
	// Outcome is set when the root position is already decided. Draws
	// that leave legal moves still carry a move scored 0.
	Outcome  board.Outcome
	Strategy string
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// ScoreToValue maps centipawns to [-1, 1]. Mates map to ±1.
func ScoreToValue(score int) float64 {
	if score > MateScore-MaxPly {
		return 1
	}
	if score < -MateScore+MaxPly {
		return -1
	}
	return math.Tanh(float64(score) / 400)
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher performs iterative-deepening alpha-beta search. Its
// transposition table and ordering tables are private, so a Searcher must
// not run two searches at once.
type Searcher struct {
	opts    Options
	eval    eval.Evaluator
	tt      *TranspositionTable
	orderer *MoveOrderer
	logger  *slog.Logger

	stopFlag  atomic.Bool
	deadline  time.Time
	nodeLimit uint64
	nodes     uint64
	selDepth  int
	fullMoves int
	rootMoves []board.Move
	pv        PVTable
}

// NewSearcher creates a searcher. A nil ev uses material counting and a nil
// logger slog.Default().
func NewSearcher(opts Options, ev eval.Evaluator, logger *slog.Logger) *Searcher {
	if ev == nil {
		ev = eval.Material
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		opts:    opts,
		eval:    ev,
		tt:      NewTranspositionTable(opts.TTEntries),
		orderer: NewMoveOrderer(),
		logger:  logger.With("component", "alphabeta"),
	}
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// TT returns the searcher's transposition table.
func (s *Searcher) TT() *TranspositionTable { return s.tt }

// Options returns the searcher's settings.
func (s *Searcher) Options() Options { return s.opts }

// Clear clears the transposition table and ordering state.
func (s *Searcher) Clear() {
	s.tt.Clear()
	s.orderer.Clear()
}

// Search runs iterative deepening on pos. Cancelling ctx or calling Stop
// aborts the running iteration; the result then reflects the last
// completed depth. If no depth completes, the first move in ordering is
// returned with Depth 0.
func (s *Searcher) Search(ctx context.Context, pos *board.Position, limits Limits) Result {
	s.stopFlag.Store(false)
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	var tm TimeManager
	tm.Init(limits, pos.SideToMove, pos.Ply())
	s.deadline = tm.Deadline()
	s.nodeLimit = limits.Nodes
	s.nodes = 0
	s.selDepth = 0
	s.tt.NewSearch()
	s.orderer.Clear()

	res := Result{Strategy: "alphabeta"}
	if !pos.HasLegalMoves() {
		res.Outcome = pos.Outcome()
		res.Elapsed = tm.Elapsed()
		return res
	}

	s.rootMoves = rootMoves(pos, limits.RootMoves)
	width := limits.Width
	if width <= 0 {
		width = 1
	}
	s.fullMoves = max(1, int(math.Round(float64(s.opts.LMRFullMoves)*width)))

	// Fallback when no iteration completes.
	ordered := slices.Clone(s.rootMoves)
	SortMoves(ordered, s.orderer.ScoreMoves(pos, ordered, 0, board.NoMove))
	res.Move = ordered[0]
	res.Score = s.eval.Evaluate(pos)

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && tm.PastOptimum() {
			break
		}

		score := s.aspiration(pos, depth, res.Score)
		if s.IsStopped() {
			break
		}

		res.Depth = depth
		res.Score = score
		res.PV = s.rootPV()
		if len(res.PV) > 0 {
			res.Move = res.PV[0]
		}

		if limits.OnInfo != nil {
			limits.OnInfo(Info{
				Depth:    depth,
				SelDepth: s.selDepth,
				Score:    score,
				Nodes:    s.nodes,
				Time:     tm.Elapsed(),
				PV:       slices.Clone(res.PV),
				HashFull: s.tt.HashFull(),
			})
		}

		// Found mate
		if IsMateScore(score) {
			break
		}
		if s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
			break
		}
	}

	// A claimable draw still gets a move; its value is the draw.
	if out := pos.Outcome(); out.IsTerminal() {
		res.Outcome = out
		res.Score = 0
	}
	res.Value = ScoreToValue(res.Score)
	res.SelDepth = s.selDepth
	res.Nodes = s.nodes
	res.Elapsed = tm.Elapsed()
	res.HashFull = s.tt.HashFull()

	s.logger.Debug("search finished",
		"move", res.Move.String(),
		"score", res.Score,
		"depth", res.Depth,
		"nodes", res.Nodes,
		"elapsed", res.Elapsed)
	return res
}

// aspiration searches depth with a window around prev, falling back to the
// full window when the score lands outside it.
func (s *Searcher) aspiration(pos *board.Position, depth, prev int) int {
	w := s.opts.AspirationWindow
	if depth > 3 && w > 0 && !IsMateScore(prev) {
		alpha, beta := prev-w, prev+w
		score := s.negamax(pos, depth, 0, alpha, beta)
		if s.IsStopped() || (score > alpha && score < beta) {
			return score
		}
		s.logger.Debug("aspiration re-search", "depth", depth, "score", score, "alpha", alpha, "beta", beta)
	}
	return s.negamax(pos, depth, 0, -Infinity, Infinity)
}

func (s *Searcher) rootPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// rootMoves returns the legal moves of pos restricted to filter. A filter
// sharing no move with the legal moves is ignored.
func rootMoves(pos *board.Position, filter []board.Move) []board.Move {
	legal := pos.LegalMoves()
	if len(filter) == 0 {
		return legal
	}
	var out []board.Move
	for _, m := range legal {
		if slices.Contains(filter, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return legal
	}
	return out
}
