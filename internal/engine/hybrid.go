package engine

import (
	"context"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/aaschess/internal/aas"
	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
)

// minSubspaceTT is the smallest table a subspace searcher gets.
const minSubspaceTT = 1 << 12

// Hybrid splits the root into subspaces and runs one alpha-beta searcher
// per subspace. Groups without dependencies run in parallel; a group that
// depends on others runs once they finish. Dependencies only schedule the
// groups: each searcher sees the full window and the results meet in
// merge. Every searcher owns a private transposition table sized by its
// share of the root moves.
type Hybrid struct {
	opts    Options
	eval    eval.Evaluator
	logger  *slog.Logger
	workers int
}

// NewHybrid returns the hybrid strategy. workers bounds the parallel
// searchers; 0 uses GOMAXPROCS.
func NewHybrid(opts Options, ev eval.Evaluator, workers int, logger *slog.Logger) *Hybrid {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hybrid{opts: opts, eval: ev, logger: logger.With("component", "hybrid"), workers: workers}
}

// Name implements Strategy.
func (h *Hybrid) Name() string { return string(ModeHybrid) }

// Search implements Strategy.
func (h *Hybrid) Search(ctx context.Context, pos *board.Position, limits Limits) (Result, error) {
	if !pos.HasLegalMoves() {
		return Result{Outcome: pos.Outcome(), Strategy: h.Name()}, nil
	}

	subs := limits.Subspaces
	if len(subs) == 0 {
		subs = aas.MultiAgentSplit(pos, aas.DefaultWeights())
	}
	if len(limits.RootMoves) > 0 {
		subs = restrictSubspaces(subs, limits.RootMoves)
	}

	var independent, dependent []int
	for i, sub := range subs {
		if len(sub.DependsOn) == 0 {
			independent = append(independent, i)
		} else {
			dependent = append(dependent, i)
		}
	}

	// Two phases share the clock.
	base := limits
	base.OnInfo = nil
	if len(dependent) > 0 && len(independent) > 0 {
		scale := limits.TimeScale
		if scale <= 0 {
			scale = 1
		}
		base.TimeScale = scale / 2
	}

	results := make([]Result, len(subs))
	run := func(ctx context.Context, idx []int) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(h.workers)
		for _, i := range idx {
			g.Go(func() error {
				opts := h.opts
				opts.TTEntries = max(minSubspaceTT, int(float64(h.opts.TTEntries)*subs[i].BranchShare))
				l := base
				l.RootMoves = subs[i].Moves
				results[i] = NewSearcher(opts, h.eval, h.logger).Search(gctx, pos, l)
				return gctx.Err()
			})
		}
		return g.Wait()
	}

	// Cancellation is not an error: the searchers return their last
	// completed depth. A stop during the first phase skips the second, whose
	// searchers could not finish a single iteration.
	_ = run(ctx, independent)
	if ctx.Err() == nil {
		_ = run(ctx, dependent)
	}

	best := h.merge(subs, results)
	if limits.OnInfo != nil {
		limits.OnInfo(Info{
			Depth:    best.Depth,
			SelDepth: best.SelDepth,
			Score:    best.Score,
			Nodes:    best.Nodes,
			Time:     best.Elapsed,
			PV:       slices.Clone(best.PV),
			HashFull: best.HashFull,
		})
	}
	return best, nil
}

// restrictSubspaces keeps only the moves in only and drops emptied groups.
// When nothing is left the groups are returned unchanged.
func restrictSubspaces(subs []aas.Subspace, only []board.Move) []aas.Subspace {
	var out []aas.Subspace
	for _, sub := range subs {
		var moves []board.Move
		for _, m := range sub.Moves {
			if slices.Contains(only, m) {
				moves = append(moves, m)
			}
		}
		if len(moves) > 0 {
			sub.Moves = moves
			out = append(out, sub)
		}
	}
	if len(out) == 0 {
		return subs
	}
	return out
}

// merge picks the best scoring subspace result. Ties go to the subspace
// listed first, which has the higher priority. Results that completed no
// iteration carry only a static score and lose to any that did.
func (h *Hybrid) merge(subs []aas.Subspace, results []Result) Result {
	var best Result
	var nodes uint64
	searched := slices.ContainsFunc(results, func(r Result) bool {
		return r.Depth > 0 && !r.Move.IsNull()
	})
	bestIdx := -1
	for i, r := range results {
		nodes += r.Nodes
		if r.Move.IsNull() || (searched && r.Depth == 0) {
			continue
		}
		if bestIdx < 0 || r.Score > best.Score {
			best, bestIdx = r, i
		}
	}
	best.Nodes = nodes
	best.Strategy = h.Name()
	for _, r := range results {
		best.Elapsed = max(best.Elapsed, r.Elapsed)
	}
	if bestIdx >= 0 {
		h.logger.Debug("subspace chosen",
			"subspace", subs[bestIdx].Name,
			"move", best.Move.String(),
			"score", best.Score,
			"subspaces", len(subs))
	}
	return best
}
