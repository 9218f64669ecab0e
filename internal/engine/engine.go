package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hailam/aaschess/internal/aas"
	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/eval"
	"github.com/hailam/aaschess/internal/mcts"
	"github.com/hailam/aaschess/internal/storage"
	"github.com/hailam/aaschess/internal/telemetry"
)

// ErrSearchInProgress is returned when a search is started while another
// one is running.
var ErrSearchInProgress = errors.New("engine: search already in progress")

// Config selects and tunes the strategies of an Engine.
type Config struct {
	Mode      Mode
	AlphaBeta Options
	MCTS      mcts.Config
	AAS       aas.Config
	// Workers bounds the hybrid strategy's parallel searchers.
	Workers int
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeAlphaBeta,
		AlphaBeta: DefaultOptions(),
		MCTS:      mcts.DefaultConfig(),
		AAS:       aas.DefaultConfig(),
	}
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithStorage persists the allocator state and a search journal in s.
func WithStorage(s *storage.Storage) Option { return func(e *Engine) { e.store = s } }

// WithEvaluator replaces the static evaluator.
func WithEvaluator(ev eval.Evaluator) Option { return func(e *Engine) { e.eval = ev } }

// WithPolicy replaces the tree search's policy and value source.
func WithPolicy(pv eval.PolicyValue) Option { return func(e *Engine) { e.policy = pv } }

// Engine is a long-lived search session. It keeps the current position and
// the allocator state between moves and runs one search at a time on a
// worker goroutine.
type Engine struct {
	cfg     Config
	eval    eval.Evaluator
	policy  eval.PolicyValue
	kernel  *aas.Kernel
	metrics *telemetry.Metrics
	store   *storage.Storage
	logger  *slog.Logger

	mu         sync.Mutex
	pos        *board.Position
	mode       Mode
	strategies map[Mode]Strategy
	cancel     context.CancelFunc
	done       chan struct{}
	result     Result
	err        error
}

// New builds an engine at the start position.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, mode: cfg.Mode, pos: board.StartPosition()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.eval == nil {
		e.eval = eval.Default()
	}
	if e.policy == nil {
		e.policy = eval.NewHeuristic(e.eval)
	}
	if e.metrics == nil {
		e.metrics = telemetry.NewMetrics(nil)
	}
	if e.mode == "" {
		e.mode = ModeAlphaBeta
	}

	e.kernel = aas.NewKernel(cfg.AAS, e.eval, e.logger)
	e.restoreKernel()
	e.metrics.ObserveWeights(e.kernel.Weights())

	e.strategies = map[Mode]Strategy{
		ModeAlphaBeta: NewAlphaBeta(cfg.AlphaBeta, e.eval, e.logger),
		ModeMCTS:      NewMCTS(cfg.MCTS, e.policy, e.logger),
		ModeHybrid:    NewHybrid(cfg.AlphaBeta, e.eval, cfg.Workers, e.logger),
	}
	return e
}

func (e *Engine) restoreKernel() {
	if e.store == nil {
		return
	}
	snap, err := e.store.LoadKernel()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return
	case err != nil:
		e.logger.Warn("load allocator state", "err", err)
		return
	}
	e.kernel.Restore(snap)
	e.logger.Info("allocator state restored", "plans", snap.Plans)
}

// Kernel returns the allocator.
func (e *Engine) Kernel() *aas.Kernel { return e.kernel }

// Position returns the current position.
func (e *Engine) Position() *board.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

// SetPosition replaces the current position. A running search keeps the
// position it started with.
func (e *Engine) SetPosition(pos *board.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = pos
}

// Mode returns the active strategy.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode switches strategy for the next search.
func (e *Engine) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	return nil
}

// SetHashSize rebuilds the alpha-beta table with a size in MB. It must not
// be called during a search.
func (e *Engine) SetHashSize(mb int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		return ErrSearchInProgress
	}
	e.cfg.AlphaBeta.TTEntries = EntriesForMB(mb)
	e.strategies[ModeAlphaBeta] = NewAlphaBeta(e.cfg.AlphaBeta, e.eval, e.logger)
	e.strategies[ModeHybrid] = NewHybrid(e.cfg.AlphaBeta, e.eval, e.cfg.Workers, e.logger)
	return nil
}

// SetWorkers sets the hybrid strategy's parallelism.
func (e *Engine) SetWorkers(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Workers = n
	e.strategies[ModeHybrid] = NewHybrid(e.cfg.AlphaBeta, e.eval, n, e.logger)
}

// NewGame resets the position, the entropy history and the transposition
// table. Learned branch weights are kept.
func (e *Engine) NewGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = board.StartPosition()
	e.kernel.Reset()
	if ab, ok := e.strategies[ModeAlphaBeta].(*AlphaBeta); ok {
		ab.Clear()
	}
}

// Start launches a search of the current position on a worker goroutine.
// The search runs until its limits are met, Stop is called or ctx is done.
func (e *Engine) Start(ctx context.Context, limits Limits) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		return ErrSearchInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done
	pos, strategy := e.pos, e.strategies[e.mode]

	go func() {
		defer cancel()
		res, err := e.run(ctx, pos, strategy, limits)

		e.mu.Lock()
		e.result, e.err = res, err
		e.cancel, e.done = nil, nil
		e.mu.Unlock()
		close(done)
	}()
	return nil
}

// Stop asks the running search to finish. It returns immediately.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Searching reports whether a search is running.
func (e *Engine) Searching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done != nil
}

// Wait blocks until the running search finishes and returns its result.
// Without a running search it returns the last result.
func (e *Engine) Wait() (Result, error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.err
}

// Search runs a search of the current position and waits for it.
func (e *Engine) Search(ctx context.Context, limits Limits) (Result, error) {
	if err := e.Start(ctx, limits); err != nil {
		return Result{}, err
	}
	return e.Wait()
}

// run plans a budget, searches and feeds the outcome back to the allocator.
func (e *Engine) run(ctx context.Context, pos *board.Position, strategy Strategy, limits Limits) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.Search",
		attribute.String("fen", pos.FEN()),
		attribute.String("strategy", strategy.Name()),
	)
	defer span.End()

	if !pos.HasLegalMoves() {
		out := pos.Outcome()
		span.SetAttributes(attribute.String("outcome", out.String()))
		return Result{Outcome: out, Strategy: strategy.Name()}, nil
	}

	plan := e.kernel.Plan(pos)
	e.metrics.ObservePlan(plan)
	limits = e.applyBudget(limits, plan)

	res, err := strategy.Search(ctx, pos, limits)
	if err != nil {
		telemetry.RecordError(span, err)
		return res, fmt.Errorf("%s search: %w", strategy.Name(), err)
	}

	if !res.Move.IsNull() {
		e.metrics.ObserveWeights(e.kernel.Record(pos, plan, res.Move))
	}
	e.metrics.ObserveSearch(res.Strategy, res.Nodes, res.Depth, res.Elapsed)
	span.SetAttributes(
		attribute.String("move", res.Move.String()),
		attribute.Int("score", res.Score),
		attribute.Int("depth", res.Depth),
		attribute.Int64("nodes", int64(res.Nodes)),
		attribute.Float64("entropy", plan.Entropy),
	)
	e.logger.Info("search complete",
		"strategy", res.Strategy,
		"move", res.Move.String(),
		"score", res.Score,
		"depth", res.Depth,
		"nodes", res.Nodes,
		"elapsed", res.Elapsed,
		"entropy", plan.Entropy,
		"budget", plan.Budget.String())

	e.persist(pos, plan, res)
	return res, nil
}

// applyBudget folds the allocator's budget into the caller's limits.
func (e *Engine) applyBudget(l Limits, p aas.Plan) Limits {
	b := p.Budget
	if l.Depth > 0 {
		l.Depth = min(max(l.Depth+b.DepthExtension, 1), MaxPly-1)
	}
	l.Width = orOne(l.Width) * b.Width
	l.TimeScale = orOne(l.TimeScale) * b.Time

	// A bare request gets the allocator's node budget so it terminates.
	unbounded := l.Depth == 0 && l.Nodes == 0 && l.MoveTime == 0 &&
		l.Clock.Time[board.White] == 0 && l.Clock.Time[board.Black] == 0
	if unbounded && !l.Infinite {
		l.Nodes = b.Nodes
	}
	// Timed and infinite tree searches run until the deadline or a stop.
	timed := l.MoveTime > 0 || l.Clock.Time[board.White] > 0 || l.Clock.Time[board.Black] > 0
	if l.Simulations == 0 && !timed && !l.Infinite {
		l.Simulations = max(1, int(math.Round(float64(e.cfg.MCTS.Simulations)*b.NodeScale)))
	}
	if len(l.Subspaces) == 0 {
		l.Subspaces = p.Subspaces
	}
	return l
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// persist journals the search and saves the allocator state. Storage
// failures are logged, not returned: they must not cost a move.
func (e *Engine) persist(pos *board.Position, plan aas.Plan, res Result) {
	if e.store == nil {
		return
	}
	if _, err := e.store.RecordSearch(storage.SearchRecord{
		FEN:      pos.FEN(),
		Move:     res.Move.String(),
		Score:    res.Score,
		Depth:    res.Depth,
		Nodes:    res.Nodes,
		Elapsed:  res.Elapsed,
		Strategy: res.Strategy,
		Entropy:  plan.Entropy,
		Budget:   plan.Budget,
	}); err != nil {
		e.logger.Warn("record search", "err", err)
	}
	if err := e.store.SaveKernel(e.kernel.Snapshot()); err != nil {
		e.logger.Warn("save allocator state", "err", err)
	}
}
