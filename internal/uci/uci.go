// Package uci speaks the Universal Chess Interface line protocol on top of
// an engine session.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/engine"
	"github.com/hailam/aaschess/internal/storage"
)

const (
	engineName   = "aaschess"
	engineAuthor = "the aaschess authors"

	defaultHashMB = 64
	maxHashMB     = 4096
	maxThreads    = 256
)

// Option customises a UCI session.
type Option func(*UCI)

// WithStorage restores and saves the session options in s.
func WithStorage(s *storage.Storage) Option { return func(u *UCI) { u.store = s } }

// WithLogger sets the logger for diagnostics. Protocol output never goes
// through it.
func WithLogger(l *slog.Logger) Option { return func(u *UCI) { u.logger = l } }

// WithInfoRate caps the number of "info" lines per second. The line for the
// final depth is always written.
func WithInfoRate(perSecond float64) Option {
	return func(u *UCI) { u.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine *engine.Engine
	store  *storage.Storage
	logger *slog.Logger
	in     io.Reader

	outMu sync.Mutex
	out   io.Writer

	limiter *rate.Limiter
	prefs   *storage.Preferences

	// Search state
	infoMu     sync.Mutex
	pending    *engine.Info
	searchDone chan struct{}
}

// New creates a protocol handler reading commands from in and writing
// responses to out.
func New(eng *engine.Engine, in io.Reader, out io.Writer, opts ...Option) *UCI {
	u := &UCI{
		engine:  eng,
		in:      in,
		out:     out,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		prefs:   storage.DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	u.logger = u.logger.With("component", "uci")
	u.prefs.SearchMode = string(eng.Mode())
	u.restorePreferences()
	return u
}

// restorePreferences applies the options a previous session saved.
func (u *UCI) restorePreferences() {
	if u.store == nil {
		return
	}
	prefs, err := u.store.LoadPreferences()
	if err != nil {
		u.logger.Warn("load preferences", "err", err)
		return
	}
	if prefs.UpdatedAt.IsZero() {
		return
	}
	u.prefs = prefs
	if mode, err := engine.ParseMode(prefs.SearchMode); err == nil {
		_ = u.engine.SetMode(mode)
	}
	if prefs.HashMB > 0 {
		_ = u.engine.SetHashSize(prefs.HashMB)
	}
	if prefs.Threads > 0 {
		u.engine.SetWorkers(prefs.Threads)
	}
	u.logger.Debug("preferences restored",
		"mode", prefs.SearchMode,
		"hash", prefs.HashMB,
		"threads", prefs.Threads)
}

// Run reads commands until "quit", end of input or ctx is done. A search
// still running when Run returns is stopped.
func (u *UCI) Run(ctx context.Context) error {
	defer u.handleStop()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(u.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if !u.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs one command line. It returns false on "quit".
func (u *UCI) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.println("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(ctx, args)
	case "stop":
		u.handleStop()
	case "quit":
		return false
	case "setoption":
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.print(u.engine.Position().String())
	case "perft":
		u.handlePerft(args)
	case "stats":
		u.handleStats()
	default:
		u.logger.Debug("unknown command", "cmd", cmd)
	}
	return true
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.println("id name " + engineName)
	u.println("id author " + engineAuthor)
	u.println("")
	u.printf("option name Hash type spin default %d min 1 max %d\n", defaultHashMB, maxHashMB)
	u.printf("option name Threads type spin default 1 min 1 max %d\n", maxThreads)
	var modes []string
	for _, m := range engine.Modes {
		modes = append(modes, "var "+string(m))
	}
	u.printf("option name SearchMode type combo default %s %s\n", engine.ModeAlphaBeta, strings.Join(modes, " "))
	u.println("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.NewGame()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := slices.Index(args, "moves")
	if movesAt < 0 {
		movesAt = len(args)
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.StartPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.printf("info string invalid fen: %v\n", err)
			return
		}
	default:
		return
	}

	if movesAt < len(args) {
		next, err := pos.PlayMoves(args[movesAt+1:]...)
		if err != nil {
			u.printf("info string invalid move: %v\n", err)
			return
		}
		pos = next
	}
	u.engine.SetPosition(pos)
}

// parseGo converts "go" arguments into search limits.
func parseGo(args []string, pos *board.Position) engine.Limits {
	var limits engine.Limits

	ms := func(i int) time.Duration {
		v, _ := strconv.Atoi(args[i])
		return time.Duration(v) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		hasValue := i+1 < len(args)
		switch args[i] {
		case "depth":
			if hasValue {
				limits.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if hasValue {
				limits.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
				i++
			}
		case "movetime":
			if hasValue {
				limits.MoveTime = ms(i + 1)
				i++
			}
		case "infinite":
			limits.Infinite = true
		case "wtime":
			if hasValue {
				limits.Clock.Time[board.White] = ms(i + 1)
				i++
			}
		case "btime":
			if hasValue {
				limits.Clock.Time[board.Black] = ms(i + 1)
				i++
			}
		case "winc":
			if hasValue {
				limits.Clock.Inc[board.White] = ms(i + 1)
				i++
			}
		case "binc":
			if hasValue {
				limits.Clock.Inc[board.Black] = ms(i + 1)
				i++
			}
		case "movestogo":
			if hasValue {
				limits.Clock.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "simulations":
			if hasValue {
				limits.Simulations, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "searchmoves":
			// Moves run to the next keyword.
			for i+1 < len(args) {
				m, err := board.ParseMove(args[i+1], pos)
				if err != nil {
					break
				}
				limits.RootMoves = append(limits.RootMoves, m)
				i++
			}
		}
	}
	return limits
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(ctx context.Context, args []string) {
	u.handleStop()

	pos := u.engine.Position()
	limits := parseGo(args, pos)
	limits.OnInfo = u.onInfo

	if err := u.engine.Start(ctx, limits); err != nil {
		u.printf("info string %v\n", err)
		return
	}

	done := make(chan struct{})
	u.searchDone = done
	go func() {
		defer close(done)
		res, err := u.engine.Wait()
		u.flushInfo()
		if err != nil {
			u.logger.Error("search failed", "err", err)
		}
		if res.Outcome.IsTerminal() {
			u.printf("info string %s\n", res.Outcome)
		}
		if res.Move.IsNull() {
			u.println("bestmove 0000")
			return
		}
		u.println("bestmove " + res.Move.String())
	}()
}

// onInfo writes an info line unless the rate limit drops it. A dropped
// line is kept so the final one can still be written.
func (u *UCI) onInfo(info engine.Info) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	if !u.limiter.Allow() {
		u.pending = &info
		return
	}
	u.pending = nil
	u.println(formatInfo(info))
}

func (u *UCI) flushInfo() {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	if u.pending != nil {
		u.println(formatInfo(*u.pending))
		u.pending = nil
	}
}

// formatInfo renders search info in UCI format.
func formatInfo(info engine.Info) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}

	// Score
	switch {
	case info.Score > engine.MateScore-engine.MaxPly:
		parts = append(parts, fmt.Sprintf("score mate %d", (engine.MateScore-info.Score+1)/2))
	case info.Score < -engine.MateScore+engine.MaxPly:
		parts = append(parts, fmt.Sprintf("score mate %d", -(engine.MateScore+info.Score+1)/2))
	default:
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	// NPS
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	// Hash fullness
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		pv := make([]string, len(info.PV))
		for i, m := range info.PV {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	return "info " + strings.Join(parts, " ")
}

// handleStop stops the current search and waits for its bestmove line.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.engine.Stop()
	<-u.searchDone
	u.searchDone = nil
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}
	val := strings.Join(value, " ")

	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(val)
		if err != nil || mb < 1 || mb > maxHashMB {
			u.printf("info string invalid hash size %q\n", val)
			return
		}
		if err := u.engine.SetHashSize(mb); err != nil {
			u.printf("info string %v\n", err)
			return
		}
		u.prefs.HashMB = mb
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > maxThreads {
			u.printf("info string invalid thread count %q\n", val)
			return
		}
		u.engine.SetWorkers(n)
		u.prefs.Threads = n
	case "searchmode":
		mode, err := engine.ParseMode(strings.ToLower(val))
		if err != nil {
			u.printf("info string %v\n", err)
			return
		}
		_ = u.engine.SetMode(mode)
		u.prefs.SearchMode = string(mode)
	default:
		u.logger.Debug("unknown option", "name", strings.Join(name, " "))
		return
	}
	u.savePreferences()
}

func (u *UCI) savePreferences() {
	if u.store == nil {
		return
	}
	if err := u.store.SavePreferences(u.prefs); err != nil {
		u.logger.Warn("save preferences", "err", err)
	}
}

// handlePerft runs a perft test with a per-move breakdown.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	pos := u.engine.Position()
	start := time.Now()
	div := board.Divide(pos, depth)
	elapsed := time.Since(start)

	moves := make([]board.Move, 0, len(div))
	for m := range div {
		moves = append(moves, m)
	}
	slices.SortFunc(moves, func(a, b board.Move) int { return strings.Compare(a.String(), b.String()) })

	var total uint64
	for _, m := range moves {
		u.printf("%s: %d\n", m, div[m])
		total += div[m]
	}
	u.println("")
	u.printf("Nodes searched: %d\n", total)
	u.printf("Time: %v\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		u.printf("NPS: %.0f\n", float64(total)/elapsed.Seconds())
	}
}

// handleStats prints the stored search statistics.
func (u *UCI) handleStats() {
	if u.store == nil {
		u.println("info string storage disabled")
		return
	}
	stats, err := u.store.LoadStats()
	if err != nil {
		u.printf("info string %v\n", err)
		return
	}
	u.printf("info string searches %d nodes %d avgnodes %.0f deepest %d\n",
		stats.Searches, stats.TotalNodes, stats.AverageNodes(), stats.DeepestPly)
}

func (u *UCI) print(s string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	_, _ = io.WriteString(u.out, s)
}

func (u *UCI) println(s string) { u.print(s + "\n") }

func (u *UCI) printf(format string, args ...any) { u.print(fmt.Sprintf(format, args...)) }
