package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hailam/aaschess/internal/board"
	"github.com/hailam/aaschess/internal/engine"
)

type searchFlags struct {
	fen         string
	moves       []string
	mode        string
	depth       int
	nodes       uint64
	moveTime    time.Duration
	simulations int
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search one position and print the best move",
		Example: `  aaschess search --depth 8
  aaschess search --fen "6k1/5ppp/8/8/8/8/8/R6K w - - 0 1" --mode hybrid
  aaschess search --moves e4,e5,Nf3 --movetime 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearch(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.fen, "fen", board.StartFEN, "position to search")
	fl.StringSliceVar(&f.moves, "moves", nil, "moves to play from the position first, in coordinates or SAN")
	fl.StringVar(&f.mode, "mode", "", "strategy: alphabeta, mcts or hybrid (default from config)")
	fl.IntVarP(&f.depth, "depth", "d", 0, "depth limit in plies")
	fl.Uint64Var(&f.nodes, "nodes", 0, "node limit")
	fl.DurationVar(&f.moveTime, "movetime", 0, "time limit")
	fl.IntVar(&f.simulations, "simulations", 0, "tree search simulations")
	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, f searchFlags) error {
	pos, err := board.ParseFEN(f.fen)
	if err != nil {
		return err
	}
	for _, s := range f.moves {
		m, err := parseMove(s, pos)
		if err != nil {
			return err
		}
		pos = pos.Apply(m)
	}

	eng := a.newEngine()
	if f.mode != "" {
		mode, err := engine.ParseMode(f.mode)
		if err != nil {
			return err
		}
		if err := eng.SetMode(mode); err != nil {
			return err
		}
	}
	eng.SetPosition(pos)

	out := cmd.OutOrStdout()
	if isTerminal(out) {
		fmt.Fprintln(out, pos)
	}

	limits := engine.Limits{
		Depth:       f.depth,
		Nodes:       f.nodes,
		MoveTime:    f.moveTime,
		Simulations: f.simulations,
		OnInfo: func(info engine.Info) {
			fmt.Fprintf(out, "depth %2d  score %6d  nodes %10d  time %8v  pv %s\n",
				info.Depth, info.Score, info.Nodes, info.Time.Round(time.Millisecond), formatPV(info.PV))
		},
	}
	res, err := eng.Search(cmd.Context(), limits)
	if err != nil {
		return err
	}
	if res.Move.IsNull() {
		fmt.Fprintf(out, "no move: %s\n", res.Outcome)
		return nil
	}

	fmt.Fprintf(out, "bestmove %s\n", res.Move)
	fmt.Fprintf(out, "strategy %s  score %d  value %.3f  depth %d  nodes %d  time %v\n",
		res.Strategy, res.Score, res.Value, res.Depth, res.Nodes, res.Elapsed.Round(time.Millisecond))
	if len(res.PV) > 0 {
		fmt.Fprintf(out, "pv %s\n", formatPV(res.PV))
		fmt.Fprintf(out, "san %s\n", strings.Join(board.MovesToSAN(pos, res.PV), " "))
	}
	return nil
}

// parseMove accepts coordinate notation or SAN.
func parseMove(s string, pos *board.Position) (board.Move, error) {
	m, err := board.ParseMove(s, pos)
	if err == nil {
		return m, nil
	}
	if m, serr := board.ParseSAN(s, pos); serr == nil {
		return m, nil
	}
	return board.NoMove, err
}

func formatPV(pv []board.Move) string {
	s := make([]string, len(pv))
	for i, m := range pv {
		s[i] = m.String()
	}
	return strings.Join(s, " ")
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
