package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hailam/aaschess/internal/board"
)

func newPerftCmd(_ *app) *cobra.Command {
	var (
		fen    string
		depth  int
		divide bool
	)
	cmd := &cobra.Command{
		Use:   "perft",
		Short: "Count the leaf nodes of the legal move tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pos, err := board.ParseFEN(fen)
			if err != nil {
				return err
			}
			if depth < 1 {
				return fmt.Errorf("depth must be at least 1, got %d", depth)
			}

			out := cmd.OutOrStdout()
			start := time.Now()
			var nodes uint64
			if divide {
				div := board.Divide(pos, depth)
				moves := make([]string, 0, len(div))
				counts := make(map[string]uint64, len(div))
				for m, n := range div {
					moves = append(moves, m.String())
					counts[m.String()] = n
					nodes += n
				}
				slices.SortFunc(moves, strings.Compare)
				for _, m := range moves {
					fmt.Fprintf(out, "%s: %d\n", m, counts[m])
				}
				fmt.Fprintln(out)
			} else {
				nodes = board.Perft(pos, depth)
			}
			elapsed := time.Since(start)

			fmt.Fprintf(out, "Nodes: %d\n", nodes)
			fmt.Fprintf(out, "Time: %v\n", elapsed.Round(time.Millisecond))
			if elapsed > 0 {
				fmt.Fprintf(out, "NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fen, "fen", board.StartFEN, "position to count from")
	cmd.Flags().IntVarP(&depth, "depth", "d", 5, "depth in plies")
	cmd.Flags().BoolVar(&divide, "divide", false, "print the count below each root move")
	return cmd
}
