package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hailam/aaschess/internal/uci"
)

func newUCICmd(a *app) *cobra.Command {
	var infoRate float64
	cmd := &cobra.Command{
		Use:   "uci",
		Short: "Speak the UCI protocol on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []uci.Option{uci.WithLogger(a.logger)}
			if infoRate > 0 {
				opts = append(opts, uci.WithInfoRate(infoRate))
			}
			if a.store != nil {
				opts = append(opts, uci.WithStorage(a.store))
			}
			return uci.New(a.newEngine(), os.Stdin, os.Stdout, opts...).Run(cmd.Context())
		},
	}
	cmd.Flags().Float64Var(&infoRate, "info-rate", 10, "maximum info lines per second")
	return cmd
}
