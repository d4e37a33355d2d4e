package main

import (
	"fmt"
	"strconv"

	"Rank_Engine/engine/service"
	"Rank_Engine/engine/service/report"
	"Rank_Engine/engine/settings"
	"Rank_Engine/pagerank"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newRunCmd(opts *options) *cobra.Command {
	var serveAddr string

	cmd := &cobra.Command{
		Use:   "run <file> <iterations> <damping>",
		Short: "Compute PageRank scores for an edge list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			iterations, err := strconv.Atoi(args[1])
			if err != nil {
				return xerrors.Errorf("parse number of iterations %q: %w", args[1], err)
			}
			damping, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return xerrors.Errorf("parse damping factor %q: %w", args[2], err)
			}
			opts.v.Set(settings.KeyMaxIterations, iterations)
			opts.v.Set(settings.KeyDampingFactor, damping)

			s, err := settings.FromViper(opts.v)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, _, err := buildGraph(ctx, args[0], s, opts.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dangling nodes policy: %s\n", s.DanglingNodePolicy)
			fmt.Fprintf(out, "Self links policy: %s\n", s.SelfLinkPolicy)
			fmt.Fprintf(out, "Max number of iterations: %d\n", s.MaxIterations)
			fmt.Fprintf(out, "Damping factor: %v\n", s.DampingFactor)
			fmt.Fprintf(out, "Error rate: %v\n", s.ErrorTolerance)

			calc, err := pagerank.NewCalculator(pagerank.Config{
				Settings:       s,
				ComputeWorkers: opts.workers,
				Logger:         opts.logger,
			})
			if err != nil {
				return err
			}
			res, err := calc.Run(ctx, store)
			_ = calc.Close()
			if err != nil {
				return err
			}

			ranks := store.Ranks()
			for _, e := range store.Entries() {
				fmt.Fprintf(out, "%s\t%.10f\n", e.URL, ranks[e.Index])
			}
			fmt.Fprintf(out, "Iterations: %d\n", res.Iterations)
			fmt.Fprintf(out, "Final error: %g\n", res.Error)
			fmt.Fprintf(out, "Final state: %s\n", res.State)
			fmt.Fprintf(out, "Rank mass: %.10f\n", res.RankMass)

			if serveAddr == "" {
				return nil
			}
			reportSvc, err := report.NewService(report.Config{
				Store:      store,
				Result:     res,
				ListenAddr: serveAddr,
				Logger:     opts.logger.WithField("service", "report"),
			})
			if err != nil {
				return err
			}
			return service.Group{reportSvc}.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&serveAddr, "serve", "", "serve the final graph over HTTP at this address until interrupted")
	return cmd
}
