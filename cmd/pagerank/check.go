package main

import (
	"fmt"
	"strings"

	"Rank_Engine/engine/settings"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report rank sinks and rank leaks of an edge list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.FromViper(opts.v)
			if err != nil {
				return err
			}
			store, report, err := buildGraph(cmd.Context(), args[0], s, opts.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dangling nodes policy: %s\n", s.DanglingNodePolicy)
			fmt.Fprintf(out, "Self links policy: %s\n", s.SelfLinkPolicy)
			fmt.Fprintf(out, "URLs: %d, edges: %d, malformed records: %d\n", store.Len(), report.Edges, report.Malformed)

			sinks := store.SinkComponents()
			fmt.Fprintf(out, "Rank sinks: %d\n", len(sinks))
			for _, sink := range sinks {
				fmt.Fprintf(out, "  {%s}\n", strings.Join(sink, ", "))
			}
			dangling := store.DanglingNodes()
			fmt.Fprintf(out, "Rank leaks (dangling nodes): %d\n", len(dangling))
			for _, url := range dangling {
				fmt.Fprintf(out, "  %s\n", url)
			}
			return nil
		},
	}
}
