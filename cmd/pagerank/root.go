package main

import (
	"context"
	"os"

	"Rank_Engine/engine/settings"
	"Rank_Engine/linkgraph/builder"
	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/linkgraph/source"
	"Rank_Engine/linkgraph/source/cockroachdb"
	"Rank_Engine/linkgraph/store/memory"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// options holds the flags shared by every sub-command.
type options struct {
	configFile string
	verbose    bool
	workers    int

	v      *viper.Viper
	logger *logrus.Entry
}

func newRootCmd() *cobra.Command {
	opts := &options{v: settings.New()}

	rootCmd := &cobra.Command{
		Use:           "pagerank",
		Short:         "Compute PageRank scores over a URL edge list",
		Long:          "pagerank builds a link graph from an edge list, reports rank sinks and dangling nodes, and computes PageRank scores.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.logger = newLogger(cmd, opts.verbose)
			return settings.Load(opts.v, opts.configFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "settings file (default "+settings.DefaultFile+")")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().IntVar(&opts.workers, "workers", 0, "number of compute workers (default GOMAXPROCS)")

	rootCmd.AddCommand(newCheckCmd(opts), newRunCmd(opts))
	return rootCmd
}

func newLogger(cmd *cobra.Command, verbose bool) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	host, _ := os.Hostname()
	return logrus.NewEntry(logger).WithField("host", host)
}

// buildGraph reads the edges at target, which is either a path to an edge
// list or a postgres DSN, and returns the resulting graph.
func buildGraph(ctx context.Context, target string, s graph.Settings, logger *logrus.Entry) (*memory.Store, *builder.Report, error) {
	b, err := builder.New(builder.Config{Settings: s, Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	var src graph.RecordIterator
	if cockroachdb.IsDSN(target) {
		db, err := cockroachdb.NewEdgeSource(target)
		if err != nil {
			return nil, nil, err
		}
		defer func() { _ = db.Close() }()
		if src, err = db.Records(ctx); err != nil {
			return nil, nil, err
		}
	} else if src, err = source.OpenFile(target); err != nil {
		return nil, nil, err
	}

	store, report, err := b.Build(ctx, src)
	if err != nil {
		return nil, nil, xerrors.Errorf("build graph from %q: %w", target, err)
	}
	return store, report, nil
}
