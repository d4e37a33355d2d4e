// Package builder turns an edge list into a link graph that is ready for
// rank computation.
package builder

import (
	"context"
	"io/ioutil"

	"Rank_Engine/graphprocessing/scc"
	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/linkgraph/store/memory"
	"Rank_Engine/pipeline"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the settings for configuring a graph builder.
type Config struct {
	// Settings supplies the dangling-node and self-link policies.
	Settings graph.Settings

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return cfg.Settings.Validate()
}

// Report summarizes the ingestion of an edge list.
type Report struct {
	// Records is the number of records read from the source.
	Records int
	// Edges is the number of distinct edges added to the graph.
	Edges int
	// Malformed is the number of records that were skipped.
	Malformed int
	// SelfLinksDropped is the number of self-link records discarded
	// because of the self-link policy.
	SelfLinksDropped int
}

// Builder populates memory stores from edge sources.
type Builder struct {
	cfg Config
}

// New returns a new Builder instance using the provided config.
func New(cfg Config) (*Builder, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph builder config validation failed: %w", err)
	}
	return &Builder{cfg: cfg}, nil
}

// Build reads every record from src and returns the resulting graph. The
// returned store has its rank sinks annotated, the dangling-node policy
// applied and every rank initialized to 1/N. The iterator is closed before
// Build returns.
//
// Malformed records are skipped. A failure to read src aborts the build
// with an error wrapping graph.ErrSourceUnavailable.
func (b *Builder) Build(ctx context.Context, src graph.RecordIterator) (*memory.Store, *Report, error) {
	var (
		store    = memory.NewStore()
		logger   = b.cfg.Logger
		settings = b.cfg.Settings
		parser   = newEdgeParser(logger)
		ingester = newGraphIngester(store, settings.SelfLinkPolicy)
	)

	err := pipeline.New(pipeline.NewFIFO(parser)).Process(ctx, &recordSource{recordIt: src}, ingester)
	if cErr := src.Close(); cErr != nil && err == nil {
		err = xerrors.Errorf("close edge source: %v: %w", cErr, graph.ErrSourceUnavailable)
	}
	if err != nil {
		return nil, nil, xerrors.Errorf("build link graph: %w", err)
	}

	report := &Report{
		Records:          parser.records,
		Edges:            ingester.edges,
		Malformed:        parser.malformed,
		SelfLinksDropped: ingester.selfLinksDropped,
	}

	// Sinks are detected on the real link structure only, before any
	// synthetic dangling-node links exist.
	sinks, err := scc.Annotate(store)
	if err != nil {
		return nil, nil, xerrors.Errorf("detect rank sinks: %w", err)
	}

	dangling := store.DanglingNodes()
	if settings.DanglingNodePolicy == graph.PolicyKeep {
		if err = linkDanglingNodes(store, dangling, settings.SelfLinkPolicy); err != nil {
			return nil, nil, err
		}
	}

	if err = assignUniformRanks(store); err != nil {
		return nil, nil, err
	}

	logger.WithFields(logrus.Fields{
		"records":            report.Records,
		"edges":              report.Edges,
		"malformed":          report.Malformed,
		"self_links_dropped": report.SelfLinksDropped,
		"urls":               store.Len(),
		"dangling":           len(dangling),
		"sinks":              len(sinks),
	}).Info("link graph built")
	return store, report, nil
}

// linkDanglingNodes gives every dangling node an out-link to every other URL.
// The node links to itself as well when self-links are kept, or when it is
// the only URL in the graph.
func linkDanglingNodes(store *memory.Store, dangling []string, selfLinkPolicy graph.Policy) error {
	urls := store.URLs()
	for _, d := range dangling {
		links := make([]graph.LinkEdge, 0, len(urls))
		for _, url := range urls {
			if url == d && selfLinkPolicy == graph.PolicyIgnore {
				continue
			}
			links = append(links, graph.LinkEdge{Src: d, Dst: url})
		}
		if len(links) == 0 {
			links = append(links, graph.LinkEdge{Src: d, Dst: d})
		}
		if err := store.SetOutLinks(d, links); err != nil {
			return xerrors.Errorf("link dangling node %q: %w", d, err)
		}
	}
	return nil
}

func assignUniformRanks(store *memory.Store) error {
	n := store.Len()
	if n == 0 {
		return nil
	}
	ranks := make([]float64, n)
	for i := range ranks {
		ranks[i] = 1 / float64(n)
	}
	return store.SetRanks(ranks)
}
