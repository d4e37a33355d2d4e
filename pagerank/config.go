package pagerank

import (
	"io/ioutil"
	"runtime"

	"Rank_Engine/linkgraph/graph"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the settings for configuring the PageRank calculator.
type Config struct {
	// Settings holds the damping factor, error tolerance and iteration cap.
	// The link policies have already been applied to the graph by the
	// builder and are only reported here.
	Settings graph.Settings

	// The number of workers to spin up for computing PageRank scores. If
	// not specified, a default value equal to runtime.GOMAXPROCS(0) will be used.
	ComputeWorkers int

	// A clock instance for measuring the duration of a run. Default wall-clock will be used.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (c *Config) validate() error {
	var err error
	if sErr := c.Settings.Validate(); sErr != nil {
		err = multierror.Append(err, sErr)
	}
	if c.ComputeWorkers < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for compute workers: %d", c.ComputeWorkers))
	} else if c.ComputeWorkers == 0 {
		c.ComputeWorkers = runtime.GOMAXPROCS(0)
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}
