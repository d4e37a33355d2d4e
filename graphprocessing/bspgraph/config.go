package bspgraph

import (
	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// GraphConfig encapsulates the configuration options for creating graphs.
type GraphConfig struct {
	// ComputeFn is the compute function that will be invoked for each graph
	// vertex when executing a superstep. A valid ComputeFunc instance is
	// required for the config to be valid.
	ComputeFn ComputeFunc

	// ComputeWorkers specifies the number of workers to use for invoking
	// the registered ComputeFunc when executing each superstep. If not
	// specified, a single worker will be used.
	ComputeWorkers int
}

// validate checks whether a GraphConfig instance contains valid values.
func (g *GraphConfig) validate() error {
	var err error
	if g.ComputeFn == nil {
		err = multierror.Append(err, xerrors.New("compute function not specified"))
	}
	if g.ComputeWorkers < 0 {
		err = multierror.Append(err, xerrors.New("compute worker count must not be negative"))
	} else if g.ComputeWorkers == 0 {
		g.ComputeWorkers = 1
	}
	return err
}
