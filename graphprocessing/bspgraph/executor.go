package bspgraph

import "context"

// ExecutorCallbacks encapsulates a series of callbacks that are invoked by an
// Executor instance on a graph. All callbacks are optional.
type ExecutorCallbacks struct {
	// PreStep, if defined, is invoked before running the next superstep.
	// It runs on the driver goroutine while no worker is active, so it is
	// the place to prepare shared read-only state for the step.
	PreStep func(ctx context.Context, g *Graph) error

	// PostStep, if defined, is invoked after the barrier of a superstep.
	PostStep func(ctx context.Context, g *Graph, processed int) error

	// PostStepKeepRunning, if defined, is invoked after PostStep to decide
	// whether another superstep should be executed.
	PostStepKeepRunning func(ctx context.Context, g *Graph, processed int) (bool, error)
}

func patchEmptyCallbacks(cb *ExecutorCallbacks) {
	if cb.PreStep == nil {
		cb.PreStep = func(context.Context, *Graph) error { return nil }
	}
	if cb.PostStep == nil {
		cb.PostStep = func(context.Context, *Graph, int) error { return nil }
	}
	if cb.PostStepKeepRunning == nil {
		cb.PostStepKeepRunning = func(context.Context, *Graph, int) (bool, error) { return true, nil }
	}
}

// Executor wraps a Graph instance and provides an orchestration layer for
// executing supersteps until an error occurs or an exit condition is met.
type Executor struct {
	g  *Graph
	cb ExecutorCallbacks
}

// NewExecutor returns an Executor instance for graph g that invokes the
// provided list of callbacks inside each execution loop.
func NewExecutor(g *Graph, cb ExecutorCallbacks) *Executor {
	patchEmptyCallbacks(&cb)
	g.superstep = 0
	return &Executor{
		g:  g,
		cb: cb,
	}
}

// RunToCompletion keeps executing supersteps until the context expires, an
// error occurs or PostStepKeepRunning returns false.
func (ex *Executor) RunToCompletion(ctx context.Context) error {
	return ex.run(ctx, -1)
}

// RunSteps executes at most numSteps supersteps unless the context expires,
// an error occurs or PostStepKeepRunning returns false.
func (ex *Executor) RunSteps(ctx context.Context, numSteps int) error {
	return ex.run(ctx, numSteps)
}

// Graph returns the graph instance associated with this executor.
func (ex *Executor) Graph() *Graph {
	return ex.g
}

// Superstep returns the current graph superstep.
func (ex *Executor) Superstep() int {
	return ex.g.superstep
}

func (ex *Executor) run(ctx context.Context, maxSteps int) error {
	var (
		processed   int
		err         error
		keepRunning bool
		cb          = ex.cb
	)
	for ; maxSteps != 0; maxSteps-- {
		if err = ensureContextNotExpired(ctx); err != nil {
			break
		} else if err = cb.PreStep(ctx, ex.g); err != nil {
			break
		} else if processed, err = ex.g.step(); err != nil {
			break
		}

		// The superstep counter reflects completed steps by the time the
		// post-step callbacks observe it.
		ex.g.superstep++
		if err = cb.PostStep(ctx, ex.g, processed); err != nil {
			break
		} else if keepRunning, err = cb.PostStepKeepRunning(ctx, ex.g, processed); !keepRunning || err != nil {
			break
		}
	}
	return err
}

func ensureContextNotExpired(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
