package bspgraph

import (
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

var (
	// ErrTaskPanicked is returned by a superstep when the compute function
	// panicked while processing a vertex.
	ErrTaskPanicked = xerrors.New("compute task panicked")

	// ErrGraphClosed is returned when a superstep is requested on a graph
	// whose worker pool has been shut down.
	ErrGraphClosed = xerrors.New("graph is closed")
)

// Vertex represents the vertex of a graph
type Vertex struct {
	id    string
	index int
}

// ID returns the vertex ID
func (v *Vertex) ID() string { return v.id }

// Index returns the dense index assigned to the vertex when it was added.
func (v *Vertex) Index() int { return v.index }

// Graph implements a bulk-synchronous graph processor. A fixed pool of
// workers is started once and reused by every superstep; each superstep
// hands every vertex to the pool and returns only after all of them have
// been processed.
type Graph struct {
	superstep   int
	aggregators map[string]Aggregator
	vertices    []*Vertex
	vertexIndex map[string]int

	computeFn ComputeFunc

	wg       sync.WaitGroup
	vertexCh chan *Vertex
	errCh    chan error
	closed   bool

	stepCompleteCh chan struct{}
	pendingInStep  int64
}

// NewGraph returns a new Graph instance using the specified configuration
// Callers must call close on the returned graph instance when they are done
// using it
func NewGraph(cfg GraphConfig) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph config validation failed: %w", err)
	}

	g := &Graph{
		computeFn:   cfg.ComputeFn,
		aggregators: make(map[string]Aggregator),
		vertexIndex: make(map[string]int),
	}
	g.startWorkers(cfg.ComputeWorkers)
	return g, nil
}

// AddVertex inserts a new vertex with the specified id into the graph and
// returns its index. Adding an existing id returns the index it already has.
func (g *Graph) AddVertex(id string) int {
	if idx, exists := g.vertexIndex[id]; exists {
		return idx
	}
	v := &Vertex{id: id, index: len(g.vertices)}
	g.vertices = append(g.vertices, v)
	g.vertexIndex[id] = v.index
	return v.index
}

// Vertices returns the graph vertices ordered by index.
func (g *Graph) Vertices() []*Vertex { return g.vertices }

// RegisterAggregator adds an aggregator with the specified name into the graph.
func (g *Graph) RegisterAggregator(name string, aggr Aggregator) { g.aggregators[name] = aggr }

// Aggregator returns the aggregator with the specified name or nil if the aggregator
// does not exist
func (g *Graph) Aggregator(name string) Aggregator {
	return g.aggregators[name]
}

// Aggregators returns a map of all currently registered aggregators where the key is the
// aggregator's name
func (g *Graph) Aggregators() map[string]Aggregator {
	return g.aggregators
}

// Superstep returns the current superstep value.
func (g *Graph) Superstep() int { return g.superstep }

// step executes the next superstep and returns back the number of vertices
// that were processed.
func (g *Graph) step() (int, error) {
	if g.closed {
		return 0, ErrGraphClosed
	}
	g.pendingInStep = int64(len(g.vertices))

	// No work required.
	if g.pendingInStep == 0 {
		return 0, nil
	}

	for _, v := range g.vertices {
		g.vertexCh <- v
	}
	// Block until worker pool has finished processing all vertices.
	<-g.stepCompleteCh
	// Dequeue any errors
	var err error
	select {
	case err = <-g.errCh:
	default: // no error available
	}
	return len(g.vertices), err
}

// startWorkers allocates the required channels and spins up runWorkers to
// execute each super-step
func (g *Graph) startWorkers(workers int) {
	g.vertexCh = make(chan *Vertex)
	g.errCh = make(chan error, 1)
	g.stepCompleteCh = make(chan struct{})

	g.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go g.stepWorker()
	}
}

// stepWorker polls vertexCh for incoming vertices and executes the configured
// ComputeFunc for each one. The worker automatically exits when vertexCh gets closed.
func (g *Graph) stepWorker() {
	for v := range g.vertexCh {
		if err := g.compute(v); err != nil {
			tryEmitError(g.errCh, err)
		}
		// The barrier is released by the worker that completes the last
		// vertex, whether or not its compute call failed.
		if atomic.AddInt64(&g.pendingInStep, -1) == 0 {
			g.stepCompleteCh <- struct{}{}
		}
	}
	g.wg.Done()
}

// compute runs the compute function for v and converts panics into errors.
func (g *Graph) compute(v *Vertex) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Errorf("running compute function for vertex %q: %v: %w", v.ID(), r, ErrTaskPanicked)
		}
	}()
	if err = g.computeFn(g, v); err != nil {
		return xerrors.Errorf("running compute function for vertex %q failed: %w", v.ID(), err)
	}
	return nil
}

// Reset the state of the graph
func (g *Graph) Reset() {
	g.superstep = 0
	g.vertices = nil
	g.vertexIndex = make(map[string]int)
	g.aggregators = make(map[string]Aggregator)
}

// Close shuts down the long-running go-routines
func (g *Graph) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	close(g.vertexCh)
	g.wg.Wait()
	g.Reset()
	return nil
}

func tryEmitError(errCh chan<- error, err error) {
	select {
	case errCh <- err: // enqueue error
	default: // channel already contains another error
	}
}
