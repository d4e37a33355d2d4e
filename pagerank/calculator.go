package pagerank

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"Rank_Engine/graphprocessing/bspgraph"
	"Rank_Engine/graphprocessing/bspgraph/aggregator"
	"Rank_Engine/linkgraph/store/memory"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// ErrNonFiniteRank is returned when a rank update produces NaN or an
// infinite value.
var ErrNonFiniteRank = xerrors.New("non-finite rank value")

const rankMassAggregator = "rank_mass"

// Result describes the outcome of a calculator run.
type Result struct {
	// Iterations is the number of completed iterations.
	Iterations int
	// Error is the L1 distance between the last two rank vectors.
	Error float64
	// State is the terminal state of the run.
	State State
	// RankMass is the sum of all ranks after the last iteration. It stays
	// below 1 when rank leaks through dangling nodes.
	RankMass float64
	// Elapsed is the wall time spent iterating.
	Elapsed time.Duration
}

// Calculator executes the iterative version of the PageRank algorithm
// on a link graph held in a memory store.
type Calculator struct {
	g     *bspgraph.Graph
	cfg   Config
	state int32

	// Per-run topology, indexed by arena slot.
	inIdx       [][]int
	outDeg      []float64
	uniform     []bool
	selfInShare []bool

	prev         []float64
	next         []float64
	danglingMass float64
	n            float64
}

// NewCalculator returns a new Calculator instance using the provided config
// options. The calculator owns a worker pool that is released by Close.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("PageRank calculator config validation failed: %w", err)
	}

	c := &Calculator{cfg: cfg}
	g, err := bspgraph.NewGraph(bspgraph.GraphConfig{
		ComputeWorkers: cfg.ComputeWorkers,
		ComputeFn:      c.computeRank,
	})
	if err != nil {
		return nil, err
	}
	c.g = g
	return c, nil
}

// Close releases any resources allocated by this PageRank calculator instance.
func (c *Calculator) Close() error {
	return c.g.Close()
}

// State returns the current state of the calculator.
func (c *Calculator) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Calculator) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Run iterates the PageRank formula over the ranks held by store until the
// L1 error drops to the configured tolerance or the iteration cap is hit.
// Ranks are updated in place in store.
func (c *Calculator) Run(ctx context.Context, store *memory.Store) (Result, error) {
	if err := c.load(store); err != nil {
		return Result{}, err
	}
	c.setState(IterationRunning)

	var (
		res      Result
		settings = c.cfg.Settings
		start    = c.cfg.Clock.Now()
		logger   = c.cfg.Logger
	)
	logger.WithFields(logrus.Fields{
		"urls":           len(c.prev),
		"workers":        c.cfg.ComputeWorkers,
		"damping_factor": settings.DampingFactor,
		"error_rate":     settings.ErrorTolerance,
		"max_iterations": settings.MaxIterations,
	}).Info("starting PageRank calculation")

	ex := bspgraph.NewExecutor(c.g, bspgraph.ExecutorCallbacks{
		PreStep: func(context.Context, *bspgraph.Graph) error {
			c.prev = store.Ranks()
			c.danglingMass = c.computeDanglingMass()
			return nil
		},
		PostStep: func(_ context.Context, g *bspgraph.Graph, _ int) error {
			res.Error = l1Distance(c.prev, c.next)
			res.Iterations = g.Superstep()
			mass := g.Aggregator(rankMassAggregator)
			res.RankMass = mass.Get().(float64)
			massDelta := mass.Delta().(float64)

			prev, err := store.SwapRanks(c.next)
			if err != nil {
				return err
			}
			c.next = prev

			logger.WithFields(logrus.Fields{
				"iteration":  res.Iterations,
				"error":      res.Error,
				"rank_mass":  res.RankMass,
				"mass_delta": massDelta,
			}).Debug("iteration complete")
			return nil
		},
		PostStepKeepRunning: func(_ context.Context, g *bspgraph.Graph, _ int) (bool, error) {
			return g.Superstep() < settings.MaxIterations && res.Error > settings.ErrorTolerance, nil
		},
	})

	if len(c.prev) == 0 {
		// Nothing to rank.
		c.setState(Converged)
		res.State = Converged
		return res, nil
	}
	if err := ex.RunToCompletion(ctx); err != nil {
		return res, xerrors.Errorf("PageRank calculation failed at iteration %d: %w", ex.Superstep()+1, err)
	}

	res.State = MaxIterationsReached
	if res.Error <= settings.ErrorTolerance {
		res.State = Converged
	}
	res.Elapsed = c.cfg.Clock.Now().Sub(start)
	c.setState(res.State)

	logger.WithFields(logrus.Fields{
		"iterations": res.Iterations,
		"error":      res.Error,
		"state":      res.State.String(),
		"rank_mass":  res.RankMass,
		"elapsed":    res.Elapsed.String(),
	}).Info("PageRank calculation finished")
	return res, nil
}

// load captures the link topology of store into index-addressed slices and
// registers one vertex per entry with the processing graph.
func (c *Calculator) load(store *memory.Store) error {
	entries := store.Entries()
	n := len(entries)

	c.g.Reset()
	// The accumulator tracks the total rank mass; workers add the change of
	// their own rank each iteration.
	mass := new(aggregator.Float64Accumulator)
	mass.Set(sumInOrder(store.Ranks()))
	c.g.RegisterAggregator(rankMassAggregator, mass)
	c.n = float64(n)
	c.inIdx = make([][]int, n)
	c.outDeg = make([]float64, n)
	c.uniform = make([]bool, n)
	c.selfInShare = make([]bool, n)
	c.prev = store.Ranks()
	c.next = make([]float64, n)

	for i, e := range entries {
		if idx := c.g.AddVertex(e.URL); idx != i || e.Index != i {
			return xerrors.Errorf("entry %q: arena index %d does not match vertex index %d", e.URL, e.Index, idx)
		}
	}

	for i, e := range entries {
		deg := len(e.OutLinks)
		c.outDeg[i] = float64(deg)

		// Synthetic links of a dangling node point to every other URL, and
		// possibly to itself. They are folded into a single per-iteration
		// mass instead of n in-link records.
		if e.Dangling && deg > 0 {
			self := e.HasOutLink(e.URL)
			if deg == n || (deg == n-1 && !self) {
				c.uniform[i] = true
				c.selfInShare[i] = self
				continue
			}
		}
		for _, l := range e.OutLinks {
			dst, err := store.Entry(l.Dst)
			if err != nil {
				return xerrors.Errorf("load out-links of %q: %w", e.URL, err)
			}
			c.inIdx[dst.Index] = append(c.inIdx[dst.Index], i)
		}
	}
	return nil
}

// computeDanglingMass returns the rank share that every node receives from
// dangling nodes with synthetic out-links. Summation runs in arena order so
// the value does not depend on scheduling.
func (c *Calculator) computeDanglingMass() float64 {
	var mass float64
	for i, uniform := range c.uniform {
		if uniform {
			mass += c.prev[i] / c.outDeg[i]
		}
	}
	return mass
}

// computeRank implements the per-vertex PageRank update. It reads only the
// previous rank buffer and writes only the slot owned by v.
func (c *Calculator) computeRank(g *bspgraph.Graph, v *bspgraph.Vertex) error {
	i := v.Index()

	var sum float64
	for _, src := range c.inIdx[i] {
		sum += c.prev[src] / c.outDeg[src]
	}
	sum += c.danglingMass
	if c.uniform[i] && !c.selfInShare[i] {
		sum -= c.prev[i] / c.outDeg[i]
	}

	d := c.cfg.Settings.DampingFactor
	rank := d*sum + (1-d)/c.n
	if math.IsNaN(rank) || math.IsInf(rank, 0) {
		return xerrors.Errorf("rank of %q: %w", v.ID(), ErrNonFiniteRank)
	}
	c.next[i] = rank
	g.Aggregator(rankMassAggregator).Aggregate(rank - c.prev[i])
	return nil
}

func sumInOrder(ranks []float64) float64 {
	var sum float64
	for _, r := range ranks {
		sum += r
	}
	return sum
}

func l1Distance(a, b []float64) float64 {
	var dist float64
	for i := range a {
		dist += math.Abs(b[i] - a[i])
	}
	return dist
}
