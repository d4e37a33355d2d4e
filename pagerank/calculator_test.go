package pagerank

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/linkgraph/store/memory"

	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(CalculatorTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type CalculatorTestSuite struct{}

func (s *CalculatorTestSuite) TestClosedCycleStaysUniform(c *gc.C) {
	store := makeStore(c, graph.PolicyKeep, "a b", "b c", "c a")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-6, 100)})
	defer func() { _ = calc.Close() }()

	c.Assert(calc.State(), gc.Equals, NotStarted)
	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.State, gc.Equals, Converged)
	c.Assert(calc.State(), gc.Equals, Converged)
	c.Assert(res.Iterations, gc.Equals, 1)
	c.Assert(res.Error <= 1e-6, gc.Equals, true)
	assertRank(c, store, "a", 1.0/3)
	assertRank(c, store, "b", 1.0/3)
	assertRank(c, store, "c", 1.0/3)
	c.Assert(math.Abs(res.RankMass-1) < 1e-9, gc.Equals, true)
}

func (s *CalculatorTestSuite) TestDanglingKeepConservesMass(c *gc.C) {
	store := makeStore(c, graph.PolicyKeep, "a b", "a c", "b c")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-9, 200)})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.State, gc.Equals, Converged)
	c.Assert(math.Abs(sum(store.Ranks())-1) < 1e-9, gc.Equals, true, gc.Commentf("rank mass %v", sum(store.Ranks())))
	c.Assert(math.Abs(res.RankMass-1) < 1e-9, gc.Equals, true)

	ra, _ := store.Rank("a")
	rc, _ := store.Rank("c")
	c.Assert(rc > ra, gc.Equals, true, gc.Commentf("expected the most linked-to page to rank highest"))
}

func (s *CalculatorTestSuite) TestDanglingIgnoreLeaksRank(c *gc.C) {
	store := makeStore(c, graph.PolicyIgnore, "a b", "a c", "b c")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-9, 200)})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.State, gc.Equals, Converged)

	// a: (1-d)/3, b: a + d*a/2, c: a + d*(a/2 + b)
	base := 0.15 / 3
	expB := base + 0.85*base/2
	expC := base + 0.85*(base/2+expB)
	assertRank(c, store, "a", base)
	assertRank(c, store, "b", expB)
	assertRank(c, store, "c", expC)
	c.Assert(math.Abs(res.RankMass-(base+expB+expC)) < 1e-6, gc.Equals, true)
	c.Assert(res.RankMass < 0.5, gc.Equals, true, gc.Commentf("rank leak must not be renormalized"))
}

func (s *CalculatorTestSuite) TestIterationLogsMassDelta(c *gc.C) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := makeStore(c, graph.PolicyIgnore, "a b", "a c", "b c")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-9, 200), Logger: logrus.NewEntry(logger)})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)

	var iterations int
	prevMass := 1.0
	for _, entry := range hook.AllEntries() {
		if entry.Message != "iteration complete" {
			continue
		}
		iterations++
		mass := entry.Data["rank_mass"].(float64)
		delta := entry.Data["mass_delta"].(float64)
		c.Assert(math.Abs(delta-(mass-prevMass)) < 1e-12, gc.Equals, true, gc.Commentf("iteration %d: delta %v, mass %v -> %v", iterations, delta, prevMass, mass))
		prevMass = mass
	}
	c.Assert(iterations, gc.Equals, res.Iterations)
	c.Assert(prevMass, gc.Equals, res.RankMass)
	c.Assert(math.Abs(sum(store.Ranks())-res.RankMass) < 1e-12, gc.Equals, true)
}

func (s *CalculatorTestSuite) TestSelfLink(c *gc.C) {
	store := makeStore(c, graph.PolicyKeep, "a a", "a b", "b a")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-10, 500)})
	defer func() { _ = calc.Close() }()

	_, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)

	// a = 0.075 + 0.85*(a/2 + b), b = 0.075 + 0.85*a/2
	ra, _ := store.Rank("a")
	rb, _ := store.Rank("b")
	c.Assert(math.Abs(ra+rb-1) < 1e-9, gc.Equals, true)
	c.Assert(math.Abs(rb-(0.075+0.85*ra/2)) < 1e-9, gc.Equals, true)
}

func (s *CalculatorTestSuite) TestSingleURL(c *gc.C) {
	store := memory.NewStore()
	e, _ := store.EnsureEntry("a")
	c.Assert(store.SetOutLinks(e.URL, []graph.LinkEdge{{Dst: "a"}}), gc.IsNil)
	c.Assert(store.SetRanks([]float64{1}), gc.IsNil)

	calc := s.mustCalculator(c, Config{Settings: settings(1e-6, 100)})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.Iterations, gc.Equals, 1)
	c.Assert(res.Error, gc.Equals, 0.0)
	c.Assert(res.State, gc.Equals, Converged)
	c.Assert(res.RankMass, gc.Equals, 1.0)
	assertRank(c, store, "a", 1)
}

func (s *CalculatorTestSuite) TestEmptyStore(c *gc.C) {
	calc := s.mustCalculator(c, Config{Settings: settings(1e-6, 100)})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), memory.NewStore())
	c.Assert(err, gc.IsNil)
	c.Assert(res.State, gc.Equals, Converged)
	c.Assert(res.Iterations, gc.Equals, 0)
}

func (s *CalculatorTestSuite) TestMaxIterationsReached(c *gc.C) {
	store := makeStore(c, graph.PolicyKeep, "a b", "a c", "b c")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-12, 2)})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.State, gc.Equals, MaxIterationsReached)
	c.Assert(res.Iterations, gc.Equals, 2)
	c.Assert(res.Error > 1e-12, gc.Equals, true)
}

func (s *CalculatorTestSuite) TestWorkerCountIndependence(c *gc.C) {
	edges := chainWithShortcuts(300)

	var results [][]float64
	for _, workers := range []int{1, 3, 16} {
		store := makeStore(c, graph.PolicyKeep, edges...)
		calc := s.mustCalculator(c, Config{Settings: settings(1e-8, 300), ComputeWorkers: workers})
		res, err := calc.Run(context.TODO(), store)
		c.Assert(err, gc.IsNil)
		c.Assert(res.State, gc.Equals, Converged)
		c.Assert(calc.Close(), gc.IsNil)
		results = append(results, append([]float64(nil), store.Ranks()...))
	}
	c.Assert(results[1], gc.DeepEquals, results[0])
	c.Assert(results[2], gc.DeepEquals, results[0])
}

func (s *CalculatorTestSuite) TestConvergedStateIsStable(c *gc.C) {
	tolerance := 1e-6
	store := makeStore(c, graph.PolicyKeep, chainWithShortcuts(50)...)
	calc := s.mustCalculator(c, Config{Settings: settings(tolerance, 100)})
	defer func() { _ = calc.Close() }()

	_, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	before := append([]float64(nil), store.Ranks()...)

	once := s.mustCalculator(c, Config{Settings: settings(tolerance, 1)})
	defer func() { _ = once.Close() }()
	res, err := once.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.Iterations, gc.Equals, 1)
	c.Assert(res.Error < tolerance, gc.Equals, true)
	for i, r := range store.Ranks() {
		c.Assert(math.Abs(r-before[i]) < tolerance, gc.Equals, true)
	}
}

func (s *CalculatorTestSuite) TestFailingTaskAbortsRun(c *gc.C) {
	store := makeStore(c, graph.PolicyKeep, "a b", "b a")
	c.Assert(store.SetRanks([]float64{math.NaN(), 0.5}), gc.IsNil)

	calc := s.mustCalculator(c, Config{Settings: settings(1e-6, 10), ComputeWorkers: 2})
	defer func() { _ = calc.Close() }()

	_, err := calc.Run(context.TODO(), store)
	c.Assert(xerrors.Is(err, ErrNonFiniteRank), gc.Equals, true, gc.Commentf("got %v", err))
}

func (s *CalculatorTestSuite) TestContextCancellation(c *gc.C) {
	store := makeStore(c, graph.PolicyKeep, "a b", "b a")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-6, 10)})
	defer func() { _ = calc.Close() }()

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()
	_, err := calc.Run(ctx, store)
	c.Assert(xerrors.Is(err, context.Canceled), gc.Equals, true)
}

func (s *CalculatorTestSuite) TestElapsedUsesClock(c *gc.C) {
	clk := testclock.NewClock(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	store := makeStore(c, graph.PolicyKeep, "a b", "b a")
	calc := s.mustCalculator(c, Config{Settings: settings(1e-6, 10), Clock: clk})
	defer func() { _ = calc.Close() }()

	res, err := calc.Run(context.TODO(), store)
	c.Assert(err, gc.IsNil)
	c.Assert(res.Elapsed, gc.Equals, time.Duration(0))
}

func (s *CalculatorTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewCalculator(Config{Settings: graph.Settings{DampingFactor: 1.5}, ComputeWorkers: -1})
	c.Assert(err, gc.ErrorMatches, "(?s).*compute workers.*")
	c.Assert(err, gc.ErrorMatches, "(?s).*damping.*")
}

func (s *CalculatorTestSuite) mustCalculator(c *gc.C, cfg Config) *Calculator {
	calc, err := NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	return calc
}

func settings(tolerance float64, maxIterations int) graph.Settings {
	return graph.Settings{
		DanglingNodePolicy: graph.PolicyKeep,
		SelfLinkPolicy:     graph.PolicyKeep,
		ErrorTolerance:     tolerance,
		MaxIterations:      maxIterations,
		DampingFactor:      0.85,
	}
}

// makeStore populates a store from "src dst" records the way the builder
// does: dangling nodes get links to every other URL under KEEP and the
// initial ranks are uniform.
func makeStore(c *gc.C, danglingPolicy graph.Policy, edges ...string) *memory.Store {
	store := memory.NewStore()
	for _, edge := range edges {
		var src, dst string
		_, err := fmt.Sscan(edge, &src, &dst)
		c.Assert(err, gc.IsNil)
		store.EnsureEntry(src)
		store.EnsureEntry(dst)
		_, err = store.AddEdge(graph.LinkEdge{Src: src, Dst: dst})
		c.Assert(err, gc.IsNil)
		c.Assert(store.UnmarkDangling(src), gc.IsNil)
	}

	urls := store.URLs()
	if danglingPolicy == graph.PolicyKeep {
		for _, d := range store.DanglingNodes() {
			var links []graph.LinkEdge
			for _, url := range urls {
				if url != d {
					links = append(links, graph.LinkEdge{Dst: url})
				}
			}
			c.Assert(store.SetOutLinks(d, links), gc.IsNil)
		}
	}

	ranks := make([]float64, len(urls))
	for i := range ranks {
		ranks[i] = 1 / float64(len(urls))
	}
	c.Assert(store.SetRanks(ranks), gc.IsNil)
	return store
}

// chainWithShortcuts returns a chain 0 -> 1 -> ... -> n-1 plus forward
// shortcuts; the last node is dangling.
func chainWithShortcuts(n int) []string {
	var edges []string
	for i := 0; i < n-1; i++ {
		edges = append(edges, fmt.Sprintf("%d %d", i, i+1))
		if i%7 == 0 && i+5 < n {
			edges = append(edges, fmt.Sprintf("%d %d", i, i+5))
		}
	}
	return edges
}

func assertRank(c *gc.C, store *memory.Store, url string, exp float64) {
	got, err := store.Rank(url)
	c.Assert(err, gc.IsNil)
	c.Assert(math.Abs(got-exp) < 1e-6, gc.Equals, true, gc.Commentf("rank of %q: got %v, expected %v", url, got, exp))
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
